package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT CATALOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements reward.CatalogRepository for PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// Seed inserts the given definitions if the catalog table is empty. Runs in
// one transaction so a partially seeded catalog can never be observed.
func (r *CatalogRepository) Seed(ctx context.Context, defs []reward.Definition) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var n int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM achievement_definitions`).Scan(&n); err != nil {
			return fmt.Errorf("failed to count catalog: %w", err)
		}
		if n > 0 {
			return nil
		}

		for i, def := range defs {
			_, err := tx.Exec(ctx, `
				INSERT INTO achievement_definitions
					(id, name, description, icon, color, xp_reward, requirement_kind, threshold, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`,
				def.ID.String(),
				def.Name,
				def.Description,
				def.Icon,
				def.Color,
				def.XPReward.Int(),
				def.Kind.String(),
				def.Threshold,
				i,
			)
			if err != nil {
				return fmt.Errorf("failed to seed achievement %s: %w", def.ID, err)
			}
		}
		return nil
	})
}

// Load returns all definitions in stable catalog order.
func (r *CatalogRepository) Load(ctx context.Context) ([]reward.Definition, error) {
	query := `
		SELECT id, name, description, icon, color, xp_reward, requirement_kind, threshold
		FROM achievement_definitions
		ORDER BY position
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	defer rows.Close()

	var defs []reward.Definition
	for rows.Next() {
		var def reward.Definition
		var id, kind string
		var xpReward int

		if err := rows.Scan(&id, &def.Name, &def.Description, &def.Icon, &def.Color, &xpReward, &kind, &def.Threshold); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		def.ID = shared.AchievementID(id)
		def.XPReward = shared.XP(xpReward)
		def.Kind = shared.RequirementKind(kind)
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// UnlockRepository implements reward.UnlockRepository for PostgreSQL.
type UnlockRepository struct {
	conn *Connection
}

// NewUnlockRepository creates a new UnlockRepository.
func NewUnlockRepository(conn *Connection) *UnlockRepository {
	return &UnlockRepository{conn: conn}
}

// ListByUser returns a user's unlock records, newest first.
func (r *UnlockRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]reward.Unlock, error) {
	query := `
		SELECT id, user_id, achievement_id, unlocked_at
		FROM achievement_unlocks
		WHERE user_id = $1
		ORDER BY unlocked_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	defer rows.Close()

	var unlocks []reward.Unlock
	for rows.Next() {
		var u reward.Unlock
		var uid, aid string
		if err := rows.Scan(&u.ID, &uid, &aid, &u.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}
		u.UserID = shared.UserID(uid)
		u.AchievementID = shared.AchievementID(aid)
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}

// ListIDsByUser returns just the unlocked achievement identifiers.
func (r *UnlockRepository) ListIDsByUser(ctx context.Context, userID shared.UserID) ([]shared.AchievementID, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT achievement_id FROM achievement_unlocks WHERE user_id = $1`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlock ids: %w", err)
	}
	defer rows.Close()

	var ids []shared.AchievementID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unlock id: %w", err)
		}
		ids = append(ids, shared.AchievementID(id))
	}
	return ids, rows.Err()
}

// Exists reports whether the user already holds the achievement.
func (r *UnlockRepository) Exists(ctx context.Context, userID shared.UserID, achievementID shared.AchievementID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM achievement_unlocks WHERE user_id = $1 AND achievement_id = $2
		)
	`, userID.String(), achievementID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check unlock: %w", err)
	}
	return exists, nil
}

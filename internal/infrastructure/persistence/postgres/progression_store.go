package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION STORE
// The commit boundary of a progression run. Snapshot update and unlock inserts
// go through one transaction; a failed commit leaves no partial effect.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionStore implements progression.Store for PostgreSQL.
type ProgressionStore struct {
	conn *Connection
}

// NewProgressionStore creates a new ProgressionStore.
func NewProgressionStore(conn *Connection) *ProgressionStore {
	return &ProgressionStore{conn: conn}
}

// LoadSnapshot returns the user's current progress state.
func (s *ProgressionStore) LoadSnapshot(ctx context.Context, userID shared.UserID) (user.ProgressSnapshot, error) {
	query := `
		SELECT id, xp, total_xp, level, streak, tasks_completed, planners_created
		FROM users
		WHERE id = $1
	`

	return scanSnapshot(s.conn.QueryRow(ctx, query, userID.String()))
}

// LoadUnlocked returns the identifiers of achievements the user holds.
func (s *ProgressionStore) LoadUnlocked(ctx context.Context, userID shared.UserID) ([]shared.AchievementID, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT achievement_id FROM achievement_unlocks WHERE user_id = $1`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocked set: %w", err)
	}
	defer rows.Close()

	var ids []shared.AchievementID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unlocked id: %w", err)
		}
		ids = append(ids, shared.AchievementID(id))
	}
	return ids, rows.Err()
}

// Commit writes the snapshot and inserts the unlock records in one
// transaction. The UNIQUE(user_id, achievement_id) constraint is the
// database-level backstop; hitting it rolls the whole run back.
func (s *ProgressionStore) Commit(ctx context.Context, snapshot user.ProgressSnapshot, unlocks []reward.Unlock) error {
	return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE users SET
				xp = $1,
				total_xp = $2,
				level = $3,
				streak = $4,
				tasks_completed = $5,
				planners_created = $6
			WHERE id = $7
		`,
			snapshot.XP.Int(),
			snapshot.TotalXP.Int(),
			snapshot.Level.Int(),
			snapshot.Streak,
			snapshot.TasksCompleted,
			snapshot.PlannersCreated,
			snapshot.UserID.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		if result.RowsAffected() == 0 {
			return shared.ErrUserNotFound
		}

		for _, u := range unlocks {
			_, err := tx.Exec(ctx, `
				INSERT INTO achievement_unlocks (id, user_id, achievement_id, unlocked_at)
				VALUES ($1, $2, $3, $4)
			`,
				u.ID,
				u.UserID.String(),
				u.AchievementID.String(),
				u.UnlockedAt,
			)
			if err != nil {
				if IsUniqueViolation(err) {
					return shared.ErrAlreadyUnlocked
				}
				return fmt.Errorf("failed to insert unlock %s: %w", u.AchievementID, err)
			}
		}
		return nil
	})
}

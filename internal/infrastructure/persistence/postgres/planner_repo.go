package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/planhive/planhive/internal/domain/planner"
	"github.com/planhive/planhive/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PLANNER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PlannerRepository implements planner.Repository for PostgreSQL.
type PlannerRepository struct {
	conn *Connection
}

// NewPlannerRepository creates a new PlannerRepository.
func NewPlannerRepository(conn *Connection) *PlannerRepository {
	return &PlannerRepository{conn: conn}
}

const plannerColumns = `id, user_id, name, kind, color, icon, description, is_favorite,
	   target_frequency, target_value, created_at, updated_at`

// Create creates a new planner.
func (r *PlannerRepository) Create(ctx context.Context, p *planner.Planner) error {
	query := `
		INSERT INTO planners (
			id, user_id, name, kind, color, icon, description, is_favorite,
			target_frequency, target_value, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.conn.Exec(ctx, query,
		p.ID.String(),
		p.UserID.String(),
		p.Name,
		p.Kind.String(),
		p.Color,
		p.Icon,
		p.Description,
		p.IsFavorite,
		p.TargetFrequency,
		p.TargetValue,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create planner: %w", err)
	}

	return nil
}

// GetByID returns a planner by ID.
func (r *PlannerRepository) GetByID(ctx context.Context, id shared.PlannerID) (*planner.Planner, error) {
	query := `SELECT ` + plannerColumns + ` FROM planners WHERE id = $1`
	return scanPlanner(r.conn.QueryRow(ctx, query, id.String()))
}

// Update persists planner changes.
func (r *PlannerRepository) Update(ctx context.Context, p *planner.Planner) error {
	query := `
		UPDATE planners SET
			name = $1,
			kind = $2,
			color = $3,
			icon = $4,
			description = $5,
			is_favorite = $6,
			target_frequency = $7,
			target_value = $8
		WHERE id = $9
	`

	result, err := r.conn.Exec(ctx, query,
		p.Name,
		p.Kind.String(),
		p.Color,
		p.Icon,
		p.Description,
		p.IsFavorite,
		p.TargetFrequency,
		p.TargetValue,
		p.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update planner: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrPlannerNotFound
	}

	return nil
}

// Delete removes a planner. Tasks under it become unfiled via ON DELETE SET NULL.
func (r *PlannerRepository) Delete(ctx context.Context, id shared.PlannerID) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM planners WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete planner: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrPlannerNotFound
	}
	return nil
}

// ListByUser returns a user's planners, newest first.
func (r *PlannerRepository) ListByUser(ctx context.Context, userID shared.UserID, kind planner.Kind) ([]*planner.Planner, error) {
	query := `SELECT ` + plannerColumns + ` FROM planners WHERE user_id = $1`
	args := []interface{}{userID.String()}

	if kind != "" {
		args = append(args, kind.String())
		query += ` AND kind = $2`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list planners: %w", err)
	}
	defer rows.Close()

	var planners []*planner.Planner
	for rows.Next() {
		p, err := scanPlanner(rows)
		if err != nil {
			return nil, err
		}
		planners = append(planners, p)
	}
	return planners, rows.Err()
}

// CountByUser returns how many planners a user currently has.
func (r *PlannerRepository) CountByUser(ctx context.Context, userID shared.UserID) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM planners WHERE user_id = $1`, userID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count planners: %w", err)
	}
	return n, nil
}

func scanPlanner(row pgx.Row) (*planner.Planner, error) {
	var p planner.Planner
	var id, userID, kind string

	err := row.Scan(
		&id,
		&userID,
		&p.Name,
		&kind,
		&p.Color,
		&p.Icon,
		&p.Description,
		&p.IsFavorite,
		&p.TargetFrequency,
		&p.TargetValue,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPlannerNotFound
		}
		return nil, fmt.Errorf("failed to scan planner: %w", err)
	}

	p.ID = shared.PlannerID(id)
	p.UserID = shared.UserID(userID)
	p.Kind = planner.Kind(kind)

	return &p, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `id, email, username, password_hash, avatar,
	   xp, total_xp, level, streak, tasks_completed, planners_created,
	   created_at, updated_at`

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id, email, username, password_hash, avatar,
			xp, total_xp, level, streak, tasks_completed, planners_created,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.Exec(ctx, query,
		u.ID.String(),
		u.Email.String(),
		u.Username,
		u.PasswordHash,
		u.Avatar,
		u.Progress.XP.Int(),
		u.Progress.TotalXP.Int(),
		u.Progress.Level.Int(),
		u.Progress.Streak,
		u.Progress.TasksCompleted,
		u.Progress.PlannersCreated,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by internal ID.
func (r *UserRepository) GetByID(ctx context.Context, id shared.UserID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.conn.QueryRow(ctx, query, id.String()))
}

// GetByEmail returns a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email shared.Email) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.conn.QueryRow(ctx, query, email.Normalize().String()))
}

// Update persists profile changes. Progress counters are written only through
// the progression commit or IncrementPlannersCreated.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			email = $1,
			username = $2,
			password_hash = $3,
			avatar = $4
		WHERE id = $5
	`

	result, err := r.conn.Exec(ctx, query,
		u.Email.String(),
		u.Username,
		u.PasswordHash,
		u.Avatar,
		u.ID.String(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}

// GetSnapshot returns only the progress snapshot for a user.
func (r *UserRepository) GetSnapshot(ctx context.Context, id shared.UserID) (user.ProgressSnapshot, error) {
	query := `
		SELECT id, xp, total_xp, level, streak, tasks_completed, planners_created
		FROM users
		WHERE id = $1
	`

	return scanSnapshot(r.conn.QueryRow(ctx, query, id.String()))
}

// IncrementPlannersCreated atomically bumps the planner counter and returns
// the updated snapshot.
func (r *UserRepository) IncrementPlannersCreated(ctx context.Context, id shared.UserID) (user.ProgressSnapshot, error) {
	query := `
		UPDATE users
		SET planners_created = planners_created + 1
		WHERE id = $1
		RETURNING id, xp, total_xp, level, streak, tasks_completed, planners_created
	`

	return scanSnapshot(r.conn.QueryRow(ctx, query, id.String()))
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var id, email string
	var xp, totalXP, level int

	err := row.Scan(
		&id,
		&email,
		&u.Username,
		&u.PasswordHash,
		&u.Avatar,
		&xp,
		&totalXP,
		&level,
		&u.Progress.Streak,
		&u.Progress.TasksCompleted,
		&u.Progress.PlannersCreated,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.ID = shared.UserID(id)
	u.Email = shared.Email(email)
	u.Progress.UserID = u.ID
	u.Progress.XP = shared.XP(xp)
	u.Progress.TotalXP = shared.XP(totalXP)
	u.Progress.Level = shared.Level(level)

	return &u, nil
}

func scanSnapshot(row pgx.Row) (user.ProgressSnapshot, error) {
	var s user.ProgressSnapshot
	var id string
	var xp, totalXP, level int

	err := row.Scan(&id, &xp, &totalXP, &level, &s.Streak, &s.TasksCompleted, &s.PlannersCreated)
	if err != nil {
		if IsNoRows(err) {
			return user.ProgressSnapshot{}, shared.ErrUserNotFound
		}
		return user.ProgressSnapshot{}, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	s.UserID = shared.UserID(id)
	s.XP = shared.XP(xp)
	s.TotalXP = shared.XP(totalXP)
	s.Level = shared.Level(level)

	return s, nil
}

// Package user contains the user domain model and the per-user progress
// snapshot that the progression engine reads and writes.
package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/planhive/planhive/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// ProgressSnapshot is the minimal set of per-user counters the progression
// engine operates on. During a progression transaction it is owned exclusively
// by the coordinator; at rest it is owned by the user store.
//
// Invariants after any committed progression transaction:
//   - Level equals the level resolved from TotalXP (and never decreases).
//   - TotalXP, TasksCompleted and PlannersCreated never decrease.
type ProgressSnapshot struct {
	// UserID identifies the owner of this snapshot.
	UserID shared.UserID

	// XP is the current (spendable) XP balance.
	XP shared.XP

	// TotalXP is the lifetime XP balance. Monotonically non-decreasing;
	// levels and leaderboards are derived from it.
	TotalXP shared.XP

	// Level is the derived level, at least 1.
	Level shared.Level

	// Streak is the consecutive-day activity counter. It is maintained
	// externally and only consumed here.
	Streak int

	// TasksCompleted counts tasks ever completed.
	TasksCompleted int

	// PlannersCreated counts planners ever created.
	PlannersCreated int
}

// Clone returns a copy of the snapshot.
func (s ProgressSnapshot) Clone() ProgressSnapshot {
	return s
}

// String returns a compact representation for logging.
func (s ProgressSnapshot) String() string {
	return fmt.Sprintf("Progress{user: %s, xp: %d, total: %d, level: %d, tasks: %d}",
		s.UserID, s.XP, s.TotalXP, s.Level, s.TasksCompleted)
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User is the account entity. Authentication tokens are issued and verified by
// an external collaborator; this entity only stores the credential hash.
type User struct {
	// ID is the internal unique identifier (UUID in string form).
	ID shared.UserID

	// Email is the unique login email.
	Email shared.Email

	// Username is the display name.
	Username string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Avatar is an optional avatar URL.
	Avatar string

	// Progress is the gamification snapshot.
	Progress ProgressSnapshot

	// CreatedAt is when the account was created. Also the leaderboard
	// tie-break key: on equal TotalXP the earlier account ranks higher.
	CreatedAt time.Time

	// UpdatedAt is when the account was last modified.
	UpdatedAt time.Time
}

// NewUserParams contains parameters for creating a new user.
type NewUserParams struct {
	ID           shared.UserID
	Email        shared.Email
	Username     string
	PasswordHash string
	Avatar       string
}

// NewUser creates a new user with a fresh progress snapshot.
func NewUser(params NewUserParams) (*User, error) {
	if !params.ID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if !params.Email.IsValid() {
		return nil, shared.ErrInvalidEmail
	}

	username := strings.TrimSpace(params.Username)
	if len(username) == 0 || len(username) > 100 {
		return nil, errors.New("username must be 1-100 chars")
	}
	if params.PasswordHash == "" {
		return nil, errors.New("password hash is required")
	}

	now := time.Now().UTC()

	return &User{
		ID:           params.ID,
		Email:        params.Email.Normalize(),
		Username:     username,
		PasswordHash: params.PasswordHash,
		Avatar:       params.Avatar,
		Progress: ProgressSnapshot{
			UserID:  params.ID,
			XP:      0,
			TotalXP: 0,
			Level:   1,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

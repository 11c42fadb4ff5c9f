package planner

import (
	"context"

	"github.com/planhive/planhive/internal/domain/shared"
)

// Repository defines the planner store contract.
type Repository interface {
	// Create creates a new planner.
	Create(ctx context.Context, p *Planner) error

	// GetByID returns a planner by ID.
	// Returns shared.ErrPlannerNotFound if the planner does not exist.
	GetByID(ctx context.Context, id shared.PlannerID) (*Planner, error)

	// Update persists planner changes.
	Update(ctx context.Context, p *Planner) error

	// Delete removes a planner. Tasks under it become unfiled.
	Delete(ctx context.Context, id shared.PlannerID) error

	// ListByUser returns a user's planners, newest first, optionally
	// filtered by kind (empty kind means no filter).
	ListByUser(ctx context.Context, userID shared.UserID, kind Kind) ([]*Planner, error)

	// CountByUser returns how many planners a user currently has.
	CountByUser(ctx context.Context, userID shared.UserID) (int, error)
}

// Package planner contains the planner domain model. Creating a planner bumps
// the owner's planners_created counter, which planner achievements gate on.
package planner

import (
	"errors"
	"strings"
	"time"

	"github.com/planhive/planhive/internal/domain/shared"
)

// Kind classifies a planner.
type Kind string

const (
	KindTodo    Kind = "todo"
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
	KindProject Kind = "project"
	KindHabit   Kind = "habit"
	KindGoal    Kind = "goal"
)

// IsValid checks that the kind is one of the known values.
func (k Kind) IsValid() bool {
	switch k {
	case KindTodo, KindDaily, KindWeekly, KindMonthly, KindProject, KindHabit, KindGoal:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// Planner groups tasks for a user.
type Planner struct {
	ID          shared.PlannerID
	UserID      shared.UserID
	Name        string
	Kind        Kind
	Color       string
	Icon        string
	Description string
	IsFavorite  bool

	// TargetFrequency and TargetValue apply to habit and goal planners.
	TargetFrequency int
	TargetValue     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPlannerParams contains parameters for creating a new planner.
type NewPlannerParams struct {
	ID              shared.PlannerID
	UserID          shared.UserID
	Name            string
	Kind            Kind
	Color           string
	Icon            string
	Description     string
	TargetFrequency int
	TargetValue     int
}

// NewPlanner creates a planner with defaults matching the product UI.
func NewPlanner(params NewPlannerParams) (*Planner, error) {
	if !params.ID.IsValid() {
		return nil, shared.ErrInvalidPlanner
	}
	if !params.UserID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, errors.New("planner name is required")
	}
	if !params.Kind.IsValid() {
		params.Kind = KindTodo
	}
	if params.Color == "" {
		params.Color = "#6B46C1"
	}
	if params.Icon == "" {
		params.Icon = "📋"
	}

	now := time.Now().UTC()

	return &Planner{
		ID:              params.ID,
		UserID:          params.UserID,
		Name:            name,
		Kind:            params.Kind,
		Color:           params.Color,
		Icon:            params.Icon,
		Description:     params.Description,
		TargetFrequency: params.TargetFrequency,
		TargetValue:     params.TargetValue,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/planhive/planhive/internal/application/progression"
	"github.com/planhive/planhive/internal/domain/planner"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE PLANNER COMMAND
// Creates a planner and bumps the owner's planners_created counter, then
// re-checks achievements so planner milestones unlock right away.
// ══════════════════════════════════════════════════════════════════════════════

// CreatePlannerCommand contains the data to create a planner.
type CreatePlannerCommand struct {
	// UserID is the owner.
	UserID shared.UserID

	// Name is the planner name.
	Name string

	// Kind is the raw planner kind. Unknown values fall back to todo.
	Kind string

	// Color is the optional display color (hex).
	Color string

	// Icon is the optional display icon.
	Icon string

	// Description is optional free text.
	Description string

	// TargetFrequency and TargetValue apply to habit and goal planners.
	TargetFrequency int
	TargetValue     int
}

// Validate validates the command.
func (c CreatePlannerCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if c.Name == "" {
		return errors.New("create_planner: name is required")
	}
	return nil
}

// CreatePlannerResult contains the created planner.
type CreatePlannerResult struct {
	// Planner is the created planner.
	Planner *planner.Planner

	// NewlyUnlocked are achievement ids the re-check unlocked.
	NewlyUnlocked []shared.AchievementID

	// Progress is the snapshot after the counter bump and re-check.
	Progress user.ProgressSnapshot
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreatePlannerHandler handles the CreatePlannerCommand.
type CreatePlannerHandler struct {
	plannerRepo    planner.Repository
	userRepo       user.Repository
	coordinator    *progression.Coordinator
	eventPublisher shared.EventPublisher
}

// NewCreatePlannerHandler creates a new CreatePlannerHandler.
func NewCreatePlannerHandler(
	plannerRepo planner.Repository,
	userRepo user.Repository,
	coordinator *progression.Coordinator,
	eventPublisher shared.EventPublisher,
) *CreatePlannerHandler {
	return &CreatePlannerHandler{
		plannerRepo:    plannerRepo,
		userRepo:       userRepo,
		coordinator:    coordinator,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the create planner command.
func (h *CreatePlannerHandler) Handle(ctx context.Context, cmd CreatePlannerCommand) (*CreatePlannerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_planner: validation failed: %w", err)
	}

	p, err := planner.NewPlanner(planner.NewPlannerParams{
		ID:              shared.PlannerID(uuid.NewString()),
		UserID:          cmd.UserID,
		Name:            cmd.Name,
		Kind:            planner.Kind(cmd.Kind),
		Color:           cmd.Color,
		Icon:            cmd.Icon,
		Description:     cmd.Description,
		TargetFrequency: cmd.TargetFrequency,
		TargetValue:     cmd.TargetValue,
	})
	if err != nil {
		return nil, err
	}

	if err := h.plannerRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create_planner: failed to create planner: %w", err)
	}

	snapshot, err := h.userRepo.IncrementPlannersCreated(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("create_planner: failed to bump planner counter: %w", err)
	}

	result := &CreatePlannerResult{Planner: p, Progress: snapshot}

	// The re-check is best effort; a skipped milestone unlocks on the next
	// progression run for this user.
	run, err := h.coordinator.Run(ctx, progression.Input{
		UserID:  cmd.UserID,
		Trigger: progression.TriggerCheckOnly,
	})
	if err == nil {
		result.Progress = run.Snapshot
		for _, def := range run.NewlyUnlocked {
			result.NewlyUnlocked = append(result.NewlyUnlocked, def.ID)
		}
	}

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(shared.NewPlannerCreatedEvent(
			cmd.UserID.String(), p.ID.String(), p.Kind.String(),
		))
	}

	return result, nil
}

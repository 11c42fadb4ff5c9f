package command

import (
	"context"
	"fmt"
	"time"

	"github.com/planhive/planhive/internal/application/progression"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/task"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET TASK COMPLETION COMMAND
// Toggles a task's completed state. Only the transition from a non-completed
// status into completed triggers a progression run; repeating the completed
// state is a no-op, and reopening never reverses rewards already granted.
// ══════════════════════════════════════════════════════════════════════════════

// SetTaskCompletionCommand contains the data to toggle task completion.
type SetTaskCompletionCommand struct {
	// UserID is the caller; must own the task.
	UserID shared.UserID

	// TaskID is the task to toggle.
	TaskID shared.TaskID

	// Completed is the desired state.
	Completed bool
}

// Validate validates the command.
func (c SetTaskCompletionCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if !c.TaskID.IsValid() {
		return shared.ErrInvalidTaskID
	}
	return nil
}

// SetTaskCompletionResult contains the toggle outcome.
type SetTaskCompletionResult struct {
	// Task is the task after the toggle.
	Task *task.Task

	// Awarded is true when this call triggered a progression run.
	Awarded bool

	// XPAwarded is the XP the run granted, base reward and bonuses together.
	XPAwarded shared.XP

	// NewlyUnlocked are achievement ids unlocked by the run.
	NewlyUnlocked []shared.AchievementID

	// Progress is the committed snapshot after the run; zero value when no
	// run happened.
	Progress user.ProgressSnapshot
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SetTaskCompletionHandler handles the SetTaskCompletionCommand.
type SetTaskCompletionHandler struct {
	taskRepo       task.Repository
	coordinator    *progression.Coordinator
	eventPublisher shared.EventPublisher
}

// NewSetTaskCompletionHandler creates a new SetTaskCompletionHandler.
func NewSetTaskCompletionHandler(
	taskRepo task.Repository,
	coordinator *progression.Coordinator,
	eventPublisher shared.EventPublisher,
) *SetTaskCompletionHandler {
	return &SetTaskCompletionHandler{
		taskRepo:       taskRepo,
		coordinator:    coordinator,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the set task completion command.
func (h *SetTaskCompletionHandler) Handle(ctx context.Context, cmd SetTaskCompletionCommand) (*SetTaskCompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("set_task_completion: validation failed: %w", err)
	}

	t, err := h.taskRepo.GetByID(ctx, cmd.TaskID)
	if err != nil {
		return nil, fmt.Errorf("set_task_completion: failed to get task: %w", err)
	}
	if !t.IsOwnedBy(cmd.UserID) {
		return nil, shared.ErrTaskNotOwned
	}

	now := time.Now().UTC()
	result := &SetTaskCompletionResult{Task: t}

	if !cmd.Completed {
		if !t.Status.IsCompleted() {
			return result, nil
		}
		t.Reopen(now)
		if err := h.taskRepo.Update(ctx, t); err != nil {
			return nil, fmt.Errorf("set_task_completion: failed to reopen task: %w", err)
		}
		return result, nil
	}

	if !t.MarkCompleted(now) {
		// Already completed; completion pays out at most once.
		return result, nil
	}

	// The completed state and the paid reward move together: the task write
	// lands first and is reverted if the progression run fails, so a retry
	// crosses the completion boundary again and pays the frozen XP.
	if err := h.taskRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("set_task_completion: failed to update task: %w", err)
	}

	run, err := h.coordinator.Run(ctx, progression.Input{
		UserID:       cmd.UserID,
		Trigger:      progression.TriggerCompletion,
		TaskID:       t.ID,
		TaskXPReward: t.XPReward,
	})
	if err != nil {
		t.Reopen(now)
		if revertErr := h.taskRepo.Update(ctx, t); revertErr != nil {
			return nil, fmt.Errorf("set_task_completion: progression failed (%v), task revert failed: %w", err, revertErr)
		}
		return nil, fmt.Errorf("set_task_completion: progression failed: %w", err)
	}

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(shared.NewTaskCompletedEvent(
			cmd.UserID.String(), t.ID.String(), t.XPReward.Int(),
		))
	}

	result.Awarded = true
	result.XPAwarded = run.XPAwarded
	result.Progress = run.Snapshot
	for _, def := range run.NewlyUnlocked {
		result.NewlyUnlocked = append(result.NewlyUnlocked, def.ID)
	}
	return result, nil
}

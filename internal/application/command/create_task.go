package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planhive/planhive/internal/domain/planner"
	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE TASK COMMAND
// Creates a pending task. The XP reward is resolved from the priority here,
// once, and frozen on the task; completion pays exactly this amount no matter
// how the priority changes later.
// ══════════════════════════════════════════════════════════════════════════════

// CreateTaskCommand contains the data to create a task.
type CreateTaskCommand struct {
	// UserID is the owner.
	UserID shared.UserID

	// PlannerID optionally files the task under a planner.
	PlannerID shared.PlannerID

	// Title is the task title.
	Title string

	// Description is optional free text.
	Description string

	// Priority is the raw priority string. Unknown values fall back to medium.
	Priority string

	// DueDate is the optional due date.
	DueDate *time.Time

	// EstimatedMinutes is the optional effort estimate.
	EstimatedMinutes int

	// Tags are optional labels.
	Tags []string
}

// Validate validates the command.
func (c CreateTaskCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if c.Title == "" {
		return errors.New("create_task: title is required")
	}
	return nil
}

// CreateTaskResult contains the created task.
type CreateTaskResult struct {
	// Task is the created task, including its frozen XP reward.
	Task *task.Task
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateTaskHandler handles the CreateTaskCommand.
type CreateTaskHandler struct {
	taskRepo    task.Repository
	plannerRepo planner.Repository
}

// NewCreateTaskHandler creates a new CreateTaskHandler.
func NewCreateTaskHandler(taskRepo task.Repository, plannerRepo planner.Repository) *CreateTaskHandler {
	return &CreateTaskHandler{
		taskRepo:    taskRepo,
		plannerRepo: plannerRepo,
	}
}

// Handle executes the create task command.
func (h *CreateTaskHandler) Handle(ctx context.Context, cmd CreateTaskCommand) (*CreateTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_task: validation failed: %w", err)
	}

	if cmd.PlannerID != "" {
		p, err := h.plannerRepo.GetByID(ctx, cmd.PlannerID)
		if err != nil {
			return nil, fmt.Errorf("create_task: planner lookup failed: %w", err)
		}
		if p.UserID != cmd.UserID {
			return nil, shared.ErrPlannerNotFound
		}
	}

	priority := shared.ParsePriority(cmd.Priority)

	t, err := task.NewTask(task.NewTaskParams{
		ID:               shared.TaskID(uuid.NewString()),
		UserID:           cmd.UserID,
		PlannerID:        cmd.PlannerID,
		Title:            cmd.Title,
		Description:      cmd.Description,
		Priority:         priority,
		XPReward:         reward.XPForPriority(priority),
		DueDate:          cmd.DueDate,
		EstimatedMinutes: cmd.EstimatedMinutes,
		Tags:             cmd.Tags,
	})
	if err != nil {
		return nil, err
	}

	if err := h.taskRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create_task: failed to create task: %w", err)
	}

	return &CreateTaskResult{Task: t}, nil
}

package task

import (
	"context"
	"time"

	"github.com/planhive/planhive/internal/domain/shared"
)

// StatusCounts aggregates tasks by lifecycle status for the stats query.
type StatusCounts struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
	Cancelled  int
}

// CompletionRate returns the completed share in percent, 0 for no tasks.
func (c StatusCounts) CompletionRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Completed) / float64(c.Total) * 100
}

// Repository defines the task store contract.
type Repository interface {
	// Create creates a new task.
	Create(ctx context.Context, t *Task) error

	// GetByID returns a task by ID.
	// Returns shared.ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id shared.TaskID) (*Task, error)

	// Update persists task changes.
	// Returns shared.ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, t *Task) error

	// Delete removes a task and its subtasks.
	Delete(ctx context.Context, id shared.TaskID) error

	// ListByUser returns a user's tasks, newest first, optionally filtered
	// by planner and status (zero values mean no filter).
	ListByUser(ctx context.Context, userID shared.UserID, filter ListFilter) ([]*Task, error)

	// CountByStatus aggregates a user's tasks by status.
	CountByStatus(ctx context.Context, userID shared.UserID) (StatusCounts, error)

	// CountCompletedSince counts tasks completed at or after the given time.
	CountCompletedSince(ctx context.Context, userID shared.UserID, since time.Time) (int, error)

	// Subtasks
	CreateSubtask(ctx context.Context, s *Subtask) error
	UpdateSubtask(ctx context.Context, s *Subtask) error
	DeleteSubtask(ctx context.Context, id string) error
	ListSubtasks(ctx context.Context, taskID shared.TaskID) ([]*Subtask, error)
	GetSubtask(ctx context.Context, id string) (*Subtask, error)
}

// ListFilter narrows ListByUser results.
type ListFilter struct {
	PlannerID shared.PlannerID
	Status    shared.TaskStatus
	Priority  shared.Priority
}

// Package task contains the task and subtask domain model. Tasks carry a
// frozen XP reward assigned at creation time; the progression engine reads it
// back on completion and never recomputes it from the current priority.
package task

import (
	"errors"
	"strings"
	"time"

	"github.com/planhive/planhive/internal/domain/shared"
)

// Task is a unit of work owned by a user, optionally grouped under a planner.
type Task struct {
	ID          shared.TaskID
	UserID      shared.UserID
	PlannerID   shared.PlannerID // empty when the task is unfiled
	Title       string
	Description string
	Status      shared.TaskStatus
	Priority    shared.Priority

	// XPReward is computed from the priority once, at creation time, and is
	// immutable afterwards. A later priority change does not retroactively
	// alter the reward.
	XPReward shared.XP

	DueDate     *time.Time
	CompletedAt *time.Time

	EstimatedMinutes int
	ActualMinutes    int
	Tags             []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTaskParams contains parameters for creating a new task.
type NewTaskParams struct {
	ID               shared.TaskID
	UserID           shared.UserID
	PlannerID        shared.PlannerID
	Title            string
	Description      string
	Priority         shared.Priority
	XPReward         shared.XP
	DueDate          *time.Time
	EstimatedMinutes int
	Tags             []string
}

// NewTask creates a pending task with a frozen XP reward.
func NewTask(params NewTaskParams) (*Task, error) {
	if !params.ID.IsValid() {
		return nil, shared.ErrInvalidTaskID
	}
	if !params.UserID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, errors.New("task title is required")
	}
	if !params.Priority.IsValid() {
		params.Priority = shared.PriorityMedium
	}
	if !params.XPReward.IsValid() {
		return nil, shared.ErrNegativeReward
	}

	now := time.Now().UTC()

	return &Task{
		ID:               params.ID,
		UserID:           params.UserID,
		PlannerID:        params.PlannerID,
		Title:            title,
		Description:      params.Description,
		Status:           shared.TaskStatusPending,
		Priority:         params.Priority,
		XPReward:         params.XPReward,
		DueDate:          params.DueDate,
		EstimatedMinutes: params.EstimatedMinutes,
		Tags:             params.Tags,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// MarkCompleted transitions the task into completed and stamps the completion
// time. Returns false if the task was already completed, in which case nothing
// changes; the caller uses this as the progression trigger condition.
func (t *Task) MarkCompleted(at time.Time) bool {
	if t.Status.IsCompleted() {
		return false
	}

	t.Status = shared.TaskStatusCompleted
	t.CompletedAt = &at
	t.UpdatedAt = at
	return true
}

// Reopen returns a completed task to pending and clears the completion
// timestamp. Rewards already granted for the completion are not reversed.
func (t *Task) Reopen(at time.Time) {
	t.Status = shared.TaskStatusPending
	t.CompletedAt = nil
	t.UpdatedAt = at
}

// IsOwnedBy reports whether the task belongs to the given user.
func (t *Task) IsOwnedBy(userID shared.UserID) bool {
	return t.UserID == userID
}

// Subtask is a checklist item under a task. Subtasks do not award XP.
type Subtask struct {
	ID        string
	TaskID    shared.TaskID
	Title     string
	Completed bool
	Order     int
	CreatedAt time.Time
}

// NewSubtask creates a subtask.
func NewSubtask(id string, taskID shared.TaskID, title string, order int) (*Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("subtask title is required")
	}
	if !taskID.IsValid() {
		return nil, shared.ErrInvalidTaskID
	}

	return &Subtask{
		ID:        id,
		TaskID:    taskID,
		Title:     title,
		Order:     order,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Toggle flips the completion flag.
func (s *Subtask) Toggle() {
	s.Completed = !s.Completed
}

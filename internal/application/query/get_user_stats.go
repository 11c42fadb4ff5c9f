package query

import (
	"context"
	"fmt"
	"time"

	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/task"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER STATS QUERY
// Per-user dashboard numbers: progress snapshot, task totals by status,
// completion rate, tasks completed in the last seven days.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserStatsQuery contains the stats request parameters.
type GetUserStatsQuery struct {
	// UserID - whose stats to compute.
	UserID shared.UserID
}

// Validate checks the query parameters.
func (q GetUserStatsQuery) Validate() error {
	if !q.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// GetUserStatsResult contains the dashboard numbers.
type GetUserStatsResult struct {
	UserID shared.UserID `json:"user_id"`

	// Progression
	XP             int `json:"xp"`
	TotalXP        int `json:"total_xp"`
	Level          int `json:"level"`
	XPIntoLevel    int `json:"xp_into_level"`
	XPToNextLevel  int `json:"xp_to_next_level"`
	Streak         int `json:"streak"`
	TasksCompleted int `json:"tasks_completed"`

	// Task breakdown
	TotalTasks        int     `json:"total_tasks"`
	PendingTasks      int     `json:"pending_tasks"`
	InProgressTasks   int     `json:"in_progress_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	CancelledTasks    int     `json:"cancelled_tasks"`
	CompletionRate    float64 `json:"completion_rate"`
	CompletedThisWeek int     `json:"completed_this_week"`
}

// GetUserStatsHandler handles the GetUserStatsQuery.
type GetUserStatsHandler struct {
	userRepo user.Repository
	taskRepo task.Repository
	now      func() time.Time
}

// NewGetUserStatsHandler creates a new GetUserStatsHandler.
func NewGetUserStatsHandler(userRepo user.Repository, taskRepo task.Repository) *GetUserStatsHandler {
	return &GetUserStatsHandler{
		userRepo: userRepo,
		taskRepo: taskRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the user stats query.
func (h *GetUserStatsHandler) Handle(ctx context.Context, q GetUserStatsQuery) (*GetUserStatsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := h.userRepo.GetSnapshot(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_user_stats: failed to load snapshot: %w", err)
	}

	counts, err := h.taskRepo.CountByStatus(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_user_stats: failed to count tasks: %w", err)
	}

	weekAgo := h.now().AddDate(0, 0, -7)
	completedThisWeek, err := h.taskRepo.CountCompletedSince(ctx, q.UserID, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("get_user_stats: failed to count weekly completions: %w", err)
	}

	into := reward.XPIntoLevel(snapshot.TotalXP)

	return &GetUserStatsResult{
		UserID:            q.UserID,
		XP:                snapshot.XP.Int(),
		TotalXP:           snapshot.TotalXP.Int(),
		Level:             snapshot.Level.Int(),
		XPIntoLevel:       into.Int(),
		XPToNextLevel:     (reward.XPPerLevel - into).Int(),
		Streak:            snapshot.Streak,
		TasksCompleted:    snapshot.TasksCompleted,
		TotalTasks:        counts.Total,
		PendingTasks:      counts.Pending,
		InProgressTasks:   counts.InProgress,
		CompletedTasks:    counts.Completed,
		CancelledTasks:    counts.Cancelled,
		CompletionRate:    counts.CompletionRate(),
		CompletedThisWeek: completedThisWeek,
	}, nil
}

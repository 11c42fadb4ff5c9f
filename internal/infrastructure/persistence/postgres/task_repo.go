package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TaskRepository implements task.Repository for PostgreSQL.
type TaskRepository struct {
	conn *Connection
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(conn *Connection) *TaskRepository {
	return &TaskRepository{conn: conn}
}

const taskColumns = `id, user_id, planner_id, title, description, status, priority,
	   xp_reward, due_date, completed_at, estimated_minutes, actual_minutes, tags,
	   created_at, updated_at`

// Create creates a new task.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	query := `
		INSERT INTO tasks (
			id, user_id, planner_id, title, description, status, priority,
			xp_reward, due_date, completed_at, estimated_minutes, actual_minutes, tags,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.conn.Exec(ctx, query,
		t.ID.String(),
		t.UserID.String(),
		nullablePlannerID(t.PlannerID),
		t.Title,
		t.Description,
		t.Status.String(),
		t.Priority.String(),
		t.XPReward.Int(),
		t.DueDate,
		t.CompletedAt,
		t.EstimatedMinutes,
		t.ActualMinutes,
		t.Tags,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID returns a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, id shared.TaskID) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.conn.QueryRow(ctx, query, id.String()))
}

// Update persists task changes. The frozen xp_reward is deliberately not in
// the SET list.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	query := `
		UPDATE tasks SET
			planner_id = $1,
			title = $2,
			description = $3,
			status = $4,
			priority = $5,
			due_date = $6,
			completed_at = $7,
			estimated_minutes = $8,
			actual_minutes = $9,
			tags = $10
		WHERE id = $11
	`

	result, err := r.conn.Exec(ctx, query,
		nullablePlannerID(t.PlannerID),
		t.Title,
		t.Description,
		t.Status.String(),
		t.Priority.String(),
		t.DueDate,
		t.CompletedAt,
		t.EstimatedMinutes,
		t.ActualMinutes,
		t.Tags,
		t.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrTaskNotFound
	}

	return nil
}

// Delete removes a task and, via cascade, its subtasks.
func (r *TaskRepository) Delete(ctx context.Context, id shared.TaskID) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrTaskNotFound
	}
	return nil
}

// ListByUser returns a user's tasks, newest first, optionally filtered.
func (r *TaskRepository) ListByUser(ctx context.Context, userID shared.UserID, filter task.ListFilter) ([]*task.Task, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`)

	args := []interface{}{userID.String()}
	if filter.PlannerID != "" {
		args = append(args, filter.PlannerID.String())
		fmt.Fprintf(&sb, " AND planner_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status.String())
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority.String())
		fmt.Fprintf(&sb, " AND priority = $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC")

	rows, err := r.conn.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CountByStatus aggregates a user's tasks by status.
func (r *TaskRepository) CountByStatus(ctx context.Context, userID shared.UserID) (task.StatusCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM tasks
		WHERE user_id = $1
	`

	var c task.StatusCounts
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(
		&c.Total, &c.Pending, &c.InProgress, &c.Completed, &c.Cancelled,
	)
	if err != nil {
		return task.StatusCounts{}, fmt.Errorf("failed to count tasks: %w", err)
	}
	return c, nil
}

// CountCompletedSince counts tasks completed at or after the given time.
func (r *TaskRepository) CountCompletedSince(ctx context.Context, userID shared.UserID, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE user_id = $1 AND completed_at IS NOT NULL AND completed_at >= $2
	`

	var n int
	if err := r.conn.QueryRow(ctx, query, userID.String(), since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Subtasks
// ─────────────────────────────────────────────────────────────────────────────

// CreateSubtask creates a subtask.
func (r *TaskRepository) CreateSubtask(ctx context.Context, s *task.Subtask) error {
	query := `
		INSERT INTO subtasks (id, task_id, title, completed, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID, s.TaskID.String(), s.Title, s.Completed, s.Order, s.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrTaskNotFound
		}
		return fmt.Errorf("failed to create subtask: %w", err)
	}
	return nil
}

// UpdateSubtask persists subtask changes.
func (r *TaskRepository) UpdateSubtask(ctx context.Context, s *task.Subtask) error {
	query := `UPDATE subtasks SET title = $1, completed = $2, sort_order = $3 WHERE id = $4`

	result, err := r.conn.Exec(ctx, query, s.Title, s.Completed, s.Order, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update subtask: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrSubtaskNotFound
	}
	return nil
}

// DeleteSubtask removes a subtask.
func (r *TaskRepository) DeleteSubtask(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subtask: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrSubtaskNotFound
	}
	return nil
}

// GetSubtask returns a subtask by ID.
func (r *TaskRepository) GetSubtask(ctx context.Context, id string) (*task.Subtask, error) {
	query := `SELECT id, task_id, title, completed, sort_order, created_at FROM subtasks WHERE id = $1`

	var s task.Subtask
	var taskID string
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&s.ID, &taskID, &s.Title, &s.Completed, &s.Order, &s.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSubtaskNotFound
		}
		return nil, fmt.Errorf("failed to scan subtask: %w", err)
	}
	s.TaskID = shared.TaskID(taskID)
	return &s, nil
}

// ListSubtasks returns a task's subtasks in display order.
func (r *TaskRepository) ListSubtasks(ctx context.Context, taskID shared.TaskID) ([]*task.Subtask, error) {
	query := `
		SELECT id, task_id, title, completed, sort_order, created_at
		FROM subtasks
		WHERE task_id = $1
		ORDER BY sort_order, created_at
	`

	rows, err := r.conn.Query(ctx, query, taskID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []*task.Subtask
	for rows.Next() {
		var s task.Subtask
		var tid string
		if err := rows.Scan(&s.ID, &tid, &s.Title, &s.Completed, &s.Order, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subtask: %w", err)
		}
		s.TaskID = shared.TaskID(tid)
		subtasks = append(subtasks, &s)
	}
	return subtasks, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanTask(row pgx.Row) (*task.Task, error) {
	var t task.Task
	var id, userID, status, priority string
	var plannerID *string
	var xpReward int

	err := row.Scan(
		&id,
		&userID,
		&plannerID,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&xpReward,
		&t.DueDate,
		&t.CompletedAt,
		&t.EstimatedMinutes,
		&t.ActualMinutes,
		&t.Tags,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	t.ID = shared.TaskID(id)
	t.UserID = shared.UserID(userID)
	if plannerID != nil {
		t.PlannerID = shared.PlannerID(*plannerID)
	}
	t.Status = shared.TaskStatus(status)
	t.Priority = shared.Priority(priority)
	t.XPReward = shared.XP(xpReward)

	return &t, nil
}

// nullablePlannerID maps the empty planner ID to SQL NULL.
func nullablePlannerID(id shared.PlannerID) *string {
	if id == "" {
		return nil
	}
	s := id.String()
	return &s
}

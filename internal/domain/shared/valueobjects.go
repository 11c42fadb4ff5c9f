// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier (UUID format).
type UserID string

// IsValid checks if the user ID is non-empty.
func (u UserID) IsValid() bool {
	return len(u) > 0
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if !uid.IsValid() {
		return "", ErrInvalidUserID
	}
	return uid, nil
}

// TaskID represents a unique task identifier.
type TaskID string

// IsValid checks if the task ID is non-empty.
func (t TaskID) IsValid() bool {
	return len(t) > 0
}

// String returns the string representation.
func (t TaskID) String() string {
	return string(t)
}

// PlannerID represents a unique planner identifier.
type PlannerID string

// IsValid checks if the planner ID is non-empty.
func (p PlannerID) IsValid() bool {
	return len(p) > 0
}

// String returns the string representation.
func (p PlannerID) String() string {
	return string(p)
}

// AchievementID identifies an achievement definition in the reward catalog.
type AchievementID string

// IsValid checks if the achievement ID is non-empty.
func (a AchievementID) IsValid() bool {
	return len(a) > 0
}

// String returns the string representation.
func (a AchievementID) String() string {
	return string(a)
}

// Email represents a user email address.
type Email string

// Loose format check; real verification is the auth collaborator's job.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValid checks if the email has a plausible format.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// Normalize returns a normalized (lowercase, trimmed) version of the email.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// NewEmail creates a new Email with validation.
func NewEmail(raw string) (Email, error) {
	e := Email(raw).Normalize()
	if !e.IsValid() {
		return "", ErrInvalidEmail
	}
	return e, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Gamification Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points. XP is never negative.
type XP int

// IsValid checks that the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add returns the sum of two XP values.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Level represents a user level derived from lifetime XP. Levels start at 1.
type Level int

// IsValid checks that the level is at least 1.
func (l Level) IsValid() bool {
	return l >= 1
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// Priority represents the priority assigned to a task.
type Priority string

const (
	// PriorityLow is for tasks that can wait.
	PriorityLow Priority = "low"
	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"
	// PriorityHigh is for tasks that should be done soon.
	PriorityHigh Priority = "high"
	// PriorityUrgent is for tasks that cannot wait.
	PriorityUrgent Priority = "urgent"
)

// IsValid checks that the priority is one of the known values.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p Priority) String() string {
	return string(p)
}

// ParsePriority parses a string into a Priority. Unknown values fall back to
// medium so that imported or legacy tasks still earn the default reward.
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return PriorityMedium
	}
	return p
}

// TaskStatus represents the lifecycle status of a task.
type TaskStatus string

const (
	// TaskStatusPending means the task has not been started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress means the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted means the task is done. Entering this status from a
	// non-completed status is the only trigger for a progression transaction.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusCancelled means the task was abandoned.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsValid checks that the status is one of the known values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsCompleted returns true for the completed status.
func (s TaskStatus) IsCompleted() bool {
	return s == TaskStatusCompleted
}

// String returns the string representation.
func (s TaskStatus) String() string {
	return string(s)
}

// RequirementKind identifies which progress counter an achievement gates on.
// All known requirement kinds are monotonic: once satisfied, they stay satisfied.
type RequirementKind string

const (
	// RequirementTasksCompleted gates on the lifetime completed-task counter.
	RequirementTasksCompleted RequirementKind = "tasks_completed"
	// RequirementStreak gates on the consecutive-day streak counter.
	RequirementStreak RequirementKind = "streak"
	// RequirementLevel gates on the derived level.
	RequirementLevel RequirementKind = "level"
	// RequirementPlannersCreated gates on the lifetime planner counter.
	RequirementPlannersCreated RequirementKind = "planners_created"
)

// IsValid checks that the requirement kind is recognized. The evaluator
// treats unrecognized kinds as never satisfied, not as an error.
func (k RequirementKind) IsValid() bool {
	switch k {
	case RequirementTasksCompleted, RequirementStreak, RequirementLevel, RequirementPlannersCreated:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k RequirementKind) String() string {
	return string(k)
}

// FormatXP renders an XP amount for logs and messages.
func FormatXP(x XP) string {
	return fmt.Sprintf("%d XP", int(x))
}

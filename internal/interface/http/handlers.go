package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/planhive/planhive/internal/application/command"
	"github.com/planhive/planhive/internal/application/query"
	"github.com/planhive/planhive/internal/domain/planner"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/task"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY
// ══════════════════════════════════════════════════════════════════════════════

// userIDHeader carries the verified user identity set by the upstream gateway.
const userIDHeader = "X-User-ID"

// requireUserID extracts the authenticated user, writing 401 when absent.
func requireUserID(w http.ResponseWriter, r *http.Request) (shared.UserID, bool) {
	id := shared.UserID(r.Header.Get(userIDHeader))
	if !id.IsValid() {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid user identity")
		return "", false
	}
	return id, true
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON")
		return false
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// progressDTO is the wire form of a progress snapshot.
type progressDTO struct {
	XP              int `json:"xp"`
	TotalXP         int `json:"total_xp"`
	Level           int `json:"level"`
	Streak          int `json:"streak"`
	TasksCompleted  int `json:"tasks_completed"`
	PlannersCreated int `json:"planners_created"`
}

func toProgressDTO(s user.ProgressSnapshot) progressDTO {
	return progressDTO{
		XP:              s.XP.Int(),
		TotalXP:         s.TotalXP.Int(),
		Level:           s.Level.Int(),
		Streak:          s.Streak,
		TasksCompleted:  s.TasksCompleted,
		PlannersCreated: s.PlannersCreated,
	}
}

// taskDTO is the wire form of a task.
type taskDTO struct {
	ID               string     `json:"id"`
	PlannerID        string     `json:"planner_id,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	XPReward         int        `json:"xp_reward"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toTaskDTO(t *task.Task) taskDTO {
	return taskDTO{
		ID:               t.ID.String(),
		PlannerID:        t.PlannerID.String(),
		Title:            t.Title,
		Description:      t.Description,
		Status:           t.Status.String(),
		Priority:         t.Priority.String(),
		XPReward:         t.XPReward.Int(),
		DueDate:          t.DueDate,
		CompletedAt:      t.CompletedAt,
		EstimatedMinutes: t.EstimatedMinutes,
		Tags:             t.Tags,
		CreatedAt:        t.CreatedAt,
	}
}

// plannerDTO is the wire form of a planner.
type plannerDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	Description string    `json:"description,omitempty"`
	IsFavorite  bool      `json:"is_favorite"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPlannerDTO(p *planner.Planner) plannerDTO {
	return plannerDTO{
		ID:          p.ID.String(),
		Name:        p.Name,
		Kind:        p.Kind.String(),
		Color:       p.Color,
		Icon:        p.Icon,
		Description: p.Description,
		IsFavorite:  p.IsFavorite,
		CreatedAt:   p.CreatedAt,
	}
}

func achievementIDs(ids []shared.AchievementID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.deps.HealthChecks))
	healthy := true

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, check := range s.deps.HealthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"healthy": healthy,
		"uptime":  s.Uptime().String(),
		"checks":  checks,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.handleHealth(w, r)
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.deps.RegisterUser.Handle(r.Context(), command.RegisterUserCommand{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":  result.UserID.String(),
		"email":    result.Email.String(),
		"username": result.Username,
		"progress": toProgressDTO(result.Progress),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createTaskRequest struct {
	PlannerID        string     `json:"planner_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Priority         string     `json:"priority"`
	DueDate          *time.Time `json:"due_date"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Tags             []string   `json:"tags"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.deps.CreateTask.Handle(r.Context(), command.CreateTaskCommand{
		UserID:           userID,
		PlannerID:        shared.PlannerID(req.PlannerID),
		Title:            req.Title,
		Description:      req.Description,
		Priority:         req.Priority,
		DueDate:          req.DueDate,
		EstimatedMinutes: req.EstimatedMinutes,
		Tags:             req.Tags,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskDTO(result.Task))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter := task.ListFilter{
		PlannerID: shared.PlannerID(r.URL.Query().Get("planner_id")),
		Status:    shared.TaskStatus(r.URL.Query().Get("status")),
		Priority:  shared.Priority(r.URL.Query().Get("priority")),
	}

	tasks, err := s.deps.TaskRepo.ListByUser(r.Context(), userID, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]taskDTO, len(tasks))
	for i, t := range tasks {
		dtos[i] = toTaskDTO(t)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": dtos,
		"total": len(dtos),
	})
}

type setCompletionRequest struct {
	Completed bool `json:"completed"`
}

func (s *Server) handleSetTaskCompletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req setCompletionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.deps.SetTaskCompletion.Handle(r.Context(), command.SetTaskCompletionCommand{
		UserID:    userID,
		TaskID:    shared.TaskID(r.PathValue("id")),
		Completed: req.Completed,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task":           toTaskDTO(result.Task),
		"awarded":        result.Awarded,
		"xp_awarded":     result.XPAwarded.Int(),
		"newly_unlocked": achievementIDs(result.NewlyUnlocked),
		"progress":       toProgressDTO(result.Progress),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PLANNER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createPlannerRequest struct {
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	Color           string `json:"color"`
	Icon            string `json:"icon"`
	Description     string `json:"description"`
	TargetFrequency int    `json:"target_frequency"`
	TargetValue     int    `json:"target_value"`
}

func (s *Server) handleCreatePlanner(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createPlannerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.deps.CreatePlanner.Handle(r.Context(), command.CreatePlannerCommand{
		UserID:          userID,
		Name:            req.Name,
		Kind:            req.Kind,
		Color:           req.Color,
		Icon:            req.Icon,
		Description:     req.Description,
		TargetFrequency: req.TargetFrequency,
		TargetValue:     req.TargetValue,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"planner":        toPlannerDTO(result.Planner),
		"newly_unlocked": achievementIDs(result.NewlyUnlocked),
		"progress":       toProgressDTO(result.Progress),
	})
}

func (s *Server) handleListPlanners(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	kind := planner.Kind(r.URL.Query().Get("kind"))

	planners, err := s.deps.PlannerRepo.ListByUser(r.Context(), userID, kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]plannerDTO, len(planners))
	for i, p := range planners {
		dtos[i] = toPlannerDTO(p)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"planners": dtos,
		"total":    len(dtos),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	result, err := s.deps.GetAchievements.Handle(r.Context(), query.GetAchievementsQuery{UserID: userID})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUnlockAchievement(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	result, err := s.deps.UnlockAchievement.Handle(r.Context(), command.UnlockAchievementCommand{
		UserID:        userID,
		AchievementID: shared.AchievementID(r.PathValue("id")),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"unlocked":   result.Unlocked,
		"xp_awarded": result.XPAwarded.Int(),
		"progress":   toProgressDTO(result.Progress),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD AND STATS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", 0)

	result, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{Limit: limit})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetMyRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rank, err := s.deps.BoardRepo.RankOf(r.Context(), userID)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"rank": rank})
}

func (s *Server) handleGetMyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	result, err := s.deps.GetUserStats.Handle(r.Context(), query.GetUserStatsQuery{UserID: userID})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

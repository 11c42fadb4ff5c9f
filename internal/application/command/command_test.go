package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/planhive/planhive/internal/application/progression"
	"github.com/planhive/planhive/internal/domain/planner"
	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/task"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// ══════════════════════════════════════════════════════════════════════════════

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[shared.UserID]*user.User
	byEmail map[shared.Email]*user.User
	unlocks map[shared.UserID][]reward.Unlock
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byID:    make(map[shared.UserID]*user.User),
		byEmail: make(map[shared.Email]*user.User),
		unlocks: make(map[shared.UserID][]reward.Unlock),
	}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return shared.ErrUserAlreadyExists
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id shared.UserID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email shared.Email) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	r.byID[u.ID] = u
	return nil
}

func (r *memUserRepo) GetSnapshot(_ context.Context, id shared.UserID) (user.ProgressSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return user.ProgressSnapshot{}, shared.ErrUserNotFound
	}
	return u.Progress, nil
}

func (r *memUserRepo) IncrementPlannersCreated(_ context.Context, id shared.UserID) (user.ProgressSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return user.ProgressSnapshot{}, shared.ErrUserNotFound
	}
	u.Progress.PlannersCreated++
	return u.Progress, nil
}

// memStore adapts the user fake into the progression store contract.
type memStore struct {
	users    *memUserRepo
	failNext error
}

func (s *memStore) LoadSnapshot(ctx context.Context, userID shared.UserID) (user.ProgressSnapshot, error) {
	return s.users.GetSnapshot(ctx, userID)
}

func (s *memStore) LoadUnlocked(_ context.Context, userID shared.UserID) ([]shared.AchievementID, error) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	ids := make([]shared.AchievementID, 0)
	for _, u := range s.users.unlocks[userID] {
		ids = append(ids, u.AchievementID)
	}
	return ids, nil
}

func (s *memStore) Commit(_ context.Context, snapshot user.ProgressSnapshot, unlocks []reward.Unlock) error {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	u, ok := s.users.byID[snapshot.UserID]
	if !ok {
		return shared.ErrUserNotFound
	}
	u.Progress = snapshot
	s.users.unlocks[snapshot.UserID] = append(s.users.unlocks[snapshot.UserID], unlocks...)
	return nil
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[shared.TaskID]*task.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[shared.TaskID]*task.Task)}
}

func (r *memTaskRepo) Create(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id shared.TaskID) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, shared.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTaskRepo) Update(_ context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return shared.ErrTaskNotFound
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *memTaskRepo) Delete(_ context.Context, id shared.TaskID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return nil
}

func (r *memTaskRepo) ListByUser(_ context.Context, userID shared.UserID, _ task.ListFilter) ([]*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*task.Task
	for _, t := range r.tasks {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memTaskRepo) CountByStatus(_ context.Context, userID shared.UserID) (task.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c task.StatusCounts
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		c.Total++
		switch t.Status {
		case shared.TaskStatusPending:
			c.Pending++
		case shared.TaskStatusInProgress:
			c.InProgress++
		case shared.TaskStatusCompleted:
			c.Completed++
		case shared.TaskStatusCancelled:
			c.Cancelled++
		}
	}
	return c, nil
}

func (r *memTaskRepo) CountCompletedSince(_ context.Context, userID shared.UserID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if t.UserID == userID && t.CompletedAt != nil && !t.CompletedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memTaskRepo) CreateSubtask(context.Context, *task.Subtask) error        { return nil }
func (r *memTaskRepo) UpdateSubtask(context.Context, *task.Subtask) error        { return nil }
func (r *memTaskRepo) DeleteSubtask(context.Context, string) error               { return nil }
func (r *memTaskRepo) GetSubtask(context.Context, string) (*task.Subtask, error) { return nil, nil }
func (r *memTaskRepo) ListSubtasks(context.Context, shared.TaskID) ([]*task.Subtask, error) {
	return nil, nil
}

type memPlannerRepo struct {
	mu       sync.Mutex
	planners map[shared.PlannerID]*planner.Planner
}

func newMemPlannerRepo() *memPlannerRepo {
	return &memPlannerRepo{planners: make(map[shared.PlannerID]*planner.Planner)}
}

func (r *memPlannerRepo) Create(_ context.Context, p *planner.Planner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.planners[p.ID] = p
	return nil
}

func (r *memPlannerRepo) GetByID(_ context.Context, id shared.PlannerID) (*planner.Planner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.planners[id]
	if !ok {
		return nil, shared.ErrPlannerNotFound
	}
	return p, nil
}

func (r *memPlannerRepo) Update(_ context.Context, p *planner.Planner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.planners[p.ID] = p
	return nil
}

func (r *memPlannerRepo) Delete(_ context.Context, id shared.PlannerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.planners, id)
	return nil
}

func (r *memPlannerRepo) ListByUser(_ context.Context, userID shared.UserID, _ planner.Kind) ([]*planner.Planner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*planner.Planner
	for _, p := range r.planners {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPlannerRepo) CountByUser(_ context.Context, userID shared.UserID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.planners {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

func seedAccount(t *testing.T, users *memUserRepo, id shared.UserID) *user.User {
	t.Helper()
	u, err := user.NewUser(user.NewUserParams{
		ID:           id,
		Email:        shared.Email(string(id) + "@planhive.dev"),
		Username:     string(id),
		PasswordHash: "x",
	})
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func testCoordinator(t *testing.T, users *memUserRepo) *progression.Coordinator {
	t.Helper()
	return progression.NewCoordinator(&memStore{users: users}, reward.DefaultCatalog(), nil, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestRegisterUser(t *testing.T) {
	users := newMemUserRepo()
	h := NewRegisterUserHandler(users, nil)

	res, err := h.Handle(context.Background(), RegisterUserCommand{
		Email:    "Ada@PlanHive.dev",
		Username: "ada",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.Equal(t, shared.Email("ada@planhive.dev"), res.Email)
	assert.Equal(t, shared.Level(1), res.Progress.Level)
	assert.Equal(t, shared.XP(0), res.Progress.TotalXP)

	stored, err := users.GetByEmail(context.Background(), res.Email)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse")))

	_, err = h.Handle(context.Background(), RegisterUserCommand{
		Email:    "ada@planhive.dev",
		Username: "ada2",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, shared.ErrUserAlreadyExists)
}

func TestRegisterUser_RejectsShortPassword(t *testing.T) {
	h := NewRegisterUserHandler(newMemUserRepo(), nil)

	_, err := h.Handle(context.Background(), RegisterUserCommand{
		Email:    "ada@planhive.dev",
		Username: "ada",
		Password: "short",
	})
	assert.Error(t, err)
}

func TestCreateTask_FreezesXPFromPriority(t *testing.T) {
	tasks := newMemTaskRepo()
	h := NewCreateTaskHandler(tasks, newMemPlannerRepo())

	tests := []struct {
		priority string
		want     shared.XP
	}{
		{"low", 5},
		{"medium", 10},
		{"high", 20},
		{"urgent", 30},
		{"someday", 10},
		{"", 10},
	}

	for _, tt := range tests {
		res, err := h.Handle(context.Background(), CreateTaskCommand{
			UserID:   "u1",
			Title:    "write report",
			Priority: tt.priority,
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Task.XPReward, "priority=%q", tt.priority)
		assert.Equal(t, shared.TaskStatusPending, res.Task.Status)
	}
}

func TestCreateTask_RejectsForeignPlanner(t *testing.T) {
	planners := newMemPlannerRepo()
	p, err := planner.NewPlanner(planner.NewPlannerParams{ID: "p1", UserID: "other", Name: "theirs"})
	require.NoError(t, err)
	require.NoError(t, planners.Create(context.Background(), p))

	h := NewCreateTaskHandler(newMemTaskRepo(), planners)

	_, err = h.Handle(context.Background(), CreateTaskCommand{
		UserID:    "u1",
		PlannerID: "p1",
		Title:     "sneaky",
	})
	assert.ErrorIs(t, err, shared.ErrPlannerNotFound)
}

func TestSetTaskCompletion_ToggleBoundary(t *testing.T) {
	users := newMemUserRepo()
	seedAccount(t, users, "u1")
	tasks := newMemTaskRepo()
	coord := testCoordinator(t, users)

	create := NewCreateTaskHandler(tasks, newMemPlannerRepo())
	toggle := NewSetTaskCompletionHandler(tasks, coord, nil)

	created, err := create.Handle(context.Background(), CreateTaskCommand{
		UserID: "u1", Title: "ship release", Priority: "high",
	})
	require.NoError(t, err)
	taskID := created.Task.ID

	// First completion pays the frozen 20 XP and unlocks first_step (+50).
	res, err := toggle.Handle(context.Background(), SetTaskCompletionCommand{
		UserID: "u1", TaskID: taskID, Completed: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Awarded)
	assert.Equal(t, shared.XP(70), res.XPAwarded)
	assert.Equal(t, shared.XP(70), res.Progress.TotalXP)
	assert.Equal(t, 1, res.Progress.TasksCompleted)
	assert.Contains(t, res.NewlyUnlocked, shared.AchievementID("first_step"))

	// Completing an already-completed task is a no-op.
	res, err = toggle.Handle(context.Background(), SetTaskCompletionCommand{
		UserID: "u1", TaskID: taskID, Completed: true,
	})
	require.NoError(t, err)
	assert.False(t, res.Awarded)

	snap, err := users.GetSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, shared.XP(70), snap.TotalXP, "no double payout")

	// Reopening never claws anything back.
	res, err = toggle.Handle(context.Background(), SetTaskCompletionCommand{
		UserID: "u1", TaskID: taskID, Completed: false,
	})
	require.NoError(t, err)
	assert.False(t, res.Awarded)
	assert.Equal(t, shared.TaskStatusPending, res.Task.Status)
	assert.Nil(t, res.Task.CompletedAt)

	snap, err = users.GetSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, shared.XP(70), snap.TotalXP)
	assert.Equal(t, 1, snap.TasksCompleted)

	// A fresh transition into completed pays again; first_step stays unique.
	res, err = toggle.Handle(context.Background(), SetTaskCompletionCommand{
		UserID: "u1", TaskID: taskID, Completed: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Awarded)
	assert.Equal(t, shared.XP(20), res.XPAwarded)
	assert.Equal(t, shared.XP(90), res.Progress.TotalXP)
	assert.Equal(t, 2, res.Progress.TasksCompleted)
	assert.Empty(t, res.NewlyUnlocked)
}

func TestSetTaskCompletion_RevertsTaskWhenProgressionFails(t *testing.T) {
	users := newMemUserRepo()
	seedAccount(t, users, "u1")
	tasks := newMemTaskRepo()
	store := &memStore{users: users, failNext: errors.New("connection reset")}
	coord := progression.NewCoordinator(store, reward.DefaultCatalog(), nil, nil)

	create := NewCreateTaskHandler(tasks, newMemPlannerRepo())
	toggle := NewSetTaskCompletionHandler(tasks, coord, nil)

	created, err := create.Handle(context.Background(), CreateTaskCommand{
		UserID: "u1", Title: "ship release", Priority: "urgent",
	})
	require.NoError(t, err)
	taskID := created.Task.ID

	_, err = toggle.Handle(context.Background(), SetTaskCompletionCommand{
		UserID: "u1", TaskID: taskID, Completed: true,
	})
	require.Error(t, err)

	// The failed payout reverted the completion; nothing landed on either side.
	stored, err := tasks.GetByID(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, shared.TaskStatusPending, stored.Status)
	assert.Nil(t, stored.CompletedAt)

	snap, err := users.GetSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, shared.XP(0), snap.TotalXP)
	assert.Equal(t, 0, snap.TasksCompleted)

	// A retry crosses the completion boundary again and pays the frozen XP.
	res, err := toggle.Handle(context.Background(), SetTaskCompletionCommand{
		UserID: "u1", TaskID: taskID, Completed: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Awarded)
	assert.Equal(t, 1, res.Progress.TasksCompleted)
	assert.Equal(t, shared.XP(80), res.Progress.TotalXP, "30 XP urgent reward plus first_step bonus")
}

func TestSetTaskCompletion_OwnershipEnforced(t *testing.T) {
	users := newMemUserRepo()
	seedAccount(t, users, "u1")
	seedAccount(t, users, "intruder")
	tasks := newMemTaskRepo()

	create := NewCreateTaskHandler(tasks, newMemPlannerRepo())
	toggle := NewSetTaskCompletionHandler(tasks, testCoordinator(t, users), nil)

	created, err := create.Handle(context.Background(), CreateTaskCommand{
		UserID: "u1", Title: "private", Priority: "low",
	})
	require.NoError(t, err)

	_, err = toggle.Handle(context.Background(), SetTaskCompletionCommand{
		UserID: "intruder", TaskID: created.Task.ID, Completed: true,
	})
	assert.ErrorIs(t, err, shared.ErrTaskNotOwned)
}

func TestCreatePlanner_BumpsCounterAndUnlocks(t *testing.T) {
	users := newMemUserRepo()
	seedAccount(t, users, "u1")
	planners := newMemPlannerRepo()

	h := NewCreatePlannerHandler(planners, users, testCoordinator(t, users), nil)

	res, err := h.Handle(context.Background(), CreatePlannerCommand{
		UserID: "u1",
		Name:   "Morning Routine",
		Kind:   "daily",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Progress.PlannersCreated)
	assert.Contains(t, res.NewlyUnlocked, shared.AchievementID("planner_creator"))
	assert.Equal(t, shared.XP(50), res.Progress.TotalXP, "planner_creator pays 50 XP")
	assert.Equal(t, planner.KindDaily, res.Planner.Kind)
	assert.Equal(t, "#6B46C1", res.Planner.Color)
}

func TestUnlockAchievement(t *testing.T) {
	users := newMemUserRepo()
	seedAccount(t, users, "u1")
	h := NewUnlockAchievementHandler(testCoordinator(t, users))

	res, err := h.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u1",
		AchievementID: "on_fire",
	})
	require.NoError(t, err)
	assert.True(t, res.Unlocked)
	assert.Equal(t, shared.XP(200), res.XPAwarded)
	assert.Equal(t, shared.Level(3), res.Progress.Level)

	// Idempotent on repeat.
	res, err = h.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u1",
		AchievementID: "on_fire",
	})
	require.NoError(t, err)
	assert.False(t, res.Unlocked)
	assert.Equal(t, shared.XP(0), res.XPAwarded)

	_, err = h.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u1",
		AchievementID: "no_such_badge",
	})
	assert.ErrorIs(t, err, shared.ErrAchievementNotFound)
}

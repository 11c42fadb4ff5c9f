package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhive/planhive/internal/domain/leaderboard"
	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/task"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST DOUBLES
// ══════════════════════════════════════════════════════════════════════════════

type stubUnlockRepo struct {
	unlocks []reward.Unlock
}

func (r *stubUnlockRepo) ListByUser(context.Context, shared.UserID) ([]reward.Unlock, error) {
	return r.unlocks, nil
}

func (r *stubUnlockRepo) ListIDsByUser(context.Context, shared.UserID) ([]shared.AchievementID, error) {
	ids := make([]shared.AchievementID, 0, len(r.unlocks))
	for _, u := range r.unlocks {
		ids = append(ids, u.AchievementID)
	}
	return ids, nil
}

func (r *stubUnlockRepo) Exists(_ context.Context, _ shared.UserID, id shared.AchievementID) (bool, error) {
	for _, u := range r.unlocks {
		if u.AchievementID == id {
			return true, nil
		}
	}
	return false, nil
}

type stubBoardRepo struct {
	entries []leaderboard.Entry
	reads   int
}

func (r *stubBoardRepo) TopN(_ context.Context, n int) ([]leaderboard.Entry, error) {
	r.reads++
	ranked := leaderboard.Rank(r.entries)
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (r *stubBoardRepo) RankOf(context.Context, shared.UserID) (int, error) {
	return 0, shared.ErrUserNotFound
}

// cancelSensitiveBoardRepo fails reads once the given context is cancelled.
type cancelSensitiveBoardRepo struct {
	stubBoardRepo
}

func (r *cancelSensitiveBoardRepo) TopN(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.stubBoardRepo.TopN(ctx, n)
}

type stubCache struct {
	pages map[int][]leaderboard.Entry
	err   error
	sets  int
}

func newStubCache() *stubCache {
	return &stubCache{pages: make(map[int][]leaderboard.Entry)}
}

func (c *stubCache) GetTop(_ context.Context, limit int) ([]leaderboard.Entry, error) {
	if c.err != nil {
		return nil, c.err
	}
	page, ok := c.pages[limit]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return page, nil
}

func (c *stubCache) SetTop(_ context.Context, limit int, entries []leaderboard.Entry) error {
	c.sets++
	c.pages[limit] = entries
	return nil
}

type stubUserRepo struct {
	snapshot user.ProgressSnapshot
}

func (r *stubUserRepo) Create(context.Context, *user.User) error { return nil }
func (r *stubUserRepo) GetByID(context.Context, shared.UserID) (*user.User, error) {
	return nil, shared.ErrUserNotFound
}
func (r *stubUserRepo) GetByEmail(context.Context, shared.Email) (*user.User, error) {
	return nil, shared.ErrUserNotFound
}
func (r *stubUserRepo) Update(context.Context, *user.User) error { return nil }
func (r *stubUserRepo) GetSnapshot(context.Context, shared.UserID) (user.ProgressSnapshot, error) {
	return r.snapshot, nil
}
func (r *stubUserRepo) IncrementPlannersCreated(context.Context, shared.UserID) (user.ProgressSnapshot, error) {
	return r.snapshot, nil
}

type stubTaskRepo struct {
	counts   task.StatusCounts
	thisWeek int
}

func (r *stubTaskRepo) Create(context.Context, *task.Task) error { return nil }
func (r *stubTaskRepo) GetByID(context.Context, shared.TaskID) (*task.Task, error) {
	return nil, shared.ErrTaskNotFound
}
func (r *stubTaskRepo) Update(context.Context, *task.Task) error    { return nil }
func (r *stubTaskRepo) Delete(context.Context, shared.TaskID) error { return nil }
func (r *stubTaskRepo) ListByUser(context.Context, shared.UserID, task.ListFilter) ([]*task.Task, error) {
	return nil, nil
}
func (r *stubTaskRepo) CountByStatus(context.Context, shared.UserID) (task.StatusCounts, error) {
	return r.counts, nil
}
func (r *stubTaskRepo) CountCompletedSince(context.Context, shared.UserID, time.Time) (int, error) {
	return r.thisWeek, nil
}
func (r *stubTaskRepo) CreateSubtask(context.Context, *task.Subtask) error        { return nil }
func (r *stubTaskRepo) UpdateSubtask(context.Context, *task.Subtask) error        { return nil }
func (r *stubTaskRepo) DeleteSubtask(context.Context, string) error               { return nil }
func (r *stubTaskRepo) GetSubtask(context.Context, string) (*task.Subtask, error) { return nil, nil }
func (r *stubTaskRepo) ListSubtasks(context.Context, shared.TaskID) ([]*task.Subtask, error) {
	return nil, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetAchievements_FlagsUnlocked(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	unlocks := &stubUnlockRepo{unlocks: []reward.Unlock{
		{ID: "r1", UserID: "u1", AchievementID: "first_step", UnlockedAt: at},
	}}

	h := NewGetAchievementsHandler(reward.DefaultCatalog(), unlocks)

	res, err := h.Handle(context.Background(), GetAchievementsQuery{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, 10, res.Total)
	assert.Equal(t, 1, res.UnlockedNum)

	// Catalog order is preserved and the unlock state is overlaid.
	assert.Equal(t, shared.AchievementID("first_step"), res.Achievements[0].ID)
	assert.True(t, res.Achievements[0].Unlocked)
	require.NotNil(t, res.Achievements[0].UnlockedAt)
	assert.Equal(t, at, *res.Achievements[0].UnlockedAt)

	assert.False(t, res.Achievements[1].Unlocked)
	assert.Nil(t, res.Achievements[1].UnlockedAt)
}

func TestGetLeaderboard_OrdersByTotalXP(t *testing.T) {
	source := &stubBoardRepo{entries: []leaderboard.Entry{
		{UserID: "a", Username: "a", TotalXP: 50},
		{UserID: "b", Username: "b", TotalXP: 200},
		{UserID: "c", Username: "c", TotalXP: 125},
	}}

	h := NewGetLeaderboardHandler(source, nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	require.Len(t, res.Entries, 3)
	assert.Equal(t, shared.UserID("b"), res.Entries[0].UserID)
	assert.Equal(t, shared.UserID("c"), res.Entries[1].UserID)
	assert.Equal(t, shared.UserID("a"), res.Entries[2].UserID)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.False(t, res.FromCache)
}

func TestGetLeaderboard_ReadThroughCache(t *testing.T) {
	source := &stubBoardRepo{entries: []leaderboard.Entry{
		{UserID: "a", TotalXP: 50},
	}}
	cache := newStubCache()

	h := NewGetLeaderboardHandler(source, cache)

	// Miss populates the cache.
	first, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 5})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, source.reads)
	assert.Equal(t, 1, cache.sets)

	// Hit skips the source.
	second, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 5})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, source.reads)
}

func TestGetLeaderboard_CacheOutageFallsBack(t *testing.T) {
	source := &stubBoardRepo{entries: []leaderboard.Entry{
		{UserID: "a", TotalXP: 50},
	}}
	cache := newStubCache()
	cache.err = errors.New("connection refused")

	h := NewGetLeaderboardHandler(source, cache)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 1, source.reads)
}

func TestGetLeaderboard_RebuildSurvivesCallerCancellation(t *testing.T) {
	source := &cancelSensitiveBoardRepo{stubBoardRepo{entries: []leaderboard.Entry{
		{UserID: "a", TotalXP: 50},
	}}}
	cache := newStubCache()

	h := NewGetLeaderboardHandler(source, cache)

	// The rebuild is shared with collapsed waiters, so it runs to completion
	// even when the caller that started it is already gone.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.Handle(ctx, GetLeaderboardQuery{Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 1, cache.sets)
}

func TestGetLeaderboard_NormalizesLimit(t *testing.T) {
	h := NewGetLeaderboardHandler(&stubBoardRepo{}, nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: -1})
	assert.Error(t, err)

	q := GetLeaderboardQuery{Limit: 500}
	require.NoError(t, q.Validate())
	assert.Equal(t, 100, q.Limit)
}

func TestGetUserStats(t *testing.T) {
	users := &stubUserRepo{snapshot: user.ProgressSnapshot{
		UserID:         "u1",
		XP:             425,
		TotalXP:        425,
		Level:          5,
		Streak:         3,
		TasksCompleted: 12,
	}}
	tasks := &stubTaskRepo{
		counts: task.StatusCounts{
			Total:     20,
			Pending:   6,
			Completed: 12,
			Cancelled: 2,
		},
		thisWeek: 4,
	}

	h := NewGetUserStatsHandler(users, tasks)

	res, err := h.Handle(context.Background(), GetUserStatsQuery{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, 425, res.TotalXP)
	assert.Equal(t, 5, res.Level)
	assert.Equal(t, 25, res.XPIntoLevel)
	assert.Equal(t, 75, res.XPToNextLevel)
	assert.Equal(t, 12, res.TasksCompleted)
	assert.Equal(t, 20, res.TotalTasks)
	assert.InDelta(t, 60.0, res.CompletionRate, 0.01)
	assert.Equal(t, 4, res.CompletedThisWeek)
}

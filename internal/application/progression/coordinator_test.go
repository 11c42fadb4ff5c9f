package progression

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST DOUBLES
// ══════════════════════════════════════════════════════════════════════════════

// fakeStore keeps one snapshot per user in memory and applies commits as a
// single unit, mirroring the transactional store contract.
type fakeStore struct {
	mu        sync.Mutex
	snapshots map[shared.UserID]user.ProgressSnapshot
	unlocks   map[shared.UserID][]reward.Unlock
	commits   int
	failNext  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snapshots: make(map[shared.UserID]user.ProgressSnapshot),
		unlocks:   make(map[shared.UserID][]reward.Unlock),
	}
}

func (s *fakeStore) LoadSnapshot(_ context.Context, userID shared.UserID) (user.ProgressSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[userID]
	if !ok {
		return user.ProgressSnapshot{}, shared.ErrUserNotFound
	}
	return snap, nil
}

func (s *fakeStore) LoadUnlocked(_ context.Context, userID shared.UserID) ([]shared.AchievementID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]shared.AchievementID, 0, len(s.unlocks[userID]))
	for _, u := range s.unlocks[userID] {
		ids = append(ids, u.AchievementID)
	}
	return ids, nil
}

func (s *fakeStore) Commit(_ context.Context, snapshot user.ProgressSnapshot, unlocks []reward.Unlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.snapshots[snapshot.UserID] = snapshot
	s.unlocks[snapshot.UserID] = append(s.unlocks[snapshot.UserID], unlocks...)
	s.commits++
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *recordingBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) GenerateID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return string(rune('a' + g.n - 1))
}

func runCatalog(t *testing.T) *reward.Catalog {
	t.Helper()
	c, err := reward.NewCatalog([]reward.Definition{
		{ID: "first_task", Name: "First Task", XPReward: 50, Kind: shared.RequirementTasksCompleted, Threshold: 1},
		{ID: "ten_tasks", Name: "Ten Tasks", XPReward: 100, Kind: shared.RequirementTasksCompleted, Threshold: 10},
		{ID: "level_two", Name: "Level Two", XPReward: 300, Kind: shared.RequirementLevel, Threshold: 2},
		{ID: "week_streak", Name: "Week Streak", XPReward: 200, Kind: shared.RequirementStreak, Threshold: 7},
	})
	require.NoError(t, err)
	return c
}

func seedUser(store *fakeStore, snap user.ProgressSnapshot) {
	store.snapshots[snap.UserID] = snap
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestRun_CompletionCascadesThroughLevelAchievement(t *testing.T) {
	store := newFakeStore()
	seedUser(store, user.ProgressSnapshot{
		UserID:         "u1",
		XP:             95,
		TotalXP:        95,
		Level:          1,
		TasksCompleted: 5,
	})
	store.unlocks["u1"] = []reward.Unlock{{AchievementID: "first_task", UserID: "u1"}}

	bus := &recordingBus{}
	coord := NewCoordinator(store, runCatalog(t), bus, &seqIDs{})

	res, err := coord.Run(context.Background(), Input{
		UserID:       "u1",
		Trigger:      TriggerCompletion,
		TaskID:       "t1",
		TaskXPReward: 30,
	})
	require.NoError(t, err)

	// 95 + 30 crosses level 2, which unlocks the level achievement; its
	// 300 XP bonus lands in the same run and the final level resolves from
	// the folded total.
	assert.Equal(t, shared.XP(425), res.Snapshot.TotalXP)
	assert.Equal(t, shared.Level(5), res.Snapshot.Level)
	assert.Equal(t, 6, res.Snapshot.TasksCompleted)
	assert.Equal(t, shared.XP(330), res.XPAwarded)
	assert.True(t, res.LeveledUp)

	require.Len(t, res.NewlyUnlocked, 1)
	assert.Equal(t, shared.AchievementID("level_two"), res.NewlyUnlocked[0].ID)

	// One commit carried the snapshot and the unlock together.
	assert.Equal(t, 1, store.commits)
	assert.Len(t, store.unlocks["u1"], 2)

	assert.Equal(t, []shared.EventType{
		shared.EventXPAwarded,
		shared.EventAchievementUnlocked,
		shared.EventLevelUp,
	}, bus.types())
}

func TestRun_CheckOnlyIsIdempotent(t *testing.T) {
	store := newFakeStore()
	seedUser(store, user.ProgressSnapshot{
		UserID:         "u1",
		XP:             40,
		TotalXP:        40,
		Level:          1,
		TasksCompleted: 3,
	})

	coord := NewCoordinator(store, runCatalog(t), nil, &seqIDs{})

	first, err := coord.Run(context.Background(), Input{UserID: "u1", Trigger: TriggerCheckOnly})
	require.NoError(t, err)
	require.Len(t, first.NewlyUnlocked, 1)
	assert.Equal(t, shared.AchievementID("first_task"), first.NewlyUnlocked[0].ID)

	second, err := coord.Run(context.Background(), Input{UserID: "u1", Trigger: TriggerCheckOnly})
	require.NoError(t, err)
	assert.Empty(t, second.NewlyUnlocked, "a satisfied achievement unlocks exactly once")
	assert.Equal(t, first.Snapshot, second.Snapshot)
	assert.Len(t, store.unlocks["u1"], 1)
}

func TestRun_CommitFailureLeavesNoPartialEffect(t *testing.T) {
	store := newFakeStore()
	seedUser(store, user.ProgressSnapshot{
		UserID:  "u1",
		XP:      95,
		TotalXP: 95,
		Level:   1,
	})
	store.failNext = errors.New("connection reset")

	coord := NewCoordinator(store, runCatalog(t), nil, &seqIDs{})

	_, err := coord.Run(context.Background(), Input{
		UserID:       "u1",
		Trigger:      TriggerCompletion,
		TaskID:       "t1",
		TaskXPReward: 30,
	})
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, stepApplied, runErr.Step)

	// The stored state is untouched; a retry starts from the same snapshot.
	snap := store.snapshots["u1"]
	assert.Equal(t, shared.XP(95), snap.TotalXP)
	assert.Equal(t, shared.Level(1), snap.Level)
	assert.Empty(t, store.unlocks["u1"])

	retried, err := coord.Run(context.Background(), Input{
		UserID:       "u1",
		Trigger:      TriggerCompletion,
		TaskID:       "t1",
		TaskXPReward: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, shared.XP(125), retried.Snapshot.TotalXP)
}

func TestRun_ExplicitUnlock(t *testing.T) {
	store := newFakeStore()
	seedUser(store, user.ProgressSnapshot{UserID: "u1", Level: 1})

	coord := NewCoordinator(store, runCatalog(t), nil, &seqIDs{})

	res, err := coord.Run(context.Background(), Input{
		UserID:        "u1",
		Trigger:       TriggerExplicitUnlock,
		AchievementID: "week_streak",
	})
	require.NoError(t, err)

	require.Len(t, res.NewlyUnlocked, 1)
	assert.Equal(t, shared.AchievementID("week_streak"), res.NewlyUnlocked[0].ID)
	assert.Equal(t, shared.XP(200), res.Snapshot.TotalXP)
	assert.Equal(t, shared.Level(3), res.Snapshot.Level)
}

func TestRun_ExplicitUnlockAlreadyHeldIsNoOp(t *testing.T) {
	store := newFakeStore()
	seedUser(store, user.ProgressSnapshot{UserID: "u1", XP: 200, TotalXP: 200, Level: 3})
	store.unlocks["u1"] = []reward.Unlock{{AchievementID: "week_streak", UserID: "u1"}}

	coord := NewCoordinator(store, runCatalog(t), nil, &seqIDs{})

	res, err := coord.Run(context.Background(), Input{
		UserID:        "u1",
		Trigger:       TriggerExplicitUnlock,
		AchievementID: "week_streak",
	})
	require.NoError(t, err)

	assert.Empty(t, res.NewlyUnlocked)
	assert.Equal(t, shared.XP(200), res.Snapshot.TotalXP, "no double payout")
	assert.Len(t, store.unlocks["u1"], 1)
	assert.Zero(t, store.commits, "an already-held grant commits nothing")
}

func TestRun_ExplicitUnlockDoesNotSweepCatalog(t *testing.T) {
	store := newFakeStore()
	// tasks_completed already satisfies first_task, but an explicit unlock
	// grants only the achievement it names.
	seedUser(store, user.ProgressSnapshot{UserID: "u1", Level: 1, TasksCompleted: 1})

	coord := NewCoordinator(store, runCatalog(t), nil, &seqIDs{})

	res, err := coord.Run(context.Background(), Input{
		UserID:        "u1",
		Trigger:       TriggerExplicitUnlock,
		AchievementID: "week_streak",
	})
	require.NoError(t, err)

	require.Len(t, res.NewlyUnlocked, 1)
	assert.Equal(t, shared.AchievementID("week_streak"), res.NewlyUnlocked[0].ID)
	assert.Len(t, store.unlocks["u1"], 1)
}

func TestRun_ExplicitUnlockUnknownAchievement(t *testing.T) {
	store := newFakeStore()
	seedUser(store, user.ProgressSnapshot{UserID: "u1", Level: 1})

	coord := NewCoordinator(store, runCatalog(t), nil, &seqIDs{})

	_, err := coord.Run(context.Background(), Input{
		UserID:        "u1",
		Trigger:       TriggerExplicitUnlock,
		AchievementID: "no_such_badge",
	})
	assert.ErrorIs(t, err, shared.ErrAchievementNotFound)
}

func TestRun_ValidatesInput(t *testing.T) {
	coord := NewCoordinator(newFakeStore(), runCatalog(t), nil, &seqIDs{})

	_, err := coord.Run(context.Background(), Input{Trigger: TriggerCheckOnly})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = coord.Run(context.Background(), Input{UserID: "u1", Trigger: TriggerCompletion})
	assert.ErrorIs(t, err, shared.ErrInvalidTaskID)

	_, err = coord.Run(context.Background(), Input{UserID: "u1", Trigger: Trigger("mystery")})
	assert.ErrorIs(t, err, shared.ErrInvalidTrigger)
}

func TestRun_ConcurrentCompletionsSerializePerUser(t *testing.T) {
	store := newFakeStore()
	seedUser(store, user.ProgressSnapshot{UserID: "u1", Level: 1})

	coord := NewCoordinator(store, runCatalog(t), nil, &seqIDs{})

	const runs = 20
	var wg sync.WaitGroup
	wg.Add(runs)
	for i := 0; i < runs; i++ {
		go func() {
			defer wg.Done()
			_, err := coord.Run(context.Background(), Input{
				UserID:       "u1",
				Trigger:      TriggerCompletion,
				TaskID:       "t",
				TaskXPReward: 10,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap := store.snapshots["u1"]
	assert.Equal(t, 20, snap.TasksCompleted, "no completion lost to a race")
	// 20 completions pay 200 task XP; first_task (+50), level_two (+300)
	// and ten_tasks (+100) each unlock exactly once along the way.
	assert.Equal(t, shared.XP(650), snap.TotalXP)
	assert.Len(t, store.unlocks["u1"], 3)
}

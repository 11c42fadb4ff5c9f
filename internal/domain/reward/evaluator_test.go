package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]Definition{
		{ID: "first_task", Name: "First Task", XPReward: 50, Kind: shared.RequirementTasksCompleted, Threshold: 1},
		{ID: "ten_tasks", Name: "Ten Tasks", XPReward: 100, Kind: shared.RequirementTasksCompleted, Threshold: 10},
		{ID: "week_streak", Name: "Week Streak", XPReward: 200, Kind: shared.RequirementStreak, Threshold: 7},
		{ID: "level_two", Name: "Level Two", XPReward: 300, Kind: shared.RequirementLevel, Threshold: 2},
		{ID: "first_planner", Name: "First Planner", XPReward: 50, Kind: shared.RequirementPlannersCreated, Threshold: 1},
	})
	require.NoError(t, err)
	return c
}

func TestEvaluate_SatisfiedInCatalogOrder(t *testing.T) {
	ev := NewEvaluator(testCatalog(t))

	snapshot := user.ProgressSnapshot{
		UserID:          "u1",
		Level:           2,
		Streak:          8,
		TasksCompleted:  1,
		PlannersCreated: 0,
	}

	newly := ev.Evaluate(snapshot, NewUnlockedSet(nil))

	ids := make([]shared.AchievementID, 0, len(newly))
	for _, d := range newly {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []shared.AchievementID{"first_task", "week_streak", "level_two"}, ids)
}

func TestEvaluate_SkipsAlreadyUnlocked(t *testing.T) {
	ev := NewEvaluator(testCatalog(t))

	snapshot := user.ProgressSnapshot{UserID: "u1", Level: 2, TasksCompleted: 12}
	unlocked := NewUnlockedSet([]shared.AchievementID{"first_task", "level_two"})

	newly := ev.Evaluate(snapshot, unlocked)

	require.Len(t, newly, 1)
	assert.Equal(t, shared.AchievementID("ten_tasks"), newly[0].ID)
}

func TestEvaluate_NothingSatisfied(t *testing.T) {
	ev := NewEvaluator(testCatalog(t))

	snapshot := user.ProgressSnapshot{UserID: "u1", Level: 1}
	assert.Empty(t, ev.Evaluate(snapshot, NewUnlockedSet(nil)))
}

func TestEvaluate_UnknownRequirementKindFailsClosed(t *testing.T) {
	c, err := NewCatalog([]Definition{
		{ID: "mystery", Name: "Mystery", XPReward: 10, Kind: shared.RequirementKind("helped_others"), Threshold: 0},
		{ID: "first_task", Name: "First Task", XPReward: 50, Kind: shared.RequirementTasksCompleted, Threshold: 1},
	})
	require.NoError(t, err)
	ev := NewEvaluator(c)

	// A generous snapshot still never satisfies the unknown kind.
	snapshot := user.ProgressSnapshot{UserID: "u1", Level: 99, Streak: 99, TasksCompleted: 99, PlannersCreated: 99}
	newly := ev.Evaluate(snapshot, NewUnlockedSet(nil))

	require.Len(t, newly, 1)
	assert.Equal(t, shared.AchievementID("first_task"), newly[0].ID)
}

func TestEvaluate_ThresholdBoundary(t *testing.T) {
	ev := NewEvaluator(testCatalog(t))

	below := user.ProgressSnapshot{UserID: "u1", Level: 1, Streak: 6}
	assert.Empty(t, ev.Evaluate(below, NewUnlockedSet(nil)))

	at := user.ProgressSnapshot{UserID: "u1", Level: 1, Streak: 7}
	newly := ev.Evaluate(at, NewUnlockedSet(nil))
	require.Len(t, newly, 1)
	assert.Equal(t, shared.AchievementID("week_streak"), newly[0].ID)
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Definition{
		{ID: "dup", Kind: shared.RequirementLevel, Threshold: 1},
		{ID: "dup", Kind: shared.RequirementLevel, Threshold: 2},
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, 10, c.Len())

	def, ok := c.Get("level_up")
	require.True(t, ok)
	assert.Equal(t, shared.RequirementLevel, def.Kind)
	assert.Equal(t, 5, def.Threshold)
	assert.Equal(t, shared.XP(300), def.XPReward)

	_, ok = c.Get("does_not_exist")
	assert.False(t, ok)
}

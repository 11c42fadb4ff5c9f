package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhive/planhive/internal/domain/shared"
)

func TestRank_OrdersByTotalXPDescending(t *testing.T) {
	entries := []Entry{
		{UserID: "a", TotalXP: 50},
		{UserID: "b", TotalXP: 200},
		{UserID: "c", TotalXP: 125},
	}

	ranked := Rank(entries)

	require.Len(t, ranked, 3)
	assert.Equal(t, shared.UserID("b"), ranked[0].UserID)
	assert.Equal(t, shared.UserID("c"), ranked[1].UserID)
	assert.Equal(t, shared.UserID("a"), ranked[2].UserID)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
}

func TestRank_TieBreaksByJoinedAtThenID(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	entries := []Entry{
		{UserID: "z", TotalXP: 100, JoinedAt: later},
		{UserID: "m", TotalXP: 100, JoinedAt: earlier},
		{UserID: "a", TotalXP: 100, JoinedAt: later},
	}

	ranked := Rank(entries)

	assert.Equal(t, shared.UserID("m"), ranked[0].UserID, "earlier account wins the tie")
	assert.Equal(t, shared.UserID("a"), ranked[1].UserID, "same join time falls back to ID order")
	assert.Equal(t, shared.UserID("z"), ranked[2].UserID)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	entries := []Entry{
		{UserID: "a", TotalXP: 1},
		{UserID: "b", TotalXP: 2},
	}

	_ = Rank(entries)

	assert.Equal(t, shared.UserID("a"), entries[0].UserID)
	assert.Zero(t, entries[0].Rank)
}

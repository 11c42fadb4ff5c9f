package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

func TestXPForPriority(t *testing.T) {
	tests := []struct {
		name     string
		priority shared.Priority
		want     shared.XP
	}{
		{"low", shared.PriorityLow, 5},
		{"medium", shared.PriorityMedium, 10},
		{"high", shared.PriorityHigh, 20},
		{"urgent", shared.PriorityUrgent, 30},
		{"unknown defaults to medium", shared.Priority("whenever"), 10},
		{"empty defaults to medium", shared.Priority(""), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, XPForPriority(tt.priority))
		})
	}
}

func TestApplyXP(t *testing.T) {
	snapshot := user.ProgressSnapshot{
		UserID:  "u1",
		XP:      40,
		TotalXP: 90,
		Level:   1,
	}

	updated, err := ApplyXP(snapshot, 30)
	require.NoError(t, err)
	assert.Equal(t, shared.XP(70), updated.XP)
	assert.Equal(t, shared.XP(120), updated.TotalXP)

	// Input snapshot is untouched.
	assert.Equal(t, shared.XP(40), snapshot.XP)
	assert.Equal(t, shared.XP(90), snapshot.TotalXP)
}

func TestApplyXP_ZeroIsNoop(t *testing.T) {
	snapshot := user.ProgressSnapshot{UserID: "u1", XP: 10, TotalXP: 10}

	updated, err := ApplyXP(snapshot, 0)
	require.NoError(t, err)
	assert.Equal(t, snapshot, updated)
}

func TestApplyXP_RejectsNegative(t *testing.T) {
	snapshot := user.ProgressSnapshot{UserID: "u1", XP: 10, TotalXP: 10}

	updated, err := ApplyXP(snapshot, -5)
	require.ErrorIs(t, err, shared.ErrNegativeValue)
	assert.Equal(t, snapshot, updated, "snapshot must be unchanged on rejection")
}

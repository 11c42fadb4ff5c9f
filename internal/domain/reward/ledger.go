// Package reward contains the gamification core: the XP ledger, the level
// resolver, the achievement catalog and the achievement evaluator. Everything
// here is pure; persistence and orchestration live in other layers.
package reward

import (
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// XP awarded per task priority. The value is computed once, at task creation
// time, and stored on the task; completion reads it back unchanged.
const (
	XPLow    shared.XP = 5
	XPMedium shared.XP = 10
	XPHigh   shared.XP = 20
	XPUrgent shared.XP = 30
)

// XPForPriority maps a task priority to its XP reward. Unrecognized
// priorities earn the medium reward.
func XPForPriority(p shared.Priority) shared.XP {
	switch p {
	case shared.PriorityLow:
		return XPLow
	case shared.PriorityMedium:
		return XPMedium
	case shared.PriorityHigh:
		return XPHigh
	case shared.PriorityUrgent:
		return XPUrgent
	default:
		return XPMedium
	}
}

// ApplyXP adds a non-negative amount to both the current and lifetime XP
// balances of the snapshot and returns the updated snapshot. A negative
// amount is rejected: XP can never decrease through the ledger.
func ApplyXP(s user.ProgressSnapshot, amount shared.XP) (user.ProgressSnapshot, error) {
	if amount < 0 {
		return s, shared.ErrNegativeReward
	}

	s.XP = s.XP.Add(amount)
	s.TotalXP = s.TotalXP.Add(amount)
	return s, nil
}

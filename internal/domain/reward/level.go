package reward

import (
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// XPPerLevel is the lifetime XP required per level step.
const XPPerLevel shared.XP = 100

// LevelFor resolves the level for a lifetime XP balance: every 100 XP is one
// level, starting at level 1. Total and monotonic non-decreasing; negative
// input is treated as zero.
func LevelFor(totalXP shared.XP) shared.Level {
	if totalXP < 0 {
		totalXP = 0
	}
	return shared.Level(totalXP/XPPerLevel) + 1
}

// RaiseLevel re-resolves the snapshot level from its lifetime XP, only ever
// raising the stored value. Levels are a one-way ratchet even if the XP math
// were ever to fluctuate.
func RaiseLevel(s user.ProgressSnapshot) user.ProgressSnapshot {
	if next := LevelFor(s.TotalXP); next > s.Level {
		s.Level = next
	}
	return s
}

// XPIntoLevel returns how much lifetime XP has accumulated within the
// current level, for progress-bar style displays.
func XPIntoLevel(totalXP shared.XP) shared.XP {
	if totalXP < 0 {
		return 0
	}
	return totalXP % XPPerLevel
}

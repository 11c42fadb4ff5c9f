package reward

import (
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// UnlockedSet is the set of achievement identifiers a user already holds.
type UnlockedSet map[shared.AchievementID]struct{}

// NewUnlockedSet builds an UnlockedSet from a list of identifiers.
func NewUnlockedSet(ids []shared.AchievementID) UnlockedSet {
	set := make(UnlockedSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether the achievement is already unlocked.
func (s UnlockedSet) Contains(id shared.AchievementID) bool {
	_, ok := s[id]
	return ok
}

// Evaluator decides which catalog achievements a snapshot newly satisfies.
type Evaluator struct {
	catalog *Catalog
}

// NewEvaluator creates an evaluator over an immutable catalog.
func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Evaluate walks the catalog in definition order and returns every
// achievement that the snapshot satisfies and the user does not already hold.
// All satisfied achievements unlock together; the returned order follows the
// catalog and is the "first unlocked first" order surfaced to callers.
//
// This is a single evaluation pass: achievements whose requirements are based
// on level are tested against the snapshot as given, before any XP their own
// payout would add. An unlock that pushes the user past a further level
// threshold is picked up on the next evaluation, not within this pass.
func (e *Evaluator) Evaluate(snapshot user.ProgressSnapshot, unlocked UnlockedSet) []Definition {
	var newly []Definition

	for _, def := range e.catalog.defs {
		if unlocked.Contains(def.ID) {
			continue
		}
		if satisfies(snapshot, def) {
			newly = append(newly, def)
		}
	}

	return newly
}

// satisfies tests one requirement against the snapshot. Unrecognized
// requirement kinds are never satisfied (fail closed, not fatal).
func satisfies(s user.ProgressSnapshot, def Definition) bool {
	switch def.Kind {
	case shared.RequirementTasksCompleted:
		return s.TasksCompleted >= def.Threshold
	case shared.RequirementStreak:
		return s.Streak >= def.Threshold
	case shared.RequirementLevel:
		return s.Level.Int() >= def.Threshold
	case shared.RequirementPlannersCreated:
		return s.PlannersCreated >= def.Threshold
	default:
		return false
	}
}

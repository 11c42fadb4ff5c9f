package reward

import (
	"github.com/planhive/planhive/internal/domain/shared"
)

// Definition describes one achievement in the reward catalog. Definitions are
// immutable after seeding; user actions never mutate the catalog.
type Definition struct {
	// ID is the stable identifier of the achievement.
	ID shared.AchievementID

	// Name is the display name.
	Name string

	// Description explains how to earn the achievement.
	Description string

	// Icon is the display emoji.
	Icon string

	// Color is the display accent color.
	Color string

	// XPReward is paid out once, when the achievement unlocks.
	XPReward shared.XP

	// Kind selects which snapshot counter the requirement gates on.
	Kind shared.RequirementKind

	// Threshold is the counter value at which the requirement is satisfied.
	Threshold int
}

// Catalog is the fixed, ordered set of achievement definitions, loaded once at
// process start and passed explicitly into the evaluator. Definition order is
// the evaluation and reporting order.
type Catalog struct {
	defs []Definition
	byID map[shared.AchievementID]int
}

// NewCatalog builds a catalog from an ordered list of definitions.
// Identifiers must be unique.
func NewCatalog(defs []Definition) (*Catalog, error) {
	byID := make(map[shared.AchievementID]int, len(defs))
	for i, d := range defs {
		if !d.ID.IsValid() {
			return nil, shared.ErrAchievementNotFound
		}
		if _, dup := byID[d.ID]; dup {
			return nil, shared.ErrDuplicateCatalogID
		}
		if d.XPReward < 0 || d.Threshold < 0 {
			return nil, shared.ErrNegativeReward
		}
		byID[d.ID] = i
	}

	return &Catalog{defs: append([]Definition(nil), defs...), byID: byID}, nil
}

// Definitions returns the definitions in stable catalog order.
func (c *Catalog) Definitions() []Definition {
	return append([]Definition(nil), c.defs...)
}

// Get returns the definition for an identifier.
func (c *Catalog) Get(id shared.AchievementID) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// DefaultCatalog returns the seeded production catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultDefinitions())
	if err != nil {
		// The seed data is static; a failure here is a programming error.
		panic(err)
	}
	return c
}

func defaultDefinitions() []Definition {
	return []Definition{
		{ID: "first_step", Name: "First Step", Description: "Complete your first task", Icon: "🎯", Color: "#FFD700", XPReward: 50, Kind: shared.RequirementTasksCompleted, Threshold: 1},
		{ID: "getting_started", Name: "Getting Started", Description: "Complete 10 tasks", Icon: "🌟", Color: "#C0C0C0", XPReward: 100, Kind: shared.RequirementTasksCompleted, Threshold: 10},
		{ID: "productivity_master", Name: "Productivity Master", Description: "Complete 50 tasks", Icon: "🏆", Color: "#CD7F32", XPReward: 500, Kind: shared.RequirementTasksCompleted, Threshold: 50},
		{ID: "task_champion", Name: "Task Champion", Description: "Complete 100 tasks", Icon: "👑", Color: "#FFD700", XPReward: 1000, Kind: shared.RequirementTasksCompleted, Threshold: 100},
		{ID: "on_fire", Name: "On Fire!", Description: "Reach a 7-day streak", Icon: "🔥", Color: "#FF4500", XPReward: 200, Kind: shared.RequirementStreak, Threshold: 7},
		{ID: "unstoppable", Name: "Unstoppable", Description: "Reach a 30-day streak", Icon: "⚡", Color: "#FF6B6B", XPReward: 1000, Kind: shared.RequirementStreak, Threshold: 30},
		{ID: "level_up", Name: "Level Up!", Description: "Reach level 5", Icon: "📈", Color: "#4ECDC4", XPReward: 300, Kind: shared.RequirementLevel, Threshold: 5},
		{ID: "rising_star", Name: "Rising Star", Description: "Reach level 10", Icon: "🌟", Color: "#9B59B6", XPReward: 1000, Kind: shared.RequirementLevel, Threshold: 10},
		{ID: "planner_creator", Name: "Planner Creator", Description: "Create your first planner", Icon: "📋", Color: "#3498DB", XPReward: 50, Kind: shared.RequirementPlannersCreated, Threshold: 1},
		{ID: "organization_guru", Name: "Organization Guru", Description: "Create 5 planners", Icon: "🗂️", Color: "#1ABC9C", XPReward: 200, Kind: shared.RequirementPlannersCreated, Threshold: 5},
	}
}

// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Returns the full catalog in definition order, each entry flagged with
// whether the user holds it and when it was unlocked.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsQuery contains the achievements request parameters.
type GetAchievementsQuery struct {
	// UserID - whose unlock state to overlay on the catalog.
	UserID shared.UserID
}

// Validate checks the query parameters.
func (q GetAchievementsQuery) Validate() error {
	if !q.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// AchievementDTO is one catalog entry with the user's unlock state.
type AchievementDTO struct {
	ID          shared.AchievementID `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Icon        string               `json:"icon"`
	Color       string               `json:"color"`
	XPReward    int                  `json:"xp_reward"`
	Requirement string               `json:"requirement"`
	Threshold   int                  `json:"threshold"`
	Unlocked    bool                 `json:"unlocked"`
	UnlockedAt  *time.Time           `json:"unlocked_at,omitempty"`
}

// GetAchievementsResult contains the achievements listing.
type GetAchievementsResult struct {
	Achievements []AchievementDTO `json:"achievements"`
	Total        int              `json:"total"`
	UnlockedNum  int              `json:"unlocked"`
}

// GetAchievementsHandler handles the GetAchievementsQuery.
type GetAchievementsHandler struct {
	catalog    *reward.Catalog
	unlockRepo reward.UnlockRepository
}

// NewGetAchievementsHandler creates a new GetAchievementsHandler.
func NewGetAchievementsHandler(catalog *reward.Catalog, unlockRepo reward.UnlockRepository) *GetAchievementsHandler {
	return &GetAchievementsHandler{
		catalog:    catalog,
		unlockRepo: unlockRepo,
	}
}

// Handle executes the achievements query.
func (h *GetAchievementsHandler) Handle(ctx context.Context, q GetAchievementsQuery) (*GetAchievementsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	unlocks, err := h.unlockRepo.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_achievements: failed to load unlocks: %w", err)
	}

	unlockedAt := make(map[shared.AchievementID]time.Time, len(unlocks))
	for _, u := range unlocks {
		unlockedAt[u.AchievementID] = u.UnlockedAt
	}

	defs := h.catalog.Definitions()
	result := &GetAchievementsResult{
		Achievements: make([]AchievementDTO, 0, len(defs)),
		Total:        len(defs),
	}

	for _, def := range defs {
		dto := AchievementDTO{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Color:       def.Color,
			XPReward:    def.XPReward.Int(),
			Requirement: def.Kind.String(),
			Threshold:   def.Threshold,
		}
		if at, ok := unlockedAt[def.ID]; ok {
			dto.Unlocked = true
			t := at
			dto.UnlockedAt = &t
			result.UnlockedNum++
		}
		result.Achievements = append(result.Achievements, dto)
	}

	return result, nil
}

package command

import (
	"context"
	"fmt"

	"github.com/planhive/planhive/internal/application/progression"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK ACHIEVEMENT COMMAND
// Grants a named achievement directly, bypassing its requirement. Granting an
// achievement the user already holds succeeds without a second payout.
// ══════════════════════════════════════════════════════════════════════════════

// UnlockAchievementCommand contains the data to grant an achievement.
type UnlockAchievementCommand struct {
	// UserID is the recipient.
	UserID shared.UserID

	// AchievementID names the catalog achievement to grant.
	AchievementID shared.AchievementID
}

// Validate validates the command.
func (c UnlockAchievementCommand) Validate() error {
	if !c.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if !c.AchievementID.IsValid() {
		return shared.ErrAchievementNotFound
	}
	return nil
}

// UnlockAchievementResult contains the grant outcome.
type UnlockAchievementResult struct {
	// Unlocked is true when this call created the unlock; false when the
	// user already held the achievement.
	Unlocked bool

	// XPAwarded is the XP the run granted.
	XPAwarded shared.XP

	// Progress is the committed snapshot after the run.
	Progress user.ProgressSnapshot
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UnlockAchievementHandler handles the UnlockAchievementCommand.
type UnlockAchievementHandler struct {
	coordinator *progression.Coordinator
}

// NewUnlockAchievementHandler creates a new UnlockAchievementHandler.
func NewUnlockAchievementHandler(coordinator *progression.Coordinator) *UnlockAchievementHandler {
	return &UnlockAchievementHandler{coordinator: coordinator}
}

// Handle executes the unlock achievement command.
func (h *UnlockAchievementHandler) Handle(ctx context.Context, cmd UnlockAchievementCommand) (*UnlockAchievementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("unlock_achievement: validation failed: %w", err)
	}

	run, err := h.coordinator.Run(ctx, progression.Input{
		UserID:        cmd.UserID,
		Trigger:       progression.TriggerExplicitUnlock,
		AchievementID: cmd.AchievementID,
	})
	if err != nil {
		return nil, err
	}

	unlocked := false
	for _, def := range run.NewlyUnlocked {
		if def.ID == cmd.AchievementID {
			unlocked = true
			break
		}
	}

	return &UnlockAchievementResult{
		Unlocked:  unlocked,
		XPAwarded: run.XPAwarded,
		Progress:  run.Snapshot,
	}, nil
}

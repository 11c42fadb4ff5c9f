package reward

import (
	"time"

	"github.com/planhive/planhive/internal/domain/shared"
)

// Unlock records that a user holds an achievement. Created exactly once per
// (user, achievement) pair and never updated or deleted by normal operation.
type Unlock struct {
	// ID is the record identifier.
	ID string

	// UserID references the owning user.
	UserID shared.UserID

	// AchievementID references the catalog definition.
	AchievementID shared.AchievementID

	// UnlockedAt is when the requirement was first satisfied and committed.
	UnlockedAt time.Time
}

// NewUnlock creates an unlock record stamped with the given time.
func NewUnlock(id string, userID shared.UserID, achievementID shared.AchievementID, at time.Time) Unlock {
	return Unlock{
		ID:            id,
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    at,
	}
}

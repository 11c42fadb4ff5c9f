package reward

import (
	"context"

	"github.com/planhive/planhive/internal/domain/shared"
)

// UnlockRepository defines the unlock-record store contract.
type UnlockRepository interface {
	// ListByUser returns a user's unlock records, newest first.
	ListByUser(ctx context.Context, userID shared.UserID) ([]Unlock, error)

	// ListIDsByUser returns just the unlocked achievement identifiers.
	ListIDsByUser(ctx context.Context, userID shared.UserID) ([]shared.AchievementID, error)

	// Exists reports whether the user already holds the achievement.
	Exists(ctx context.Context, userID shared.UserID, achievementID shared.AchievementID) (bool, error)
}

// CatalogRepository loads and seeds the achievement catalog. The catalog is
// read once at process start; the running system never mutates it.
type CatalogRepository interface {
	// Seed inserts the given definitions if the catalog store is empty.
	Seed(ctx context.Context, defs []Definition) error

	// Load returns all definitions in stable catalog order.
	Load(ctx context.Context) ([]Definition, error)
}

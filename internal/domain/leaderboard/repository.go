package leaderboard

import (
	"context"

	"github.com/planhive/planhive/internal/domain/shared"
)

// Repository defines the ranking read-model contract.
type Repository interface {
	// TopN returns the top n entries ordered by lifetime XP descending,
	// ties broken by earlier account creation, then user ID.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// RankOf returns the 1-based rank of the given user.
	// Returns shared.ErrUserNotFound if the user does not exist.
	RankOf(ctx context.Context, userID shared.UserID) (int, error)
}

// Package leaderboard contains the global ranking read model. Rankings are
// computed on demand from lifetime XP; nothing here is maintained
// incrementally by the progression engine.
package leaderboard

import (
	"sort"
	"time"

	"github.com/planhive/planhive/internal/domain/shared"
)

// Entry is one row of the leaderboard.
type Entry struct {
	// UserID identifies the ranked user.
	UserID shared.UserID `json:"user_id"`

	// Username is the display name.
	Username string `json:"username"`

	// Avatar is an optional avatar URL.
	Avatar string `json:"avatar,omitempty"`

	// TotalXP is the lifetime XP the ranking is based on.
	TotalXP shared.XP `json:"total_xp"`

	// Level is the derived level.
	Level shared.Level `json:"level"`

	// Rank is the 1-based position.
	Rank int `json:"rank"`

	// JoinedAt is the account creation time, used as the tie-break key.
	JoinedAt time.Time `json:"joined_at"`
}

// Rank sorts entries by lifetime XP descending and assigns 1-based ranks.
// Ties break by earlier JoinedAt, then by user ID, so the ordering is fully
// deterministic regardless of input order.
func Rank(entries []Entry) []Entry {
	ranked := append([]Entry(nil), entries...)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalXP != ranked[j].TotalXP {
			return ranked[i].TotalXP > ranked[j].TotalXP
		}
		if !ranked[i].JoinedAt.Equal(ranked[j].JoinedAt) {
			return ranked[i].JoinedAt.Before(ranked[j].JoinedAt)
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

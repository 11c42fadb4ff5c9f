package query

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/planhive/planhive/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Top-N users by lifetime XP, read through a cache. Cold-cache rebuilds for
// the same limit are collapsed into one source read via singleflight.
// ══════════════════════════════════════════════════════════════════════════════

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardCache is the cache contract for ranked pages. A miss is
// reported with shared.ErrNotFound; any other error is treated as a cache
// outage and the query falls back to the source.
type LeaderboardCache interface {
	GetTop(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	SetTop(ctx context.Context, limit int, entries []leaderboard.Entry) error
}

// GetLeaderboardQuery contains the leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Limit - number of entries (default 10, max 100).
	Limit int
}

// Validate checks and normalizes the query parameters.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("get_leaderboard: limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = defaultLeaderboardLimit
	}
	if q.Limit > maxLeaderboardLimit {
		q.Limit = maxLeaderboardLimit
	}
	return nil
}

// GetLeaderboardResult contains the ranked page.
type GetLeaderboardResult struct {
	Entries []leaderboard.Entry `json:"entries"`

	// FromCache - true when the page was served without a source read.
	FromCache bool `json:"-"`
}

// GetLeaderboardHandler handles the GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	source leaderboard.Repository
	cache  LeaderboardCache
	group  singleflight.Group
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
// cache may be nil; every query then reads the source directly.
func NewGetLeaderboardHandler(source leaderboard.Repository, cache LeaderboardCache) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{
		source: source,
		cache:  cache,
	}
}

// Handle executes the leaderboard query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		// A miss and a cache outage take the same path: read the source.
		entries, err := h.cache.GetTop(ctx, q.Limit)
		if err == nil {
			return &GetLeaderboardResult{Entries: entries, FromCache: true}, nil
		}
	}

	// The rebuild is shared across collapsed callers, so it must outlive the
	// first caller's request; cancelling one request must not fail the rest.
	rebuildCtx := context.WithoutCancel(ctx)

	key := fmt.Sprintf("top:%d", q.Limit)
	v, err, _ := h.group.Do(key, func() (interface{}, error) {
		entries, err := h.source.TopN(rebuildCtx, q.Limit)
		if err != nil {
			return nil, fmt.Errorf("get_leaderboard: source read failed: %w", err)
		}
		if h.cache != nil {
			_ = h.cache.SetTop(rebuildCtx, q.Limit, entries)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	return &GetLeaderboardResult{Entries: v.([]leaderboard.Entry)}, nil
}

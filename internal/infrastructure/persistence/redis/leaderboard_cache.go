package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/planhive/planhive/internal/domain/leaderboard"
	"github.com/planhive/planhive/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// One cached page per requested limit. Pages expire rather than being
// invalidated on writes; a stale page is at most TTLLeaderboard old.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache caches ranked leaderboard pages as JSON documents,
// implementing the read-through cache contract of the leaderboard query.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a leaderboard cache with the default TTL.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache, ttl: TTLLeaderboard}
}

// pageKey builds the key for a ranked page of the given size.
func pageKey(limit int) string {
	return fmt.Sprintf("%stop:%d", PrefixLeaderboard, limit)
}

// GetTop returns the cached page for the given limit.
// A missing page is reported as shared.ErrNotFound.
func (l *LeaderboardCache) GetTop(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	var entries []leaderboard.Entry
	err := l.cache.Get(ctx, pageKey(limit), &entries)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return entries, nil
}

// SetTop stores the page for the given limit with the cache TTL.
func (l *LeaderboardCache) SetTop(ctx context.Context, limit int, entries []leaderboard.Entry) error {
	return l.cache.Set(ctx, pageKey(limit), entries, l.ttl)
}

// Invalidate drops the cached pages for the given limits.
func (l *LeaderboardCache) Invalidate(ctx context.Context, limits ...int) error {
	if len(limits) == 0 {
		return nil
	}

	keys := make([]string, len(limits))
	for i, limit := range limits {
		keys[i] = pageKey(limit)
	}
	return l.cache.Delete(ctx, keys...)
}

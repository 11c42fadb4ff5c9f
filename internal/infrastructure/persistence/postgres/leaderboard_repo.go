package postgres

import (
	"context"
	"fmt"

	"github.com/planhive/planhive/internal/domain/leaderboard"
	"github.com/planhive/planhive/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REPOSITORY
// Rankings come straight from the users table. The ORDER BY matches
// idx_users_leaderboard so the top-N read is an index scan.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRepository implements leaderboard.Repository for PostgreSQL.
type LeaderboardRepository struct {
	conn *Connection
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(conn *Connection) *LeaderboardRepository {
	return &LeaderboardRepository{conn: conn}
}

// TopN returns the top n users by lifetime XP, ties broken by earlier account
// creation, then user ID.
func (r *LeaderboardRepository) TopN(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	query := `
		SELECT id, username, avatar, total_xp, level, created_at
		FROM users
		ORDER BY total_xp DESC, created_at ASC, id ASC
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []leaderboard.Entry
	for rows.Next() {
		var e leaderboard.Entry
		var id string
		var totalXP, level int

		if err := rows.Scan(&id, &e.Username, &e.Avatar, &totalXP, &level, &e.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.UserID = shared.UserID(id)
		e.TotalXP = shared.XP(totalXP)
		e.Level = shared.Level(level)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RankOf returns the 1-based rank of the given user using the same ordering
// as TopN.
func (r *LeaderboardRepository) RankOf(ctx context.Context, userID shared.UserID) (int, error) {
	query := `
		SELECT rank FROM (
			SELECT id, RANK() OVER (ORDER BY total_xp DESC, created_at ASC, id ASC) AS rank
			FROM users
		) ranked
		WHERE id = $1
	`

	var rank int
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(&rank)
	if err != nil {
		if IsNoRows(err) {
			return 0, shared.ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to rank user: %w", err)
	}
	return rank, nil
}

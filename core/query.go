package core

import (
	"errors"
	"fmt"
	"strings"
)

// ScoreQuery describes one score load against one leaderboard.
// Treat it as a value; the queue never mutates a submitted query.
type ScoreQuery struct {
	LeaderboardName string    `json:"leaderboard_name"`
	LeaderboardID   string    `json:"leaderboard_id"`
	Mode            QueryMode `json:"mode"`
	FromRank        int       `json:"from_rank,omitempty"`
	ScoreCount      int       `json:"score_count,omitempty"`
	TimeScope       TimeScope `json:"time_scope"`
	UserScope       UserScope `json:"user_scope"`
}

// DefaultQuery loads the backend's default window: scores around the local user, all time, global.
func DefaultQuery(lb Leaderboard) ScoreQuery {
	return ScoreQuery{
		LeaderboardName: lb.Name,
		LeaderboardID:   lb.ID,
		Mode:            QueryDefault,
		TimeScope:       TimeScopeAllTime,
		UserScope:       UserScopeGlobal,
	}
}

// RangedQuery loads count scores starting at fromRank (1-based).
func RangedQuery(lb Leaderboard, fromRank, count int, ts TimeScope, us UserScope) ScoreQuery {
	return ScoreQuery{
		LeaderboardName: lb.Name,
		LeaderboardID:   lb.ID,
		Mode:            QueryRanged,
		FromRank:        fromRank,
		ScoreCount:      count,
		TimeScope:       ts,
		UserScope:       us,
	}
}

// LocalUserQuery loads only the authenticated user's score. Rank and count are ignored.
func LocalUserQuery(lb Leaderboard) ScoreQuery {
	return ScoreQuery{
		LeaderboardName: lb.Name,
		LeaderboardID:   lb.ID,
		Mode:            QueryLocalUserOnly,
		TimeScope:       TimeScopeAllTime,
		UserScope:       UserScopeGlobal,
	}
}

func (q ScoreQuery) Validate() error {
	if strings.TrimSpace(q.LeaderboardID) == "" {
		return errors.New("empty leaderboard id")
	}
	switch q.Mode {
	case QueryDefault, QueryLocalUserOnly:
	case QueryRanged:
		if q.FromRank < 1 || q.ScoreCount < 1 {
			return fmt.Errorf("%w: from_rank=%d score_count=%d", ErrInvalidRange, q.FromRank, q.ScoreCount)
		}
	default:
		return fmt.Errorf("invalid query mode %d", q.Mode)
	}
	return nil
}

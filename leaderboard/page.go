package leaderboard

import (
	"fmt"
	"time"

	"gamekit/core"
)

// BucketKey names the board a score lands in for the given scope and time.
// All-time boards use the bare leaderboard id; weekly boards are keyed by ISO week and
// daily boards by UTC date.
func BucketKey(leaderboardID string, scope core.TimeScope, at time.Time) string {
	at = at.UTC()
	switch scope {
	case core.TimeScopeWeek:
		y, w := at.ISOWeek()
		return fmt.Sprintf("%s:week:%04d-W%02d", leaderboardID, y, w)
	case core.TimeScopeToday:
		return fmt.Sprintf("%s:day:%s", leaderboardID, at.Format("2006-01-02"))
	default:
		return leaderboardID
	}
}

// BucketScopes lists every scope a submitted score is recorded under.
var BucketScopes = []core.TimeScope{core.TimeScopeAllTime, core.TimeScopeWeek, core.TimeScopeToday}

// Page answers q for user against an already scoped board.
// LocalUserScore is set whenever the user is ranked, regardless of mode.
func Page(board Board, user core.UserID, q core.ScoreQuery) core.ScorePage {
	page := core.ScorePage{Scores: []core.Score{}}
	rank := board.Rank(user)
	if rank > 0 {
		if e, ok := board.Get(user); ok {
			s := ToScore(q.LeaderboardID, rank, e)
			page.LocalUserScore = &s
		}
	}
	from, count, ok := Window(q, rank, board.Len())
	if !ok {
		return page
	}
	for i, e := range board.Range(from, count) {
		page.Scores = append(page.Scores, ToScore(q.LeaderboardID, from+i, e))
	}
	return page
}

// Window returns the rank range a query lists. ok is false for local-user-only queries.
func Window(q core.ScoreQuery, rank, size int) (from, count int, ok bool) {
	switch q.Mode {
	case core.QueryLocalUserOnly:
		return 0, 0, false
	case core.QueryRanged:
		return q.FromRank, q.ScoreCount, true
	default:
		return DefaultWindow(rank, size), core.DefaultScoreCount, true
	}
}

// DefaultWindow returns the first rank of a DefaultScoreCount window centred on rank,
// or 1 when the user is unranked.
func DefaultWindow(rank, size int) int {
	if rank <= 0 {
		return 1
	}
	from := rank - core.DefaultScoreCount/2
	if last := size - core.DefaultScoreCount + 1; from > last {
		from = last
	}
	if from < 1 {
		from = 1
	}
	return from
}

func ToScore(leaderboardID string, rank int, e Entry) core.Score {
	return core.Score{
		LeaderboardID:  leaderboardID,
		UserID:         e.User,
		Rank:           rank,
		Value:          e.Score,
		FormattedValue: core.FormatScore(e.Score),
		Date:           e.Updated,
	}
}

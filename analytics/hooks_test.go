package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamekit/core"
)

func at(e core.Event, ts time.Time) core.Event {
	e.Time = ts
	return e
}

func TestActivity_OnEvent(t *testing.T) {
	a := NewActivity()
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	a.OnEvent(ctx, at(core.NewLoginSucceeded("amy"), now))
	a.OnEvent(ctx, at(core.NewLoginFailed("bob"), now))
	a.OnEvent(ctx, at(core.NewScoreReported("amy", "global", 300), now))
	a.OnEvent(ctx, at(core.NewScoreReported("bob", "global", 900), now))
	a.OnEvent(ctx, at(core.NewScoreReported("amy", "weekly", 50), now))
	a.OnEvent(ctx, at(core.NewAchievementProgress("amy", "first_win", 40), now))
	a.OnEvent(ctx, at(core.NewAchievementProgress("amy", "first_win", 100), now))
	a.OnEvent(ctx, at(core.NewAchievementProgress("amy", "first_win", 100), now))
	a.OnEvent(ctx, at(core.NewScoresLoaded("amy", "global", 25), now))

	assert.Equal(t, 2, a.WeeklyActiveUsers("2026-W43"))
	assert.Equal(t, int64(3), a.ScoresReportedOn("2026-10-19"))
	assert.Equal(t, 1, a.UniqueUnlockers("first_win"))

	s := a.Summary(1)
	assert.Equal(t, int64(1), s.Logins)
	assert.Equal(t, int64(1), s.LoginFailures)
	assert.Equal(t, int64(1), s.ScoreQueries)
	assert.Equal(t, int64(2), s.Unlocks)
	require.Len(t, s.TopLeaderboards, 1)
	assert.Equal(t, LeaderboardStat{Leaderboard: "global", Submissions: 2, BestValue: 900}, s.TopLeaderboards[0])
}

func TestBridgeDailyActive(t *testing.T) {
	activity := NewActivity()
	other := NewActivity()
	bridge := NewBridge(activity, other)
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	bridge.OnEvent(context.Background(), at(core.NewScoreReported("amy", "global", 1), now))
	bridge.OnEvent(context.Background(), at(core.NewScoreReported("amy", "global", 2), now))
	bridge.OnEvent(context.Background(), at(core.NewSignedOut("cat"), now.Add(24*time.Hour)))

	assert.Equal(t, 1, activity.DailyActiveUsers("2026-10-19"))
	assert.Equal(t, 1, activity.DailyActiveUsers("2026-10-20"))
	assert.Equal(t, activity.Summary(0), other.Summary(0))

	s := activity.SummaryAt(now.Add(24*time.Hour), 0)
	assert.Equal(t, 1, s.ActiveToday)
	assert.Equal(t, 2, s.ActiveThisWeek)
	assert.Equal(t, int64(2), s.TopLeaderboards[0].Submissions)
}

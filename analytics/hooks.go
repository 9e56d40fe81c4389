package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gamekit/core"
)

// Hook receives game-services events. The signature matches an event bus handler.
type Hook interface {
	OnEvent(ctx context.Context, e core.Event)
}

// BridgeHook fans one event source out to multiple hooks.
type BridgeHook struct{ hooks []Hook }

func NewBridge(hooks ...Hook) *BridgeHook { return &BridgeHook{hooks: hooks} }

func (b *BridgeHook) OnEvent(ctx context.Context, e core.Event) {
	for _, h := range b.hooks {
		h.OnEvent(ctx, e)
	}
}

// Activity aggregates engagement counters from game-services events.
type Activity struct {
	mu sync.RWMutex

	dailyActive  map[string]map[core.UserID]struct{}
	weeklyActive map[string]map[core.UserID]struct{}
	logins       int64
	loginFails   int64
	scoresByDay  map[string]int64
	scoresByLB   map[string]int64
	bestByLB     map[string]int64
	unlocksByAch map[string]int64
	unlockers    map[string]map[core.UserID]struct{}
	queries      int64
}

func NewActivity() *Activity {
	return &Activity{
		dailyActive:  map[string]map[core.UserID]struct{}{},
		weeklyActive: map[string]map[core.UserID]struct{}{},
		scoresByDay:  map[string]int64{},
		scoresByLB:   map[string]int64{},
		bestByLB:     map[string]int64{},
		unlocksByAch: map[string]int64{},
		unlockers:    map[string]map[core.UserID]struct{}{},
	}
}

func (a *Activity) OnEvent(_ context.Context, e core.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.UserID != "" {
		markActive(a.dailyActive, dayKey(e.Time), e.UserID)
		markActive(a.weeklyActive, weekKey(e.Time), e.UserID)
	}

	switch e.Type {
	case core.EventLoginSucceeded:
		a.logins++
	case core.EventLoginFailed:
		a.loginFails++
	case core.EventScoreReported:
		a.scoresByDay[dayKey(e.Time)]++
		a.scoresByLB[e.Leaderboard]++
		if best, ok := a.bestByLB[e.Leaderboard]; !ok || e.Value > best {
			a.bestByLB[e.Leaderboard] = e.Value
		}
	case core.EventAchievementProgress:
		if e.Progress < 100 {
			return
		}
		a.unlocksByAch[e.Achievement]++
		if a.unlockers[e.Achievement] == nil {
			a.unlockers[e.Achievement] = map[core.UserID]struct{}{}
		}
		a.unlockers[e.Achievement][e.UserID] = struct{}{}
	case core.EventScoresLoaded:
		a.queries++
	}
}

// DailyActiveUsers returns the distinct users seen on a UTC day (YYYY-MM-DD).
func (a *Activity) DailyActiveUsers(day string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.dailyActive[day])
}

// WeeklyActiveUsers returns the distinct users seen in an ISO week key such as "2026-W43".
func (a *Activity) WeeklyActiveUsers(week string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.weeklyActive[week])
}

// ScoresReportedOn returns how many scores were reported on a UTC day (YYYY-MM-DD).
func (a *Activity) ScoresReportedOn(day string) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scoresByDay[day]
}

// UniqueUnlockers returns how many distinct users completed an achievement.
func (a *Activity) UniqueUnlockers(achievement string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.unlockers[achievement])
}

// LeaderboardStat summarises submissions to one leaderboard.
type LeaderboardStat struct {
	Leaderboard string `json:"leaderboard"`
	Submissions int64  `json:"submissions"`
	BestValue   int64  `json:"best_value"`
}

// Summary is a point-in-time view of Activity.
type Summary struct {
	ActiveToday     int               `json:"active_today"`
	ActiveThisWeek  int               `json:"active_this_week"`
	Logins          int64             `json:"logins"`
	LoginFailures   int64             `json:"login_failures"`
	ScoreQueries    int64             `json:"score_queries"`
	Unlocks         int64             `json:"unlocks"`
	TopLeaderboards []LeaderboardStat `json:"top_leaderboards"`
}

// Summary returns totals plus the limit busiest leaderboards.
func (a *Activity) Summary(limit int) Summary {
	return a.SummaryAt(time.Now(), limit)
}

// SummaryAt is Summary with the active-user windows taken around now.
func (a *Activity) SummaryAt(now time.Time, limit int) Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Summary{
		ActiveToday:     len(a.dailyActive[dayKey(now)]),
		ActiveThisWeek:  len(a.weeklyActive[weekKey(now)]),
		Logins:          a.logins,
		LoginFailures:   a.loginFails,
		ScoreQueries:    a.queries,
		TopLeaderboards: make([]LeaderboardStat, 0, len(a.scoresByLB)),
	}
	for _, n := range a.unlocksByAch {
		s.Unlocks += n
	}
	for lb, n := range a.scoresByLB {
		s.TopLeaderboards = append(s.TopLeaderboards, LeaderboardStat{Leaderboard: lb, Submissions: n, BestValue: a.bestByLB[lb]})
	}
	sort.Slice(s.TopLeaderboards, func(i, j int) bool {
		x, y := s.TopLeaderboards[i], s.TopLeaderboards[j]
		if x.Submissions != y.Submissions {
			return x.Submissions > y.Submissions
		}
		return x.Leaderboard < y.Leaderboard
	})
	if limit > 0 && len(s.TopLeaderboards) > limit {
		s.TopLeaderboards = s.TopLeaderboards[:limit]
	}
	return s
}

func markActive(m map[string]map[core.UserID]struct{}, key string, user core.UserID) {
	if m[key] == nil {
		m[key] = map[core.UserID]struct{}{}
	}
	m[key][user] = struct{}{}
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

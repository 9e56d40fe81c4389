package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamekit/core"
)

// newTestClient spins up a miniredis server and returns it with a client.
func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func seed(t *testing.T, p *Platform, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		id := core.UserID(fmt.Sprintf("p%03d", i))
		require.NoError(t, p.RegisterUser(ctx, core.UserProfile{ID: id}))
		require.NoError(t, p.SubmitScore(ctx, id, "lb.global", int64(10000-i)))
	}
}

func TestPlatform_Profiles(t *testing.T) {
	_, client := newTestClient(t)
	p := NewWithClient(client)
	ctx := context.Background()

	require.NoError(t, p.RegisterUser(ctx, core.UserProfile{ID: " amy ", Name: "Amy"}))
	require.NoError(t, p.RegisterUser(ctx, core.UserProfile{ID: "amy"}))
	require.NoError(t, p.RegisterUser(ctx, core.UserProfile{ID: "bob"}))

	prof, err := p.Profile(ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, core.UserProfile{ID: "amy", Name: "Amy"}, prof)

	_, err = p.Profile(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	profiles, err := p.Profiles(ctx, []core.UserID{"bob", "ghost", "amy"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "bob", profiles[0].Name)

	require.NoError(t, p.AddFriend(ctx, "amy", "bob"))
	friends, err := p.Friends(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, core.UserID("amy"), friends[0].ID)
	assert.True(t, friends[0].IsFriend)
	assert.ErrorIs(t, p.AddFriend(ctx, "amy", "ghost"), core.ErrUserNotFound)
	assert.Error(t, p.AddFriend(ctx, "amy", "amy"))
}

func TestPlatform_DefaultAndRangedQueries(t *testing.T) {
	_, client := newTestClient(t)
	p := NewWithClient(client)
	seed(t, p, 60)
	ctx := context.Background()
	lb := core.Leaderboard{Name: "g", ID: "lb.global"}

	page, err := p.QueryScores(ctx, "p040", core.DefaultQuery(lb))
	require.NoError(t, err)
	require.Len(t, page.Scores, core.DefaultScoreCount)
	assert.Equal(t, 28, page.Scores[0].Rank)
	assert.Equal(t, core.UserID("p028"), page.Scores[0].UserID)
	assert.Equal(t, int64(9972), page.Scores[0].Value)
	require.NotNil(t, page.LocalUserScore)
	assert.Equal(t, 40, page.LocalUserScore.Rank)
	assert.False(t, page.LocalUserScore.Date.IsZero())

	page, err = p.QueryScores(ctx, "p001", core.RangedQuery(lb, 58, 10, core.TimeScopeAllTime, core.UserScopeGlobal))
	require.NoError(t, err)
	require.Len(t, page.Scores, 3)
	assert.Equal(t, 60, page.Scores[2].Rank)

	page, err = p.QueryScores(ctx, "p002", core.LocalUserQuery(lb))
	require.NoError(t, err)
	assert.Empty(t, page.Scores)
	assert.Equal(t, 2, page.LocalUserScore.Rank)

	page, err = p.QueryScores(ctx, "p002", core.DefaultQuery(core.Leaderboard{Name: "x", ID: "lb.empty"}))
	require.NoError(t, err)
	assert.Empty(t, page.Scores)
	assert.Nil(t, page.LocalUserScore)
}

func TestPlatform_TiesOrderByUser(t *testing.T) {
	_, client := newTestClient(t)
	p := NewWithClient(client)
	ctx := context.Background()
	for _, id := range []core.UserID{"cat", "amy", "bob"} {
		require.NoError(t, p.RegisterUser(ctx, core.UserProfile{ID: id}))
		require.NoError(t, p.SubmitScore(ctx, id, "lb", 50))
	}
	page, err := p.QueryScores(ctx, "amy", core.RangedQuery(core.Leaderboard{ID: "lb"}, 1, 3, core.TimeScopeAllTime, core.UserScopeGlobal))
	require.NoError(t, err)
	require.Len(t, page.Scores, 3)
	assert.Equal(t, []core.UserID{"amy", "bob", "cat"},
		[]core.UserID{page.Scores[0].UserID, page.Scores[1].UserID, page.Scores[2].UserID})
}

func TestPlatform_BestScoreAndBuckets(t *testing.T) {
	mr, client := newTestClient(t)
	day := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	now := day
	p := NewWithClient(client, WithClock(func() time.Time { return now }), WithKeyPrefix("test"))
	ctx := context.Background()
	lb := core.Leaderboard{ID: "lb"}
	require.NoError(t, p.RegisterUser(ctx, core.UserProfile{ID: "amy"}))

	require.NoError(t, p.SubmitScore(ctx, "amy", "lb", 800))
	require.NoError(t, p.SubmitScore(ctx, "amy", "lb", 300))
	now = day.Add(24 * time.Hour)
	require.NoError(t, p.SubmitScore(ctx, "amy", "lb", 400))

	all, err := p.QueryScores(ctx, "amy", core.LocalUserQuery(lb))
	require.NoError(t, err)
	assert.Equal(t, int64(800), all.LocalUserScore.Value)

	today, err := p.QueryScores(ctx, "amy", core.RangedQuery(lb, 1, 5, core.TimeScopeToday, core.UserScopeGlobal))
	require.NoError(t, err)
	require.Len(t, today.Scores, 1)
	assert.Equal(t, int64(400), today.Scores[0].Value)

	week, err := p.QueryScores(ctx, "amy", core.RangedQuery(lb, 1, 5, core.TimeScopeWeek, core.UserScopeGlobal))
	require.NoError(t, err)
	assert.Equal(t, int64(800), week.Scores[0].Value)

	assert.True(t, mr.Exists("test:lb:lb:day:2026-10-20"))
	assert.Greater(t, mr.TTL("test:lb:lb:day:2026-10-20"), time.Duration(0))
	assert.Equal(t, time.Duration(0), mr.TTL("test:lb:lb"))
}

func TestPlatform_FriendsScope(t *testing.T) {
	_, client := newTestClient(t)
	p := NewWithClient(client)
	seed(t, p, 10)
	ctx := context.Background()
	require.NoError(t, p.AddFriend(ctx, "p006", "p003"))
	require.NoError(t, p.AddFriend(ctx, "p006", "p010"))

	page, err := p.QueryScores(ctx, "p006", core.RangedQuery(core.Leaderboard{ID: "lb.global"}, 1, 10, core.TimeScopeAllTime, core.UserScopeFriendsOnly))
	require.NoError(t, err)
	require.Len(t, page.Scores, 3)
	assert.Equal(t, core.UserID("p003"), page.Scores[0].UserID)
	assert.Equal(t, core.UserID("p010"), page.Scores[2].UserID)
	assert.Equal(t, 2, page.LocalUserScore.Rank)
}

func TestPlatform_ProgressIsMonotonic(t *testing.T) {
	_, client := newTestClient(t)
	p := NewWithClient(client)
	ctx := context.Background()
	require.NoError(t, p.RegisterUser(ctx, core.UserProfile{ID: "amy"}))

	v, err := p.SetProgress(ctx, "amy", "ach.a", 25.5)
	require.NoError(t, err)
	assert.Equal(t, 25.5, v)
	v, err = p.SetProgress(ctx, "amy", "ach.a", 10)
	require.NoError(t, err)
	assert.Equal(t, 25.5, v)
	v, err = p.SetProgress(ctx, "amy", "ach.a", 500)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	got, err := p.Progress(ctx, "amy", "ach.a")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)
	got, err = p.Progress(ctx, "amy", "ach.none")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestPrefs(t *testing.T) {
	_, client := newTestClient(t)
	prefs := NewPrefs(client, "gamekit", "device-1")
	ctx := context.Background()

	v, err := prefs.GetInt(ctx, "counter", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
	require.NoError(t, prefs.SetInt(ctx, "counter", 2))
	require.NoError(t, prefs.Save(ctx))
	v, err = prefs.GetInt(ctx, "counter", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	raw, err := client.HGet(ctx, "gamekit:prefs:device-1", "counter").Result()
	require.NoError(t, err)
	assert.Equal(t, "2", raw)
}

func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Equal(t, 0, config.DB)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 2, config.MinIdleConns)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
	assert.Equal(t, "gamekit", config.KeyPrefix)
}

func TestKeysJoin(t *testing.T) {
	assert.Equal(t, "gamekit:user:amy:profile", keys{prefix: "gamekit"}.profile("amy"))
	assert.Equal(t, "lb:x:ts", keys{}.stamps("x"))
}

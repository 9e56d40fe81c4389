package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "gamekit/adapters/memory"
	"gamekit/api/httpapi"
	"gamekit/core"
	"gamekit/engine"
	"gamekit/notifications"
	"gamekit/realtime"
)

// newTestServer serves the real HTTP API over an in-memory platform.
func newTestServer(t *testing.T, opts httpapi.Options) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	hub := realtime.NewHub()
	opts.PathPrefix = "/api"
	opts.Publish = hub.Broadcast
	opts.Notifications = notifications.NewIDAllocator(mem.NewPrefs(), "")
	srv := httptest.NewServer(httpapi.NewMux(mem.NewPlatform(), hub, opts))
	t.Cleanup(srv.Close)
	return srv, hub
}

func TestClient_UsersFriendsScores(t *testing.T) {
	srv, _ := newTestServer(t, httpapi.Options{APIKeys: []string{"k1"}})
	client, err := NewClient(srv.URL+"/api", WithAPIKey("k1"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.RegisterUser(ctx, core.UserProfile{ID: "alice", Name: "Alice"}))
	require.NoError(t, client.RegisterUser(ctx, core.UserProfile{ID: "bob"}))
	require.NoError(t, client.AddFriend(ctx, "alice", "bob"))

	profile, err := client.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)

	users, err := client.Profiles(ctx, []core.UserID{"bob", "ghost"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, core.UserID("bob"), users[0].ID)

	friends, err := client.Friends(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.True(t, friends[0].IsFriend)

	require.NoError(t, client.SubmitScore(ctx, "alice", "lb.global", 300))
	require.NoError(t, client.SubmitScore(ctx, "bob", "lb.global", 500))

	lb := core.Leaderboard{Name: "global", ID: "lb.global"}
	page, err := client.QueryScores(ctx, "alice", core.RangedQuery(lb, 1, 10, core.TimeScopeAllTime, core.UserScopeGlobal))
	require.NoError(t, err)
	require.Len(t, page.Scores, 2)
	assert.Equal(t, core.UserID("bob"), page.Scores[0].UserID)
	require.NotNil(t, page.LocalUserScore)
	assert.Equal(t, 2, page.LocalUserScore.Rank)

	stored, err := client.SetProgress(ctx, "alice", "ach.first_win", 40)
	require.NoError(t, err)
	assert.Equal(t, 40.0, stored)
	got, err := client.Progress(ctx, "alice", "ach.first_win")
	require.NoError(t, err)
	assert.Equal(t, 40.0, got)

	id, err := client.NextNotificationID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestClient_ErrorsMapToSentinels(t *testing.T) {
	srv, _ := newTestServer(t, httpapi.Options{})
	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Profile(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrUserNotFound)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	require.NoError(t, client.RegisterUser(ctx, core.UserProfile{ID: "alice"}))
	lb := core.Leaderboard{Name: "global", ID: "lb.global"}
	_, err = client.QueryScores(ctx, "alice", core.RangedQuery(lb, 0, 5, core.TimeScopeAllTime, core.UserScopeGlobal))
	assert.ErrorIs(t, err, core.ErrInvalidRange)

	_, err = client.Profile(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestClient_MissingAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, httpapi.Options{APIKeys: []string{"k1"}})
	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)

	_, err = client.Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Code)
}

func TestClient_SubscribeEvents(t *testing.T) {
	srv, hub := newTestServer(t, httpapi.Options{})
	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := client.SubscribeEvents(ctx, "alice", core.EventScoreReported)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, client.RegisterUser(ctx, core.UserProfile{ID: "alice"}))
	require.NoError(t, client.RegisterUser(ctx, core.UserProfile{ID: "bob"}))
	require.NoError(t, client.SubmitScore(ctx, "bob", "lb.global", 1))
	require.NoError(t, client.SubmitScore(ctx, "alice", "lb.global", 7))

	select {
	case evt := <-events:
		assert.Equal(t, core.EventScoreReported, evt.Type)
		assert.Equal(t, core.UserID("alice"), evt.UserID)
		assert.Equal(t, int64(7), evt.Value)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestBackend_DrivesGameServices(t *testing.T) {
	srv, _ := newTestServer(t, httpapi.Options{})
	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)
	ctx := context.Background()

	for _, u := range []core.UserID{"p1", "p2", "p3"} {
		require.NoError(t, client.RegisterUser(ctx, core.UserProfile{ID: u}))
	}
	require.NoError(t, client.SubmitScore(ctx, "p1", "lb.global", 30))
	require.NoError(t, client.SubmitScore(ctx, "p2", "lb.global", 20))
	require.NoError(t, client.SubmitScore(ctx, "p3", "lb.global", 10))

	catalog := &core.Catalog{Leaderboards: []core.Leaderboard{{Name: "global", ID: "lb.global"}}}
	bus := engine.NewEventBus(engine.DispatchSync)
	gs := engine.NewGameServices(client.Backend(core.UserProfile{ID: "p2"}), catalog, bus, mem.NewPrefs(),
		engine.WithQueueOptions(engine.WithQueueDispatch(engine.DispatchAsync)))
	defer gs.Close()
	require.NoError(t, gs.Init(ctx))

	var (
		mu    sync.Mutex
		order []string
		wg    sync.WaitGroup
	)
	wg.Add(2)
	gs.LoadScores(ctx, "global", func(name string, scores []core.Score) {
		mu.Lock()
		order = append(order, "default")
		mu.Unlock()
		assert.Len(t, scores, 3)
		wg.Done()
	})
	gs.LoadLocalUserScore(ctx, "global", func(name string, score *core.Score) {
		mu.Lock()
		order = append(order, "local")
		mu.Unlock()
		if assert.NotNil(t, score) {
			assert.Equal(t, 2, score.Rank)
		}
		wg.Done()
	})
	wg.Wait()
	assert.Equal(t, []string{"default", "local"}, order)
}

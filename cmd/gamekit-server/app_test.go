package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamekit/analytics"
	"gamekit/core"
	"gamekit/realtime"
)

func TestBuildAppMemory(t *testing.T) {
	t.Setenv("GAMEKIT_PROFILE", "testing")
	t.Setenv("GAMEKIT_METRICS_ENABLED", "true")
	t.Setenv("GAMEKIT_PREFS_ADAPTER", "file")
	t.Setenv("GAMEKIT_PREFS_FILE_PATH", t.TempDir()+"/prefs.json")

	app, cleanup, err := BuildApp(context.Background())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "testing", app.Config.Profile)

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users/alice", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leaderboards/lb.global/scores",
		strings.NewReader(`{"user_id":"alice","value":10}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	// the async bus delivers to analytics eventually
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		var s analytics.Summary
		_ = json.Unmarshal(rec.Body.Bytes(), &s)
		return len(s.TopLeaderboards) == 1
	}, time.Second, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gamekit_http_requests_total")

	ev := core.NewSignedOut("alice")
	_, ch := app.Hub.Subscribe(1, realtime.Filter{User: "alice"})
	app.Bus.Publish(context.Background(), ev)
	select {
	case got := <-ch:
		assert.Equal(t, core.EventSignedOut, got.Type)
	case <-time.After(time.Second):
		t.Fatal("hub did not receive bus event")
	}
}

func TestBuildAppRejectsUnknownPlatform(t *testing.T) {
	t.Setenv("GAMEKIT_PLATFORM_ADAPTER", "etcd")
	_, _, err := BuildApp(context.Background())
	assert.Error(t, err)
}

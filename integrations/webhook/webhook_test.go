package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"gamekit/core"
)

func TestSink_OnEventPostsToEndpoints(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.ReadAll(r.Body)
		_ = r.Body.Close()
	}))
	defer srv.Close()

	sink := New([]string{srv.URL, srv.URL})
	sink.OnEvent(context.Background(), core.NewScoreReported("u1", "global", 5))

	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", hits)
	}
}

func TestSink_SignsBody(t *testing.T) {
	var ok atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ok.Store(r.Header.Get(SignatureHeader) == Sign([]byte("s3cret"), body))
	}))
	defer srv.Close()

	New([]string{srv.URL}, WithSecret("s3cret")).OnEvent(context.Background(), core.NewLoginSucceeded("u1"))
	if !ok.Load() {
		t.Fatal("signature header missing or wrong")
	}
}

func TestSink_FiltersEventTypes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL}, WithEventTypes(core.EventAchievementProgress))
	sink.OnEvent(context.Background(), core.NewScoreReported("u1", "global", 5))
	sink.OnEvent(context.Background(), core.NewAchievementProgress("u1", "first_win", 100))

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", hits)
	}
}

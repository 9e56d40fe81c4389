package gamify

import (
	"context"
	"testing"
	"time"

	mem "gamekit/adapters/memory"
	"gamekit/core"
	"gamekit/engine"
	"gamekit/realtime"
)

type countingObserver struct{ queued, completed int }

func (c *countingObserver) RequestQueued(int)                   { c.queued++ }
func (c *countingObserver) RequestStarted(core.ScoreQuery, int) {}
func (c *countingObserver) RequestCompleted(core.ScoreQuery, time.Duration, error) {
	c.completed++
}

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	platform := mem.NewPlatform()
	obs := &countingObserver{}
	svc := New(
		WithRealtime(hub),
		WithBackend(engine.NewLocalBackend(platform, core.UserProfile{ID: "alice"})),
		WithCatalog(&core.Catalog{Leaderboards: []core.Leaderboard{{Name: "global", ID: "lb.global"}}}),
		WithDispatchMode(engine.DispatchSync),
		WithQueueObserver(obs),
	)
	defer svc.Close()

	_, ch := hub.Subscribe(4, realtime.Filter{})
	ctx := context.Background()
	if err := svc.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if ev := <-ch; ev.Type != core.EventLoginSucceeded || ev.UserID != "alice" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if err := svc.ReportScore(ctx, 42, "global"); err != nil {
		t.Fatalf("report score: %v", err)
	}
	var got []core.Score
	svc.LoadScores(ctx, "global", func(_ string, scores []core.Score) { got = scores })
	if len(got) != 1 || got[0].Value != 42 {
		t.Fatalf("unexpected scores %+v", got)
	}
	if obs.queued != 1 || obs.completed != 1 {
		t.Fatalf("observer saw queued=%d completed=%d", obs.queued, obs.completed)
	}
}

func TestInMemoryFallback(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync))
	defer svc.Close()

	ctx := context.Background()
	if svc.IsInitialized() {
		t.Fatal("expected uninitialized service")
	}
	ok, err := svc.ManagedInit(ctx)
	if err != nil || !ok {
		t.Fatalf("managed init ok=%v err=%v", ok, err)
	}
	if !svc.IsInitialized() {
		t.Fatal("expected initialized service")
	}
	if _, err := svc.LoadFriends(ctx); err != nil {
		t.Fatalf("load friends: %v", err)
	}
}

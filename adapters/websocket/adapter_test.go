package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"gamekit/core"
	"gamekit/realtime"
)

func dial(t *testing.T, url string) *gorillaws.Conn {
	t.Helper()
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitSubscribers(t *testing.T, hub *realtime.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, hub.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandlerStreamsEvents(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):] // convert http->ws
	conn := dial(t, wsURL)
	waitSubscribers(t, hub, 1)

	hub.Broadcast(context.Background(), core.NewScoreReported("alice", "global", 5))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var received core.Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if received.UserID != "alice" || received.Value != 5 {
		t.Fatalf("unexpected event: %+v", received)
	}
}

func TestHandlerAppliesQueryFilter(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn := dial(t, "ws"+server.URL[len("http"):]+"/?user=bob&types=achievement_progress")
	waitSubscribers(t, hub, 1)

	ctx := context.Background()
	hub.Broadcast(ctx, core.NewScoreReported("bob", "global", 1))
	hub.Broadcast(ctx, core.NewAchievementProgress("alice", "first_win", 100))
	hub.Broadcast(ctx, core.NewAchievementProgress("bob", "first_win", 50))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var received core.Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if received.UserID != "bob" || received.Type != core.EventAchievementProgress || received.Progress != 50 {
		t.Fatalf("unexpected event: %+v", received)
	}
}

func TestHandlerUnsubscribesOnClose(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+server.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	waitSubscribers(t, hub, 1)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after client close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

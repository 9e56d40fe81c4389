package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mem "gamekit/adapters/memory"
	"gamekit/api/httpapi"
	"gamekit/core"
	"gamekit/engine"
	"gamekit/realtime"
)

const demoLeaderboard = "lb.global"

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	platform := mem.NewPlatform()
	bus := engine.NewEventBus(engine.DispatchAsync)
	defer bus.Close()
	hub := realtime.NewHub()
	bus.SubscribeAll(hub.Broadcast)

	bots, err := seed(ctx, platform, 30)
	if err != nil {
		slog.Error("seed demo data", "error", err)
		os.Exit(1)
	}
	go simulate(ctx, platform, bus, bots, 2*time.Second)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           httpapi.NewMux(platform, hub, httpapi.Options{PathPrefix: "/api", AllowCORSOrigin: "*", Publish: bus.Publish}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting demo server on :8080", "leaderboard", demoLeaderboard, "bots", len(bots))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

// seed registers n bots with friendships to their neighbours and an opening score each.
func seed(ctx context.Context, p engine.Platform, n int) ([]core.UserID, error) {
	bots := make([]core.UserID, 0, n)
	for i := 1; i <= n; i++ {
		id := core.UserID(fmt.Sprintf("bot%02d", i))
		if err := p.RegisterUser(ctx, core.UserProfile{ID: id, Name: fmt.Sprintf("Bot %d", i)}); err != nil {
			return nil, err
		}
		if err := p.SubmitScore(ctx, id, demoLeaderboard, int64(rand.IntN(10_000))); err != nil {
			return nil, err
		}
		if i > 1 {
			if err := p.AddFriend(ctx, id, bots[i-2]); err != nil {
				return nil, err
			}
		}
		bots = append(bots, id)
	}
	return bots, nil
}

// simulate has a random bot post a new score every interval.
func simulate(ctx context.Context, p engine.Platform, bus *engine.EventBus, bots []core.UserID, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bot := bots[rand.IntN(len(bots))]
			value := int64(rand.IntN(20_000))
			if err := p.SubmitScore(ctx, bot, demoLeaderboard, value); err != nil {
				slog.Warn("bot score failed", "bot", bot, "error", err)
				continue
			}
			bus.Publish(ctx, core.NewScoreReported(bot, demoLeaderboard, value))
		}
	}
}

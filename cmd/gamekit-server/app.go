package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"gamekit/adapters/jsonfile"
	mem "gamekit/adapters/memory"
	redisAdapter "gamekit/adapters/redis"
	sqlxAdapter "gamekit/adapters/sqlx"
	"gamekit/analytics"
	"gamekit/api/httpapi"
	"gamekit/config"
	"gamekit/core"
	"gamekit/engine"
	"gamekit/integrations/webhook"
	"gamekit/metrics"
	"gamekit/notifications"
	"gamekit/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Hub      *realtime.Hub
	Bus      *engine.EventBus
	Platform engine.Platform
	Handler  http.Handler
	Server   *http.Server
}

// provideConfig reads GAMEKIT_CONFIG_FILE when set, otherwise the named GAMEKIT_PROFILE,
// otherwise environment defaults.
func provideConfig() (*config.Config, error) {
	if path := os.Getenv("GAMEKIT_CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	if profile := os.Getenv("GAMEKIT_PROFILE"); profile != "" && profile != "default" {
		return config.LoadProfile(profile)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideMetrics(cfg *config.Config) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New(cfg.Metrics.Namespace)
}

func provideActivity() *analytics.Activity {
	return analytics.NewActivity()
}

// providePlatform creates the multi-user store selected by configuration.
func providePlatform(cfg *config.Config, logger *slog.Logger) (engine.Platform, func(), error) {
	switch cfg.Platform.Adapter {
	case "memory":
		return mem.NewPlatform(), func() {}, nil
	case "redis":
		p, err := redisAdapter.New(cfg.Platform.Redis)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {
			if err := p.Close(); err != nil {
				logger.Error("close redis platform", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown platform adapter: %s", cfg.Platform.Adapter)
	}
}

// providePrefs creates the server-side preference store.
func providePrefs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.PrefsStore, func(), error) {
	switch cfg.Prefs.Adapter {
	case "memory":
		return mem.NewPrefs(), func() {}, nil
	case "file":
		p, err := jsonfile.New(cfg.Prefs.File.Path)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {
			if err := p.Save(context.Background()); err != nil {
				logger.Error("save prefs", "error", err)
			}
		}, nil
	case "redis":
		client, err := redisAdapter.Connect(cfg.Platform.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisAdapter.NewPrefs(client, cfg.Platform.Redis.KeyPrefix, cfg.Prefs.Name), func() { _ = client.Close() }, nil
	case "sql":
		p, err := sqlxAdapter.New(cfg.Prefs.SQL)
		if err != nil {
			return nil, nil, err
		}
		// fail fast when the table is missing and auto migration is off
		if _, err := p.GetInt(ctx, notifications.CurrentIDKey, 0); err != nil {
			_ = p.Close()
			return nil, nil, fmt.Errorf("probe prefs table: %w", err)
		}
		return p, func() { _ = p.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown prefs adapter: %s", cfg.Prefs.Adapter)
	}
}

func provideNotifications(cfg *config.Config, prefs engine.PrefsStore) *notifications.IDAllocator {
	return notifications.NewIDAllocator(prefs, cfg.Notifications.IDPrefix)
}

// provideBus fans platform events out to realtime subscribers, analytics and webhooks.
func provideBus(cfg *config.Config, logger *slog.Logger, hub *realtime.Hub, activity *analytics.Activity) (*engine.EventBus, func()) {
	bus := engine.NewEventBus(engine.DispatchAsync)
	bus.SubscribeAll(hub.Broadcast)
	bus.SubscribeAll(analytics.NewBridge(activity).OnEvent)

	if len(cfg.Webhooks.Endpoints) > 0 {
		types := make([]core.EventType, 0, len(cfg.Webhooks.Events))
		for _, ev := range cfg.Webhooks.Events {
			types = append(types, core.EventType(ev))
		}
		sink := webhook.New(cfg.Webhooks.Endpoints,
			webhook.WithSecret(cfg.Webhooks.Secret),
			webhook.WithEventTypes(types...),
			webhook.WithLogger(logger.With("component", "webhook")),
		)
		bus.SubscribeAll(sink.OnEvent)
	}
	return bus, bus.Close
}

func provideHandler(
	cfg *config.Config,
	logger *slog.Logger,
	platform engine.Platform,
	hub *realtime.Hub,
	bus *engine.EventBus,
	m *metrics.Metrics,
	ids *notifications.IDAllocator,
	activity *analytics.Activity,
) http.Handler {
	opts := httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		Publish:          bus.Publish,
		Notifications:    ids,
		Stats:            activity,
		Logger:           logger.With("component", "httpapi"),
	}
	if m != nil {
		opts.Observer = m
		opts.MetricsHandler = m.Handler()
		opts.MetricsPath = cfg.Metrics.Path
	}
	return httpapi.NewMux(platform, hub, opts)
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

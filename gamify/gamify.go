// Package gamify assembles a ready-to-use GameServices with sensible defaults.
package gamify

import (
	"log/slog"

	mem "gamekit/adapters/memory"
	"gamekit/core"
	"gamekit/engine"
	"gamekit/realtime"
)

// Option configures the GameServices builder.
type Option func(*config)

type config struct {
	backend       engine.Backend
	user          core.UserProfile
	catalog       *core.Catalog
	prefs         engine.PrefsStore
	mode          engine.DispatchMode
	queueMode     engine.DispatchMode
	maxLogins     int
	hub           *realtime.Hub
	logger        *slog.Logger
	queueObserver engine.QueueObserver
}

// WithBackend sets the game-services backend.
func WithBackend(b engine.Backend) Option { return func(c *config) { c.backend = b } }

// WithLocalUser sets the player used by the default in-memory backend.
func WithLocalUser(u core.UserProfile) Option { return func(c *config) { c.user = u } }

// WithCatalog sets the leaderboard and achievement table.
func WithCatalog(cat *core.Catalog) Option { return func(c *config) { c.catalog = cat } }

// WithPrefs sets the store for persisted counters.
func WithPrefs(p engine.PrefsStore) Option { return func(c *config) { c.prefs = p } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithQueueDispatch selects where the score queue drains.
func WithQueueDispatch(m engine.DispatchMode) Option { return func(c *config) { c.queueMode = m } }

// WithMaxLoginRequests caps ManagedInit prompts; zero or less means unlimited.
func WithMaxLoginRequests(n int) Option { return func(c *config) { c.maxLogins = n } }

// WithRealtime wires a realtime hub to receive all service events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithQueueObserver instruments the score queue, e.g. with *metrics.Metrics.
func WithQueueObserver(o engine.QueueObserver) Option {
	return func(c *config) { c.queueObserver = o }
}

// New builds a configured GameServices. If not provided, defaults are used:
//   - backend: in-memory platform acting as the local user
//   - catalog: empty
//   - prefs: in-memory
//   - dispatch: async events, sync queue
//   - max login requests: unlimited
func New(opts ...Option) *engine.GameServices {
	cfg := &config{
		user:      core.UserProfile{ID: "local", Name: "Local Player"},
		mode:      engine.DispatchAsync,
		queueMode: engine.DispatchSync,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.backend == nil {
		cfg.backend = engine.NewLocalBackend(mem.NewPlatform(), cfg.user)
	}
	if cfg.catalog == nil {
		cfg.catalog = &core.Catalog{}
	}
	if cfg.prefs == nil {
		cfg.prefs = mem.NewPrefs()
	}

	queueOpts := []engine.QueueOption{engine.WithQueueDispatch(cfg.queueMode)}
	if cfg.queueObserver != nil {
		queueOpts = append(queueOpts, engine.WithQueueObserver(cfg.queueObserver))
	}
	svcOpts := []engine.ServiceOption{
		engine.WithMaxLoginRequests(cfg.maxLogins),
		engine.WithQueueOptions(queueOpts...),
	}
	if cfg.logger != nil {
		svcOpts = append(svcOpts, engine.WithLogger(cfg.logger))
	}

	bus := engine.NewEventBus(cfg.mode)
	if cfg.hub != nil {
		bus.SubscribeAll(cfg.hub.Broadcast)
	}
	return engine.NewGameServices(cfg.backend, cfg.catalog, bus, cfg.prefs, svcOpts...)
}

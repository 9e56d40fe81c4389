package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gamekit/core"
)

// LoginRequestKey is the prefs key counting unanswered login prompts.
const LoginRequestKey = "login_request_number"

// Achievement progress values understood by every backend.
const (
	ProgressRevealed = 0.0
	ProgressUnlocked = 100.0
)

// ScoresFunc receives the leaderboard name and the loaded scores. Failures arrive as an
// empty slice.
type ScoresFunc func(leaderboardName string, scores []core.Score)

// LocalScoreFunc receives the local user's score, or nil when there is none.
type LocalScoreFunc func(leaderboardName string, score *core.Score)

// GameServices is the cross-platform facade over a Backend: authentication, leaderboards,
// achievements and friends for one local user.
type GameServices struct {
	backend Backend
	catalog *core.Catalog
	bus     *EventBus
	prefs   PrefsStore
	queue   *ScoreRequestQueue
	logger  *slog.Logger

	maxLoginRequests int

	mu      sync.Mutex
	friends []core.UserProfile
}

// ServiceOption configures GameServices.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger           *slog.Logger
	maxLoginRequests int
	queueOpts        []QueueOption
}

// WithLogger sets the logger used by the service and its queue.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = l }
}

// WithMaxLoginRequests caps how many times ManagedInit prompts for login. Zero or less
// means unlimited.
func WithMaxLoginRequests(n int) ServiceOption {
	return func(o *serviceOptions) { o.maxLoginRequests = n }
}

// WithQueueOptions forwards options to the score request queue.
func WithQueueOptions(opts ...QueueOption) ServiceOption {
	return func(o *serviceOptions) { o.queueOpts = append(o.queueOpts, opts...) }
}

func NewGameServices(backend Backend, catalog *core.Catalog, bus *EventBus, prefs PrefsStore, opts ...ServiceOption) *GameServices {
	if backend == nil || catalog == nil || bus == nil || prefs == nil {
		panic("NewGameServices requires non-nil backend, catalog, bus, and prefs")
	}
	o := serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("component", "gameservices")
	queueOpts := append([]QueueOption{WithQueueLogger(logger)}, o.queueOpts...)
	return &GameServices{
		backend:          backend,
		catalog:          catalog,
		bus:              bus,
		prefs:            prefs,
		queue:            NewScoreRequestQueue(backend, queueOpts...),
		logger:           logger,
		maxLoginRequests: o.maxLoginRequests,
	}
}

// Queue exposes the score request queue for instrumentation and shutdown.
func (g *GameServices) Queue() *ScoreRequestQueue { return g.queue }

// Catalog returns the leaderboard and achievement table.
func (g *GameServices) Catalog() *core.Catalog { return g.catalog }

func (g *GameServices) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return g.bus.Subscribe(typ, handler)
}

func (g *GameServices) Publish(ctx context.Context, ev core.Event) {
	g.bus.Publish(ctx, ev)
}

func (g *GameServices) Close() { g.bus.Close() }

// IsInitialized reports whether the local user is authenticated and the service is usable.
func (g *GameServices) IsInitialized() bool {
	return g.backend.IsUserAuthenticated()
}

// Init authenticates the local user and publishes the outcome.
func (g *GameServices) Init(ctx context.Context) error {
	user := g.backend.LocalUser().ID
	if err := g.backend.Authenticate(ctx); err != nil {
		g.logger.Warn("login failed", "user", user, "error", err)
		g.bus.Publish(ctx, core.NewLoginFailed(user))
		return fmt.Errorf("authenticate: %w", err)
	}
	g.logger.Info("login succeeded", "user", user)
	if err := g.prefs.SetInt(ctx, LoginRequestKey, 0); err != nil {
		g.logger.Warn("reset login request counter", "key", LoginRequestKey, "error", err)
	} else if err := g.prefs.Save(ctx); err != nil {
		g.logger.Warn("save login request counter", "key", LoginRequestKey, "error", err)
	}
	g.bus.Publish(ctx, core.NewLoginSucceeded(user))
	return nil
}

// ManagedInit calls Init unless the user is already authenticated or has already been
// asked to log in the maximum number of times. It reports whether Init was attempted.
func (g *GameServices) ManagedInit(ctx context.Context) (bool, error) {
	if g.IsInitialized() {
		return false, nil
	}
	attempts, err := g.prefs.GetInt(ctx, LoginRequestKey, 0)
	if err != nil {
		return false, fmt.Errorf("read login request counter: %w", err)
	}
	if g.maxLoginRequests > 0 && attempts >= int64(g.maxLoginRequests) {
		g.logger.Info("skipping init: max login requests exceeded", "attempts", attempts, "max", g.maxLoginRequests)
		return false, nil
	}
	attempts++
	if err := g.prefs.SetInt(ctx, LoginRequestKey, attempts); err != nil {
		return false, fmt.Errorf("write login request counter: %w", err)
	}
	if err := g.prefs.Save(ctx); err != nil {
		return false, fmt.Errorf("save prefs: %w", err)
	}
	return true, g.Init(ctx)
}

// LoadScores loads the leaderboard's default window: scores around the local user,
// all time, global.
func (g *GameServices) LoadScores(ctx context.Context, leaderboardName string, cb ScoresFunc) {
	g.LoadScoresResult(ctx, g.defaultQuery(leaderboardName), quiet(cb))
}

// LoadScoresRange loads count scores starting at fromRank within the given scopes.
func (g *GameServices) LoadScoresRange(ctx context.Context, leaderboardName string, fromRank, count int, ts core.TimeScope, us core.UserScope, cb ScoresFunc) {
	q := core.ScoreQuery{
		LeaderboardName: leaderboardName,
		Mode:            core.QueryRanged,
		FromRank:        fromRank,
		ScoreCount:      count,
		TimeScope:       ts,
		UserScope:       us,
	}
	g.LoadScoresResult(ctx, q, quiet(cb))
}

// LoadLocalUserScore loads the local user's own score.
func (g *GameServices) LoadLocalUserScore(ctx context.Context, leaderboardName string, cb LocalScoreFunc) {
	q := core.ScoreQuery{LeaderboardName: leaderboardName, Mode: core.QueryLocalUserOnly}
	g.LoadScoresResult(ctx, q, func(r ScoreResult) {
		if cb == nil {
			return
		}
		if len(r.Scores) == 0 {
			cb(r.LeaderboardName, nil)
			return
		}
		s := r.Scores[0]
		cb(r.LeaderboardName, &s)
	})
}

// LoadScoresResult is the error-aware variant of the score loaders. The query's
// LeaderboardName is resolved through the catalog; LeaderboardID is overwritten.
// Unauthenticated users, unknown names and invalid ranges complete synchronously
// without touching the queue.
func (g *GameServices) LoadScoresResult(ctx context.Context, q core.ScoreQuery, cb ResultFunc) {
	if cb == nil {
		cb = func(ScoreResult) {}
	}
	reject := func(err error) {
		g.logger.Info("score load rejected", "leaderboard", q.LeaderboardName, "error", err)
		cb(ScoreResult{LeaderboardName: q.LeaderboardName, Query: q, Scores: []core.Score{}, Err: err})
	}
	if !g.IsInitialized() {
		reject(core.ErrNotAuthenticated)
		return
	}
	lb, ok := g.catalog.LeaderboardByName(q.LeaderboardName)
	if !ok {
		reject(fmt.Errorf("%w: %q", core.ErrUnknownLeaderboard, q.LeaderboardName))
		return
	}
	q.LeaderboardID = lb.ID
	if err := q.Validate(); err != nil {
		reject(err)
		return
	}
	user := g.backend.LocalUser().ID
	g.queue.Submit(ctx, q, func(r ScoreResult) {
		if r.Err == nil {
			g.bus.Publish(ctx, core.NewScoresLoaded(user, r.LeaderboardName, len(r.Scores)))
		}
		cb(r)
	})
}

// FetchScores runs q through LoadScoresResult and waits for the outcome.
// It must not be called from a score callback when the queue dispatches synchronously:
// the result it waits for can only be produced after that callback returns.
func (g *GameServices) FetchScores(ctx context.Context, q core.ScoreQuery) ScoreResult {
	if ctx == nil {
		ctx = context.Background()
	}
	ch := make(chan ScoreResult, 1)
	g.LoadScoresResult(ctx, q, func(r ScoreResult) { ch <- r })
	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		return ScoreResult{
			LeaderboardName: q.LeaderboardName,
			Query:           q,
			Scores:          []core.Score{},
			Err:             fmt.Errorf("%w: %v", core.ErrRequestCanceled, ctx.Err()),
		}
	}
}

func (g *GameServices) defaultQuery(name string) core.ScoreQuery {
	return core.ScoreQuery{
		LeaderboardName: name,
		Mode:            core.QueryDefault,
		TimeScope:       core.TimeScopeAllTime,
		UserScope:       core.UserScopeGlobal,
	}
}

func quiet(cb ScoresFunc) ResultFunc {
	return func(r ScoreResult) {
		if cb != nil {
			cb(r.LeaderboardName, r.Scores)
		}
	}
}

// ReportScore submits value to the named leaderboard.
func (g *GameServices) ReportScore(ctx context.Context, value int64, leaderboardName string) error {
	lb, ok := g.catalog.LeaderboardByName(leaderboardName)
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrUnknownLeaderboard, leaderboardName)
	}
	if !g.IsInitialized() {
		return core.ErrNotAuthenticated
	}
	if err := g.backend.ReportScore(ctx, lb.ID, value); err != nil {
		return fmt.Errorf("report score to %s: %w", lb.ID, err)
	}
	g.bus.Publish(ctx, core.NewScoreReported(g.backend.LocalUser().ID, lb.Name, value))
	return nil
}

// RevealAchievement reveals a hidden achievement.
func (g *GameServices) RevealAchievement(ctx context.Context, achievementName string) error {
	return g.ReportAchievementProgress(ctx, achievementName, ProgressRevealed)
}

// UnlockAchievement completes an achievement.
func (g *GameServices) UnlockAchievement(ctx context.Context, achievementName string) error {
	return g.ReportAchievementProgress(ctx, achievementName, ProgressUnlocked)
}

// ReportAchievementProgress reports progress in percent (0 reveals, 100 unlocks).
func (g *GameServices) ReportAchievementProgress(ctx context.Context, achievementName string, progress float64) error {
	a, ok := g.catalog.AchievementByName(achievementName)
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrUnknownAchievement, achievementName)
	}
	if progress < ProgressRevealed || progress > ProgressUnlocked {
		return fmt.Errorf("progress %.2f out of range [0, 100]", progress)
	}
	if !g.IsInitialized() {
		return core.ErrNotAuthenticated
	}
	if err := g.backend.ReportProgress(ctx, a.ID, progress); err != nil {
		return fmt.Errorf("report progress for %s: %w", a.ID, err)
	}
	g.bus.Publish(ctx, core.NewAchievementProgress(g.backend.LocalUser().ID, a.Name, progress))
	return nil
}

// LoadFriends returns the local user's friends. The first successful load is cached
// until SignOut.
func (g *GameServices) LoadFriends(ctx context.Context) ([]core.UserProfile, error) {
	if !g.IsInitialized() {
		return []core.UserProfile{}, core.ErrNotAuthenticated
	}
	g.mu.Lock()
	cached := g.friends
	g.mu.Unlock()
	if len(cached) > 0 {
		return append([]core.UserProfile(nil), cached...), nil
	}
	friends, err := g.backend.LoadFriends(ctx)
	if err != nil {
		return []core.UserProfile{}, fmt.Errorf("load friends: %w", err)
	}
	g.mu.Lock()
	g.friends = append([]core.UserProfile(nil), friends...)
	g.mu.Unlock()
	return friends, nil
}

// LoadUsers returns the profiles for ids.
func (g *GameServices) LoadUsers(ctx context.Context, ids []core.UserID) ([]core.UserProfile, error) {
	if !g.IsInitialized() {
		return []core.UserProfile{}, core.ErrNotAuthenticated
	}
	users, err := g.backend.LoadUsers(ctx, ids)
	if err != nil {
		return []core.UserProfile{}, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

// SignOut logs the local user out. It is a no-op when not authenticated.
func (g *GameServices) SignOut(ctx context.Context) error {
	if !g.IsInitialized() {
		return nil
	}
	user := g.backend.LocalUser().ID
	if err := g.backend.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	g.mu.Lock()
	g.friends = nil
	g.mu.Unlock()
	g.bus.Publish(ctx, core.NewSignedOut(user))
	return nil
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	wsadapter "gamekit/adapters/websocket"
	"gamekit/analytics"
	"gamekit/core"
	"gamekit/engine"
	"gamekit/notifications"
	"gamekit/realtime"
)

// HTTPObserver records served requests, e.g. *metrics.Metrics.
type HTTPObserver interface {
	ObserveHTTP(route, method string, code int, elapsed time.Duration)
}

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int

	// Publish receives platform events produced by write routes. Optional.
	Publish func(context.Context, core.Event)
	// Observer records per-route request counts and latency. Optional.
	Observer HTTPObserver
	// MetricsHandler is mounted at MetricsPath outside auth and rate limiting. Optional.
	MetricsHandler http.Handler
	MetricsPath    string
	// Notifications enables POST {prefix}/notifications/ids. Optional.
	Notifications *notifications.IDAllocator
	// Stats enables GET {prefix}/stats. Optional.
	Stats  *analytics.Activity
	Logger *slog.Logger
}

type api struct {
	platform engine.Platform
	opts     Options
	logger   *slog.Logger
}

// NewMux builds an http.Handler exposing the platform REST API and WebSocket stream.
// Routes:
//   - POST {prefix}/users/{id}                      register (body {"name"})
//   - GET  {prefix}/users/{id}
//   - GET  {prefix}/users?ids=a,b
//   - POST {prefix}/users/{id}/friends/{friend}
//   - GET  {prefix}/users/{id}/friends
//   - POST {prefix}/leaderboards/{lb}/scores         body {"user_id","value"}
//   - GET  {prefix}/leaderboards/{lb}/scores?user=&mode=&from=&count=&time=&scope=
//   - POST {prefix}/achievements/{ach}/progress      body {"user_id","progress"}
//   - GET  {prefix}/achievements/{ach}/progress?user=
//   - POST {prefix}/notifications/ids
//   - GET  {prefix}/stats
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewMux(platform engine.Platform, hub *realtime.Hub, opts Options) http.Handler {
	a := &api{platform: platform, opts: opts, logger: opts.Logger}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	mux := http.NewServeMux()
	handle := func(method, path string, h http.HandlerFunc) {
		route := withPrefix(opts.PathPrefix, path)
		mux.Handle(method+" "+route, a.observe(route, h))
	}

	handle(http.MethodGet, "/healthz", a.healthCheck)

	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	handle(http.MethodPost, "/users/{id}", a.registerUser)
	handle(http.MethodGet, "/users/{id}", a.getUser)
	handle(http.MethodGet, "/users", a.getUsers)
	handle(http.MethodPost, "/users/{id}/friends/{friend}", a.addFriend)
	handle(http.MethodGet, "/users/{id}/friends", a.getFriends)
	handle(http.MethodPost, "/leaderboards/{lb}/scores", a.submitScore)
	handle(http.MethodGet, "/leaderboards/{lb}/scores", a.queryScores)
	handle(http.MethodPost, "/achievements/{ach}/progress", a.setProgress)
	handle(http.MethodGet, "/achievements/{ach}/progress", a.getProgress)
	if opts.Notifications != nil {
		handle(http.MethodPost, "/notifications/ids", a.nextNotificationID)
	}
	if opts.Stats != nil {
		handle(http.MethodGet, "/stats", a.stats)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	handler = withRequestID(handler)

	if opts.MetricsHandler == nil {
		return handler
	}
	root := http.NewServeMux()
	path := opts.MetricsPath
	if path == "" {
		path = "/metrics"
	}
	root.Handle("GET "+path, opts.MetricsHandler)
	root.Handle("/", handler)
	return root
}

func (a *api) publish(ctx context.Context, ev core.Event) {
	if a.opts.Publish != nil {
		a.opts.Publish(ctx, ev)
	}
}

// healthCheck verifies the platform answers a lightweight lookup.
func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	_, err := a.platform.Profile(r.Context(), core.UserID("healthcheck_probe"))

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"platform": "ok",
		},
	}
	code := http.StatusOK
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["platform"] = "failed"
		a.logger.Warn("health check failed", "error", err)
	}
	writeJSONStatus(w, code, status)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSONStatus(w, status, apiError{Code: code, Message: msg, Details: details})
}

// writePlatformError maps platform sentinel errors to HTTP responses.
func (a *api) writePlatformError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error(), nil)
	case errors.Is(err, core.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error(), nil)
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusRequestTimeout, "canceled", err.Error(), nil)
	default:
		a.logger.Error("platform call failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"gamekit/adapters/sqlx"
	"gamekit/core"
)

func oneOf(field, value string, allowed ...string) string {
	if slices.Contains(allowed, value) {
		return ""
	}
	return fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", "))
}

func joinErrs(errs []string) error {
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs []string
	if s.Address == "" {
		errs = append(errs, "address cannot be empty")
	}
	if s.PathPrefix != "" && !strings.HasPrefix(s.PathPrefix, "/") {
		errs = append(errs, "path_prefix must start with /")
	}
	for name, d := range map[string]int64{
		"read_timeout":        int64(s.ReadTimeout),
		"write_timeout":       int64(s.WriteTimeout),
		"idle_timeout":        int64(s.IdleTimeout),
		"read_header_timeout": int64(s.ReadHeaderTimeout),
		"shutdown_timeout":    int64(s.ShutdownTimeout),
	} {
		if d <= 0 {
			errs = append(errs, name+" must be positive")
		}
	}
	slices.Sort(errs)
	return joinErrs(errs)
}

// Validate validates platform configuration
func (p *PlatformConfig) Validate() error {
	var errs []string
	if msg := oneOf("adapter", p.Adapter, "memory", "redis"); msg != "" {
		errs = append(errs, msg)
	}
	if p.Adapter == "redis" && p.Redis.Addr == "" {
		errs = append(errs, "redis.addr cannot be empty")
	}
	return joinErrs(errs)
}

// Validate validates prefs configuration
func (p *PrefsConfig) Validate() error {
	var errs []string
	if msg := oneOf("adapter", p.Adapter, "memory", "redis", "sql", "file"); msg != "" {
		errs = append(errs, msg)
	}
	switch p.Adapter {
	case "file":
		if err := p.File.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("file config: %v", err))
		}
	case "sql":
		if p.SQL.Driver != sqlx.DriverPostgres && p.SQL.Driver != sqlx.DriverMySQL {
			errs = append(errs, "sql.driver must be one of: postgres, mysql")
		}
		if p.SQL.DSN == "" {
			errs = append(errs, "sql.dsn cannot be empty")
		}
	case "redis":
		if p.Name == "" {
			errs = append(errs, "name cannot be empty")
		}
	}
	return joinErrs(errs)
}

// Validate validates file prefs configuration
func (f *FileConfig) Validate() error {
	if f.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

// Validate validates game services configuration. A configured catalog file is
// validated when loaded.
func (g *GameServicesConfig) Validate() error {
	var errs []string
	if msg := oneOf("queue_dispatch", g.QueueDispatch, "sync", "async"); msg != "" {
		errs = append(errs, msg)
	}
	if g.CatalogFile == "" {
		if err := g.Catalog.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("catalog: %v", err))
		}
	}
	return joinErrs(errs)
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	var errs []string
	for _, msg := range []string{
		oneOf("level", l.Level, "debug", "info", "warn", "error"),
		oneOf("format", l.Format, "json", "text"),
		oneOf("output", l.Output, "stdout", "stderr"),
	} {
		if msg != "" {
			errs = append(errs, msg)
		}
	}
	return joinErrs(errs)
}

// Validate validates metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && !strings.HasPrefix(m.Path, "/") {
		return errors.New("path must start with / when metrics are enabled")
	}
	return nil
}

// Validate validates security settings.
func (s SecurityConfig) Validate() error {
	var errs []string
	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Sprintf("api_keys[%d] is empty", i))
		}
	}
	return joinErrs(errs)
}

// Validate validates webhook endpoints and event filters.
func (w *WebhooksConfig) Validate() error {
	var errs []string
	for i, ep := range w.Endpoints {
		u, err := url.Parse(ep)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("endpoints[%d] must be an http(s) URL", i))
		}
	}
	known := []string{
		string(core.EventLoginSucceeded), string(core.EventLoginFailed), string(core.EventSignedOut),
		string(core.EventScoreReported), string(core.EventAchievementProgress), string(core.EventScoresLoaded),
		string(core.EventUserRegistered), string(core.EventFriendAdded),
	}
	for _, ev := range w.Events {
		if !slices.Contains(known, ev) {
			errs = append(errs, fmt.Sprintf("unknown event type %q", ev))
		}
	}
	return joinErrs(errs)
}

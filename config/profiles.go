package config

import (
	"fmt"
	"time"
)

// LoadProfile returns the defaults for a named deployment profile, with environment
// overrides and secrets applied, validated.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	switch Environment(name) {
	case EnvDevelopment:
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
		cfg.GameServices.MaxLoginRequests = 0
	case EnvTesting:
		cfg.Server.Address = "127.0.0.1:0"
		cfg.Logging.Level = "warn"
		cfg.Logging.Format = "text"
		cfg.GameServices.QueueDispatch = "sync"
		cfg.Server.ShutdownTimeout = 2 * time.Second
	case EnvStaging:
		cfg.Metrics.Enabled = true
		cfg.Security.EnableRateLimit = true
		cfg.Security.RateLimit.RequestsPerMinute = 300
		cfg.Security.RateLimit.BurstSize = 50
	case EnvProduction:
		cfg.Server.CORSOrigin = ""
		cfg.Logging.Level = "warn"
		cfg.Metrics.Enabled = true
		cfg.Platform.Adapter = "redis"
		cfg.Prefs.Adapter = "redis"
		cfg.Security.EnableRateLimit = true
		cfg.Security.RateLimit.RequestsPerMinute = 120
		cfg.Security.RateLimit.BurstSize = 20
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	cfg.Environment = Environment(name)
	cfg.Profile = name
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

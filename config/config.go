package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gamekit/adapters/redis"
	"gamekit/adapters/sqlx"
	"gamekit/core"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"GAMEKIT_ENV"`
	Profile     string      `json:"profile" env:"GAMEKIT_PROFILE"`

	Server        ServerConfig        `json:"server"`
	Platform      PlatformConfig      `json:"platform"`
	Prefs         PrefsConfig         `json:"prefs"`
	GameServices  GameServicesConfig  `json:"game_services"`
	Notifications NotificationsConfig `json:"notifications"`
	Logging       LoggingConfig       `json:"logging"`
	Metrics       MetricsConfig       `json:"metrics"`
	Security      SecurityConfig      `json:"security"`
	Webhooks      WebhooksConfig      `json:"webhooks"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"GAMEKIT_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"GAMEKIT_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"GAMEKIT_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"GAMEKIT_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"GAMEKIT_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"GAMEKIT_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"GAMEKIT_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"GAMEKIT_SERVER_SHUTDOWN_TIMEOUT"`
}

// PlatformConfig selects the multi-user store served over HTTP.
type PlatformConfig struct {
	Adapter string       `json:"adapter" env:"GAMEKIT_PLATFORM_ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty"`
}

// PrefsConfig selects where small persisted counters (login prompts, notification ids) live.
type PrefsConfig struct {
	Adapter string      `json:"adapter" env:"GAMEKIT_PREFS_ADAPTER"`
	Name    string      `json:"name" env:"GAMEKIT_PREFS_NAME"`
	SQL     sqlx.Config `json:"sql,omitempty"`
	File    FileConfig  `json:"file,omitempty"`
}

// FileConfig holds JSON file prefs configuration
type FileConfig struct {
	Path string `json:"path" env:"GAMEKIT_PREFS_FILE_PATH"`
}

// GameServicesConfig configures the client facade and its score queue.
type GameServicesConfig struct {
	// MaxLoginRequests caps ManagedInit prompts; zero or less means unlimited.
	MaxLoginRequests int    `json:"max_login_requests" env:"GAMEKIT_MAX_LOGIN_REQUESTS"`
	QueueDispatch    string `json:"queue_dispatch" env:"GAMEKIT_QUEUE_DISPATCH"`
	// CatalogFile points at a YAML catalog; when set it replaces Catalog.
	CatalogFile string       `json:"catalog_file,omitempty" env:"GAMEKIT_CATALOG_FILE"`
	Catalog     core.Catalog `json:"catalog"`
}

// NotificationsConfig configures local notification id allocation.
type NotificationsConfig struct {
	IDPrefix string `json:"id_prefix" env:"GAMEKIT_NOTIFICATION_ID_PREFIX"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"GAMEKIT_LOG_LEVEL"`
	Format     string            `json:"format" env:"GAMEKIT_LOG_FORMAT"`
	Output     string            `json:"output" env:"GAMEKIT_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" env:"GAMEKIT_LOG_ATTRIBUTES"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" env:"GAMEKIT_METRICS_ENABLED"`
	Path      string `json:"path" env:"GAMEKIT_METRICS_PATH"`
	Namespace string `json:"namespace" env:"GAMEKIT_METRICS_NAMESPACE"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"GAMEKIT_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" env:"GAMEKIT_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" env:"GAMEKIT_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int           `json:"burst_size" env:"GAMEKIT_SECURITY_RATE_LIMIT_BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" env:"GAMEKIT_SECURITY_RATE_LIMIT_CLEANUP"`
}

// WebhooksConfig lists endpoints that receive platform events.
type WebhooksConfig struct {
	Endpoints []string `json:"endpoints,omitempty" env:"GAMEKIT_WEBHOOK_ENDPOINTS"`
	Events    []string `json:"events,omitempty" env:"GAMEKIT_WEBHOOK_EVENTS"`
	Secret    string   `json:"secret,omitempty"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish applies environment overrides and secrets, then validates.
func finish(cfg *Config) error {
	if err := loadFromEnv(cfg); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := LoadSecretsFromEnv(context.Background(), cfg, NewEnvironmentSecretStore()); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file; environment variables override it.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Platform: PlatformConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
		},
		Prefs: PrefsConfig{
			Adapter: "memory",
			Name:    "server",
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/prefs.json",
			},
		},
		GameServices: GameServicesConfig{
			MaxLoginRequests: 3,
			QueueDispatch:    "async",
			Catalog: core.Catalog{
				Leaderboards: []core.Leaderboard{{Name: "global", ID: "lb.global"}},
				Achievements: []core.Achievement{{Name: "first_score", ID: "ach.first_score"}},
			},
		},
		Notifications: NotificationsConfig{IDPrefix: ""},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Path:      "/metrics",
			Namespace: "gamekit",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
			APIKeys: []string{},
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}
	if err := c.Platform.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("platform config: %v", err))
	}
	if err := c.Prefs.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("prefs config: %v", err))
	}
	if err := c.GameServices.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("game services config: %v", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("metrics config: %v", err))
	}
	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}
	if err := c.Webhooks.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("webhooks config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Prefs.SQL.DSN != "" {
		cfg.Prefs.SQL.DSN = "[REDACTED]"
	}
	if cfg.Platform.Redis.Password != "" {
		cfg.Platform.Redis.Password = "[REDACTED]"
	}
	if cfg.Webhooks.Secret != "" {
		cfg.Webhooks.Secret = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{fmt.Sprintf("[%d REDACTED]", len(c.Security.APIKeys))}
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}

package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Platform.Adapter)
	assert.Equal(t, "memory", cfg.Prefs.Adapter)
	assert.Equal(t, 3, cfg.GameServices.MaxLoginRequests)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GAMEKIT_SERVER_ADDR", ":9999")
	t.Setenv("GAMEKIT_MAX_LOGIN_REQUESTS", "7")
	t.Setenv("GAMEKIT_QUEUE_DISPATCH", "sync")
	t.Setenv("GAMEKIT_SERVER_READ_TIMEOUT", "3s")
	t.Setenv("GAMEKIT_SECURITY_API_KEYS", "k1, k2")
	t.Setenv("GAMEKIT_LOG_ATTRIBUTES", "service=gamekit,region=eu")
	t.Setenv(SecretRedisPassword, "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, 7, cfg.GameServices.MaxLoginRequests)
	assert.Equal(t, "sync", cfg.GameServices.QueueDispatch)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Security.APIKeys)
	assert.Equal(t, map[string]string{"service": "gamekit", "region": "eu"}, cfg.Logging.Attributes)
	assert.Equal(t, "hunter2", cfg.Platform.Redis.Password)
}

func TestLoadEnvRejectsBadValues(t *testing.T) {
	t.Setenv("GAMEKIT_MAX_LOGIN_REQUESTS", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	content := `{
		"environment": "testing",
		"server": {"address": ":9090"},
		"prefs": {"adapter": "file", "file": {"path": "/tmp/gamekit-prefs.json"}},
		"game_services": {
			"queue_dispatch": "sync",
			"catalog": {"leaderboards": [{"name": "weekly", "id": "lb.weekly"}]}
		}
	}`
	path := filepath.Join(t.TempDir(), "gamekit.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, EnvTesting, cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "file", cfg.Prefs.Adapter)
	lb, ok := cfg.GameServices.Catalog.LeaderboardByName("weekly")
	require.True(t, ok)
	assert.Equal(t, "lb.weekly", lb.ID)
	// untouched sections keep their defaults
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{"valid config", func(*Config) {}, ""},
		{"empty environment", func(c *Config) { c.Environment = "" }, "environment cannot be empty"},
		{"zero timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "read_timeout must be positive"},
		{"unknown platform", func(c *Config) { c.Platform.Adapter = "etcd" }, "adapter must be one of: memory, redis"},
		{"sql without dsn", func(c *Config) { c.Prefs.Adapter = "sql" }, "sql.dsn cannot be empty"},
		{"bad dispatch", func(c *Config) { c.GameServices.QueueDispatch = "threaded" }, "queue_dispatch"},
		{"duplicate leaderboard", func(c *Config) {
			c.GameServices.Catalog.Leaderboards = append(c.GameServices.Catalog.Leaderboards, c.GameServices.Catalog.Leaderboards[0])
		}, "catalog"},
		{"rate limit without burst", func(c *Config) {
			c.Security.EnableRateLimit = true
			c.Security.RateLimit.BurstSize = 0
		}, "burst_size"},
		{"bad webhook", func(c *Config) { c.Webhooks.Endpoints = []string{"ftp://example.com"} }, "endpoints[0]"},
		{"unknown webhook event", func(c *Config) { c.Webhooks.Events = []string{"level_up"} }, `unknown event type "level_up"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Environment = ""
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment cannot be empty; ")
	assert.Contains(t, err.Error(), "logging config: level must be one of")
}

func TestProfiles(t *testing.T) {
	tests := []struct {
		name         string
		profileName  string
		expectConfig bool
		environment  Environment
	}{
		{"development", "development", true, EnvDevelopment},
		{"testing", "testing", true, EnvTesting},
		{"staging", "staging", true, EnvStaging},
		{"production", "production", true, EnvProduction},
		{"unknown", "unknown", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadProfile(tt.profileName)
			if tt.expectConfig {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				assert.Equal(t, tt.environment, cfg.Environment)
			} else {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			}
		})
	}
}

func TestProductionProfile(t *testing.T) {
	cfg, err := LoadProfile("production")
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Platform.Adapter)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Security.EnableRateLimit)
}

func TestSecrets(t *testing.T) {
	store := NewEnvironmentSecretStore()

	testKey := "TEST_SECRET_KEY"
	testValue := "test_secret_value"
	t.Setenv(testKey, testValue)

	ctx := context.Background()

	value, err := store.Get(ctx, testKey)
	assert.NoError(t, err)
	assert.Equal(t, testValue, value)

	_, err = store.Get(ctx, "NONEXISTENT_KEY")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	defaultValue := "default"
	value = store.GetWithDefault(ctx, "NONEXISTENT_KEY", defaultValue)
	assert.Equal(t, defaultValue, value)

	value = store.GetWithDefault(ctx, testKey, defaultValue)
	assert.Equal(t, testValue, value)
}

func TestLoadSecretsFromEnv(t *testing.T) {
	keys := filepath.Join(t.TempDir(), "keys")
	require.NoError(t, os.WriteFile(keys, []byte("# operators\nalpha\n\nbeta\n"), 0o600))
	t.Setenv(SecretAPIKeysFile, keys)
	t.Setenv(SecretSQLDSN, "postgres://gamekit@db/gamekit")
	t.Setenv(SecretWebhookSecret, "s3cret")

	cfg := DefaultConfig()
	require.NoError(t, LoadSecretsFromEnv(context.Background(), cfg, NewEnvironmentSecretStore()))

	assert.Equal(t, []string{"alpha", "beta"}, cfg.Security.APIKeys)
	assert.Equal(t, "postgres://gamekit@db/gamekit", cfg.Prefs.SQL.DSN)
	assert.Equal(t, "s3cret", cfg.Webhooks.Secret)
	assert.Empty(t, cfg.Platform.Redis.Password)
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Prefs.SQL.DSN = "postgres://user:pw@db/gamekit"
	cfg.Webhooks.Secret = "s3cret"
	cfg.Security.APIKeys = []string{"k1", "k2"}

	out := cfg.String()
	assert.NotContains(t, out, "pw@db")
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "[2 REDACTED]")
	// original is untouched
	assert.Equal(t, []string{"k1", "k2"}, cfg.Security.APIKeys)
}

func TestValidateConfigPath(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "c.json")
	require.NoError(t, os.WriteFile(good, []byte("{}"), 0o600))

	assert.NoError(t, validateConfigPath(good))
	assert.Error(t, validateConfigPath(""))
	assert.Error(t, validateConfigPath(filepath.Join(dir, "c.yaml")))
	assert.Error(t, validateConfigPath(filepath.Join(dir, "missing.json")))
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
leaderboards:
  - name: global
    id: lb.global
  - name: weekly
    id: lb.weekly
achievements:
  - name: first_win
    id: ach.first_win
`), 0o600))

	c, err := LoadCatalogFile(path)
	require.NoError(t, err)
	assert.Len(t, c.Leaderboards, 2)
	ach, ok := c.AchievementByName("first_win")
	require.True(t, ok)
	assert.Equal(t, "ach.first_win", ach.ID)

	gs := GameServicesConfig{CatalogFile: path}
	c2, err := gs.LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, c, c2)
}

func TestLoadCatalogFileRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
leaderboards:
  - name: global
    id: a
  - name: global
    id: b
`), 0o600))

	_, err := LoadCatalogFile(path)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: "warn", Format: "json", Attributes: map[string]string{"service": "gamekit"}}.NewLoggerTo(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"service":"gamekit"`)
}

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrSecretNotFound is returned when a secret is not set.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore resolves secrets by key.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// EnvironmentSecretStore reads secrets from process environment variables.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return v, nil
}

func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// Secret keys read by LoadSecretsFromEnv.
const (
	SecretRedisPassword = "GAMEKIT_REDIS_PASSWORD"
	SecretSQLDSN        = "GAMEKIT_SQL_DSN"
	SecretWebhookSecret = "GAMEKIT_WEBHOOK_SECRET"
	SecretAPIKeysFile   = "GAMEKIT_API_KEYS_FILE"
)

// LoadSecretsFromEnv fills credential fields that have no plain env mapping. Missing
// secrets leave the configured value untouched.
func LoadSecretsFromEnv(ctx context.Context, cfg *Config, store SecretStore) error {
	set := func(key string, dst *string) error {
		v, err := store.Get(ctx, key)
		if errors.Is(err, ErrSecretNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	if err := set(SecretRedisPassword, &cfg.Platform.Redis.Password); err != nil {
		return err
	}
	if err := set(SecretSQLDSN, &cfg.Prefs.SQL.DSN); err != nil {
		return err
	}
	if err := set(SecretWebhookSecret, &cfg.Webhooks.Secret); err != nil {
		return err
	}

	var keysFile string
	if err := set(SecretAPIKeysFile, &keysFile); err != nil {
		return err
	}
	if keysFile != "" {
		data, err := os.ReadFile(keysFile) // #nosec G304 - operator supplied path
		if err != nil {
			return fmt.Errorf("read api keys file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
				cfg.Security.APIKeys = append(cfg.Security.APIKeys, line)
			}
		}
	}
	return nil
}

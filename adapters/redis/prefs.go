package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Prefs keeps integer preferences in a Redis hash. Writes are durable immediately,
// so Save is a no-op.
type Prefs struct {
	client *redis.Client
	key    string
}

// NewPrefs stores preferences under {prefix}:prefs:{name}.
func NewPrefs(client *redis.Client, prefix, name string) *Prefs {
	return &Prefs{client: client, key: keys{prefix: prefix}.prefs(name)}
}

func (p *Prefs) GetInt(ctx context.Context, key string, def int64) (int64, error) {
	v, err := p.client.HGet(ctx, p.key, key).Int64()
	if errors.Is(err, redis.Nil) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("failed to read pref %s: %w", key, err)
	}
	return v, nil
}

func (p *Prefs) SetInt(ctx context.Context, key string, value int64) error {
	if err := p.client.HSet(ctx, p.key, key, value).Err(); err != nil {
		return fmt.Errorf("failed to write pref %s: %w", key, err)
	}
	return nil
}

func (p *Prefs) Save(context.Context) error { return nil }

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"GAMEKIT_REDIS_ADDR"`
	Password     string        `json:"password,omitempty"`
	DB           int           `json:"db" env:"GAMEKIT_REDIS_DB"`
	PoolSize     int           `json:"pool_size" env:"GAMEKIT_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	// KeyPrefix namespaces every key written by this package.
	KeyPrefix string `json:"key_prefix" env:"GAMEKIT_REDIS_KEY_PREFIX"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "gamekit",
	}
}

// Connect opens a client and verifies the connection with PING.
func Connect(config Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

type keys struct{ prefix string }

func (k keys) join(parts ...string) string {
	out := k.prefix
	for _, p := range parts {
		if out != "" {
			out += ":"
		}
		out += p
	}
	return out
}

func (k keys) profile(user string) string  { return k.join("user", user, "profile") }
func (k keys) friends(user string) string  { return k.join("user", user, "friends") }
func (k keys) progress(user string) string { return k.join("user", user, "progress") }
func (k keys) board(bucket string) string  { return k.join("lb", bucket) }
func (k keys) stamps(bucket string) string { return k.join("lb", bucket, "ts") }
func (k keys) prefs(name string) string    { return k.join("prefs", name) }

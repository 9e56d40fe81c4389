package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Driver names a supported database/sql driver.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL connection settings.
type Config struct {
	Driver          Driver        `json:"driver" env:"GAMEKIT_SQL_DRIVER"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	// Scope separates preference sets sharing one table, e.g. per device or install.
	Scope       string `json:"scope" env:"GAMEKIT_SQL_SCOPE"`
	AutoMigrate bool   `json:"auto_migrate"`
}

func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		Scope:           "default",
		AutoMigrate:     true,
	}
}

// Prefs stores integer preferences in a `prefs` table. SetInt writes through, so Save
// is a no-op.
type Prefs struct {
	db     *sqlx.DB
	driver Driver
	scope  string
}

// New opens the database, verifies the connection and optionally creates the table.
func New(cfg Config) (*Prefs, error) {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverMySQL {
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	db, err := sqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	p := NewWithDB(db, cfg.Driver, cfg.Scope)
	if cfg.AutoMigrate {
		if err := p.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return p, nil
}

// NewWithDB wraps an existing handle (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver, scope string) *Prefs {
	if scope == "" {
		scope = "default"
	}
	return &Prefs{db: db, driver: driver, scope: scope}
}

func (p *Prefs) Close() error { return p.db.Close() }

// EnsureSchema creates the prefs table when missing.
func (p *Prefs) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS prefs (
	scope TEXT NOT NULL,
	pref_key TEXT NOT NULL,
	value BIGINT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (scope, pref_key)
)`
	if p.driver == DriverMySQL {
		ddl = `CREATE TABLE IF NOT EXISTS prefs (
	scope VARCHAR(191) NOT NULL,
	pref_key VARCHAR(191) NOT NULL,
	value BIGINT NOT NULL,
	updated_at DATETIME(6) NOT NULL,
	PRIMARY KEY (scope, pref_key)
)`
	}
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create prefs table: %w", err)
	}
	return nil
}

func (p *Prefs) GetInt(ctx context.Context, key string, def int64) (int64, error) {
	var v int64
	q := p.db.Rebind(`SELECT value FROM prefs WHERE scope = ? AND pref_key = ?`)
	err := p.db.GetContext(ctx, &v, q, p.scope, key)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("read pref %s: %w", key, err)
	}
	return v, nil
}

func (p *Prefs) SetInt(ctx context.Context, key string, value int64) error {
	if _, err := p.db.ExecContext(ctx, p.upsert(), p.scope, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("write pref %s: %w", key, err)
	}
	return nil
}

func (p *Prefs) upsert() string {
	if p.driver == DriverMySQL {
		return `INSERT INTO prefs (scope, pref_key, value, updated_at) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`
	}
	return p.db.Rebind(`INSERT INTO prefs (scope, pref_key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (scope, pref_key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`)
}

func (p *Prefs) Save(context.Context) error { return nil }

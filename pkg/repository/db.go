package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/tendant/simple-admission/internal/logging"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Config holds database connection settings.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// PostgresDSN builds a lib/pq connection string.
func PostgresDSN(host string, port int, user, password, name, sslmode string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslmode,
	)
}

// SQLiteDSN builds a modernc sqlite DSN with WAL, foreign keys and a busy timeout.
func SQLiteDSN(path string) string {
	return filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
}

// DB owns the connection pool. Repositories hold a *DB rather than a raw
// handle so the pool can be replaced after a failed health check.
type DB struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.RWMutex
	conn *sqlx.DB
}

// Open connects using cfg and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("database dsn is required")
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}

	d := &DB{cfg: cfg, logger: logger}
	conn, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	d.conn = conn
	return d, nil
}

func (d *DB) connect(ctx context.Context) (*sqlx.DB, error) {
	conn, err := sqlx.Open(d.cfg.Driver, d.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.cfg.Driver, err)
	}

	if d.cfg.Driver == DriverSQLite {
		// A single writer connection avoids SQLITE_BUSY under concurrent writes.
		conn.SetMaxOpenConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		if d.cfg.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(d.cfg.MaxOpenConns)
		}
		if d.cfg.MaxIdleConns > 0 {
			conn.SetMaxIdleConns(d.cfg.MaxIdleConns)
		}
		if d.cfg.ConnMaxLifetime > 0 {
			conn.SetConnMaxLifetime(d.cfg.ConnMaxLifetime)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, d.cfg.PingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", d.cfg.Driver, err)
	}
	return conn, nil
}

// Conn returns the current pool handle.
func (d *DB) Conn() *sqlx.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conn
}

// Driver returns the configured driver name.
func (d *DB) Driver() string {
	return d.cfg.Driver
}

// HealthCheck pings the current pool.
func (d *DB) HealthCheck(ctx context.Context) error {
	conn := d.Conn()
	if conn == nil {
		return errors.New("database is closed")
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.PingTimeout)
	defer cancel()
	return conn.PingContext(ctx)
}

// Reconnect opens a fresh pool and swaps it in, closing the previous one.
// The old pool is kept if the new one cannot be opened.
func (d *DB) Reconnect(ctx context.Context) error {
	conn, err := d.connect(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	old := d.conn
	d.conn = conn
	d.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			d.logger.Warn("failed to close previous database pool", logging.Err(err))
		}
	}
	return nil
}

// Monitor health checks the pool every interval and reconnects on failure
// until ctx is cancelled.
func (d *DB) Monitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := d.HealthCheck(ctx)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			d.logger.Warn("database health check failed, reconnecting", logging.Err(err))
			if err := d.Reconnect(ctx); err != nil {
				d.logger.Error("database reconnect failed", logging.Err(err))
				continue
			}
			d.logger.Info("database connection re-established")
		}
	}
}

// Close closes the pool.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// Tx runs fn inside a transaction. The transaction is rolled back if fn
// returns an error or panics, and committed otherwise.
func (d *DB) Tx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := d.Conn().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func toMillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := toMillis(*t)
	return &v
}

func fromMillisPtr(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := fromMillis(*v)
	return &t
}

// Package conn owns the live connections to a storage engine and their
// lifecycle: pooling for the server engine, a single serialized
// connection for the embedded file engine, and periodic health checks
// for both.
package conn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lorekeep/lorekeep/internal/debug"
)

// Provider hands out the engine handle and reports health. Exactly one
// provider exists per manager; repositories never see it.
type Provider interface {
	// DB returns the engine handle. The handle itself reconnects lazily,
	// so it stays valid across engine restarts.
	DB() *sql.DB
	// HealthCheck pings the engine.
	HealthCheck(ctx context.Context) error
	// Stats reports connection counters.
	Stats() Stats
	// Close stops background checks and closes the connections.
	Close() error
}

// Stats are point-in-time connection counters.
type Stats struct {
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	FailedHealthChecks int64
	LastHealthCheck    time.Time
}

// PoolConfig tunes the pooled server provider.
type PoolConfig struct {
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	HealthCheckInterval time.Duration
}

// DefaultPoolConfig returns the defaults used when configuration is
// silent.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:        10,
		MaxIdleConns:        4,
		ConnMaxLifetime:     30 * time.Minute,
		ConnMaxIdleTime:     10 * time.Minute,
		HealthCheckInterval: time.Minute,
	}
}

type provider struct {
	db     *sql.DB
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.Mutex
	failedChecks    int64
	lastHealthCheck time.Time

	closeOnce sync.Once
	closeErr  error
}

// NewPooled opens a pooled connection to the server engine. The DSN is
// the go-sql-driver form, e.g. "user:pass@tcp(host:3306)/lorekeep";
// parseTime is forced on so timestamp columns map onto time.Time.
func NewPooled(dsn string, cfg PoolConfig) (Provider, error) {
	if !strings.Contains(dsn, "parseTime") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("conn: open mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return newProvider(db, "mysql", cfg.HealthCheckInterval), nil
}

// NewEmbedded opens the embedded file engine. All access is serialized
// through a single connection; concurrent writers are not allowed by the
// engine, so the handle never holds more than one.
func NewEmbedded(path string, healthInterval time.Duration) (Provider, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("conn: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return newProvider(db, "sqlite", healthInterval), nil
}

func newProvider(db *sql.DB, name string, healthInterval time.Duration) *provider {
	ctx, cancel := context.WithCancel(context.Background())
	p := &provider{db: db, name: name, ctx: ctx, cancel: cancel}
	if healthInterval > 0 {
		p.wg.Add(1)
		go p.healthLoop(healthInterval)
	}
	return p
}

func (p *provider) DB() *sql.DB { return p.db }

func (p *provider) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	p.lastHealthCheck = time.Now()
	p.mu.Unlock()

	if err := p.db.PingContext(ctx); err != nil {
		p.mu.Lock()
		p.failedChecks++
		p.mu.Unlock()
		debug.Warn("health check failed", "engine", p.name, "err", err)
		return fmt.Errorf("conn: health check: %w", err)
	}
	return nil
}

func (p *provider) Stats() Stats {
	p.mu.Lock()
	failed, last := p.failedChecks, p.lastHealthCheck
	p.mu.Unlock()

	dbStats := p.db.Stats()
	return Stats{
		OpenConnections:    dbStats.OpenConnections,
		InUse:              dbStats.InUse,
		Idle:               dbStats.Idle,
		WaitCount:          dbStats.WaitCount,
		FailedHealthChecks: failed,
		LastHealthCheck:    last,
	}
}

func (p *provider) healthLoop(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = p.HealthCheck(ctx)
			cancel()
		}
	}
}

// Close is idempotent; repeated calls return the first result.
func (p *provider) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.closeErr = p.db.Close()
	})
	return p.closeErr
}

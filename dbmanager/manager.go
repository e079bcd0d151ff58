// Package dbmanager is the composition root for the data core. One
// Manager exists per process; it selects the dialect, owns the
// connection provider and executor, hands out repositories lazily, and
// owns shutdown ordering. Consumers receive the Manager by injection so
// tests can construct isolated instances.
package dbmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lorekeep/lorekeep/cache"
	"github.com/lorekeep/lorekeep/config"
	"github.com/lorekeep/lorekeep/conn"
	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/internal/debug"
	"github.com/lorekeep/lorekeep/repository"
	"github.com/lorekeep/lorekeep/schema"
	"github.com/lorekeep/lorekeep/sqlgen"
)

// Manager wires the core together and owns every long-lived resource.
type Manager struct {
	dialect  sqlgen.Dialect
	provider conn.Provider
	exec     *executor.Executor
	cache    *cache.ReadCache

	entriesOnce     sync.Once
	entries         *repository.EntryRepository
	submissionsOnce sync.Once
	submissions     *repository.SubmissionRepository
	itemsOnce       sync.Once
	items           *repository.ItemRepository
	collectionsOnce sync.Once
	collections     *repository.CollectionRepository
	accountsOnce    sync.Once
	accounts        *repository.AccountRepository

	cachedEntriesOnce     sync.Once
	cachedEntries         *cache.CachedEntries
	cachedSubmissionsOnce sync.Once
	cachedSubmissions     *cache.CachedSubmissions

	closeOnce sync.Once
	closeErr  error
}

// New constructs the manager from configuration: dialect, provider,
// executor, and read cache. No repository is built until requested.
func New(cfg *config.Config) (*Manager, error) {
	debug.Init(cfg.Verbose)

	dialect, err := sqlgen.New(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var provider conn.Provider
	switch dialect.Name() {
	case "sqlite":
		provider, err = conn.NewEmbedded(cfg.Path, time.Minute)
	case "mysql":
		pool := conn.DefaultPoolConfig()
		if cfg.MaxOpenConns > 0 {
			pool.MaxOpenConns = cfg.MaxOpenConns
		}
		provider, err = conn.NewPooled(cfg.DSN, pool)
	default:
		err = fmt.Errorf("dbmanager: no provider for dialect %q", dialect.Name())
	}
	if err != nil {
		return nil, err
	}

	exec, err := executor.New(provider.DB(), cfg.Workers)
	if err != nil {
		provider.Close()
		return nil, err
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &Manager{
		dialect:  dialect,
		provider: provider,
		exec:     exec,
		cache:    cache.New(ttl, ttl),
	}, nil
}

// Dialect returns the selected dialect.
func (m *Manager) Dialect() sqlgen.Dialect { return m.dialect }

// Executor returns the shared query executor.
func (m *Manager) Executor() *executor.Executor { return m.exec }

// Provider returns the connection provider, for health reporting.
func (m *Manager) Provider() conn.Provider { return m.provider }

// Migrate applies the full schema.
func (m *Manager) Migrate(ctx context.Context) error {
	return schema.Migrate(ctx, m.exec, m.dialect)
}

// Entries returns the content-entry repository.
func (m *Manager) Entries() *repository.EntryRepository {
	m.entriesOnce.Do(func() {
		m.entries = repository.NewEntryRepository(m.exec, m.dialect)
	})
	return m.entries
}

// Submissions returns the content-submission repository.
func (m *Manager) Submissions() *repository.SubmissionRepository {
	m.submissionsOnce.Do(func() {
		m.submissions = repository.NewSubmissionRepository(m.exec, m.dialect)
	})
	return m.submissions
}

// Items returns the item repository.
func (m *Manager) Items() *repository.ItemRepository {
	m.itemsOnce.Do(func() {
		m.items = repository.NewItemRepository(m.exec, m.dialect)
	})
	return m.items
}

// Collections returns the collection repository.
func (m *Manager) Collections() *repository.CollectionRepository {
	m.collectionsOnce.Do(func() {
		m.collections = repository.NewCollectionRepository(m.exec, m.dialect)
	})
	return m.collections
}

// Accounts returns the account repository.
func (m *Manager) Accounts() *repository.AccountRepository {
	m.accountsOnce.Do(func() {
		m.accounts = repository.NewAccountRepository(m.exec, m.dialect)
	})
	return m.accounts
}

// CachedEntries returns the cache-decorated entry reads.
func (m *Manager) CachedEntries() *cache.CachedEntries {
	m.cachedEntriesOnce.Do(func() {
		m.cachedEntries = cache.NewCachedEntries(m.Entries(), m.cache)
	})
	return m.cachedEntries
}

// CachedSubmissions returns the cache-decorated submission reads.
func (m *Manager) CachedSubmissions() *cache.CachedSubmissions {
	m.cachedSubmissionsOnce.Do(func() {
		m.cachedSubmissions = cache.NewCachedSubmissions(m.Submissions(), m.cache)
	})
	return m.cachedSubmissions
}

// Cache returns the shared read cache.
func (m *Manager) Cache() *cache.ReadCache { return m.cache }

// Close shuts the core down: cache sweeper, then the executor's worker
// pool, then the connection provider. Idempotent.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.cache.Stop()
		m.exec.Close()
		m.closeErr = m.provider.Close()
		debug.Info("data core shut down")
	})
	return m.closeErr
}

package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"stratum/internal/domain/tenant"
	"stratum/internal/shared/config"
	apperrors "stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
)

// Opener abstracts sql.Open so tests can inject a fake driver.
type Opener interface {
	Open(driverName, dsn string) (*sql.DB, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(driverName, dsn string) (*sql.DB, error)

func (f OpenerFunc) Open(driverName, dsn string) (*sql.DB, error) {
	return f(driverName, dsn)
}

// DefaultOpener opens real database handles.
func DefaultOpener() Opener {
	return OpenerFunc(sql.Open)
}

type targetPool struct {
	key string
	db  *sql.DB
}

// Manager owns one bounded connection pool per physical connection
// target. Pools are keyed by server and database, never by tenant:
// every shared-tier and schema-tier tenant on the same database flows
// through the same pool. Tenant scoping happens per checkout, on the
// acquired connection.
type Manager struct {
	cfg    config.PoolConfig
	opener Opener
	logger logger.Interface

	mu    sync.RWMutex
	pools map[string]*targetPool
}

// NewManager creates a pool manager. Pools are opened lazily on first
// acquire for a target.
func NewManager(cfg config.PoolConfig, opener Opener, log logger.Interface) *Manager {
	if opener == nil {
		opener = DefaultOpener()
	}
	return &Manager{
		cfg:    cfg,
		opener: opener,
		logger: log,
		pools:  make(map[string]*targetPool),
	}
}

// Acquire checks out a connection to the target, scoped to the tenant
// according to the target's isolation tier. The wait is bounded by the
// configured acquire timeout; a saturated pool surfaces as a retryable
// pool exhaustion error, never an unbounded block.
func (m *Manager) Acquire(ctx context.Context, tenantSID string, target tenant.ConnectionTarget) (*ScopedConn, error) {
	if target.IsZero() {
		return nil, fmt.Errorf("cannot acquire connection for zero target")
	}

	tp, err := m.poolFor(target)
	if err != nil {
		return nil, err
	}

	acquireCtx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout())
	defer cancel()

	conn, err := tp.db.Conn(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			m.logger.Warnw("connection pool exhausted",
				"pool_key", tp.key,
				"tenant_sid", tenantSID,
				"acquire_timeout", m.cfg.AcquireTimeout(),
			)
			return nil, apperrors.NewPoolExhaustedError(tp.key, retryAfterSeconds(m.cfg.AcquireTimeout()))
		}
		return nil, fmt.Errorf("failed to acquire connection for %s: %w", tp.key, err)
	}

	scoped := &ScopedConn{
		conn:      conn,
		tier:      target.Tier(),
		tenantSID: tenantSID,
		poolKey:   tp.key,
	}

	if err := scoped.bind(ctx, target); err != nil {
		_ = conn.Close()
		m.logger.Errorw("failed to scope connection",
			"pool_key", tp.key,
			"tenant_sid", tenantSID,
			"tier", target.Tier(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to scope connection to tenant %s: %w", tenantSID, err)
	}

	return scoped, nil
}

// poolFor returns the pool serving the target, opening it on first use.
func (m *Manager) poolFor(target tenant.ConnectionTarget) (*targetPool, error) {
	key := target.PoolKey()

	m.mu.RLock()
	tp, ok := m.pools[key]
	m.mu.RUnlock()
	if ok {
		return tp, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another acquirer may have opened it while we waited for the lock.
	if tp, ok := m.pools[key]; ok {
		return tp, nil
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.cfg.Username, m.cfg.Password, target.Host(), target.Port(), target.Database())

	db, err := m.opener.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool for %s: %w", key, err)
	}

	db.SetMaxOpenConns(m.cfg.MaxConnsPerTarget)
	db.SetMaxIdleConns(m.cfg.MaxConnsPerTarget)
	db.SetConnMaxLifetime(m.cfg.ConnMaxLifetime())

	tp = &targetPool{key: key, db: db}
	m.pools[key] = tp

	m.logger.Infow("connection pool opened",
		"pool_key", key,
		"max_conns", m.cfg.MaxConnsPerTarget,
	)

	return tp, nil
}

// EvictTarget closes and removes the pool for a target. Used once a
// migration or decommission leaves a target with no tenants.
func (m *Manager) EvictTarget(poolKey string) error {
	m.mu.Lock()
	tp, ok := m.pools[poolKey]
	if ok {
		delete(m.pools, poolKey)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	if err := tp.db.Close(); err != nil {
		return fmt.Errorf("failed to close pool for %s: %w", poolKey, err)
	}

	m.logger.Infow("connection pool evicted", "pool_key", poolKey)
	return nil
}

// Stats returns per-pool connection statistics keyed by pool key.
func (m *Manager) Stats() map[string]sql.DBStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]sql.DBStats, len(m.pools))
	for key, tp := range m.pools {
		stats[key] = tp.db.Stats()
	}
	return stats
}

// Shutdown closes every pool. In-flight connections are closed by the
// driver as they are released.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[string]*targetPool)
	m.mu.Unlock()

	var firstErr error
	for key, tp := range pools {
		if err := tp.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close pool for %s: %w", key, err)
		}
	}

	if len(pools) > 0 {
		m.logger.Infow("connection pools closed", "count", len(pools))
	}
	return firstErr
}

func retryAfterSeconds(wait time.Duration) int {
	secs := int(wait.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

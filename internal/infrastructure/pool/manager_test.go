package pool

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/domain/tenant"
	"stratum/internal/shared/config"
	apperrors "stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
)

func poolConfig() config.PoolConfig {
	return config.PoolConfig{
		Username:              "stratum",
		Password:              "secret",
		MaxConnsPerTarget:     5,
		AcquireTimeoutMS:      200,
		ConnMaxLifetimeMinute: 10,
	}
}

// mockOpener hands out sqlmock-backed handles and records the DSNs the
// manager asked for.
type mockOpener struct {
	dsns  []string
	mocks []sqlmock.Sqlmock
}

func (o *mockOpener) Open(driverName, dsn string) (*sql.DB, error) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		return nil, err
	}
	o.dsns = append(o.dsns, dsn)
	o.mocks = append(o.mocks, mock)
	return db, nil
}

func sharedTestTarget(t *testing.T) tenant.ConnectionTarget {
	t.Helper()
	target, err := tenant.NewConnectionTarget(tenant.TierShared, "db-shared-01", 3306, "stratum_shared", "")
	require.NoError(t, err)
	return target
}

func schemaTestTarget(t *testing.T, schema string) tenant.ConnectionTarget {
	t.Helper()
	target, err := tenant.NewConnectionTarget(tenant.TierSchema, "db-schema-01", 3306, "stratum_schemas", schema)
	require.NoError(t, err)
	return target
}

func TestManager_Acquire_SharedTierBindsAndClears(t *testing.T) {
	opener := &mockOpener{}
	m := NewManager(poolConfig(), opener, logger.NewLogger())
	defer func() { _ = m.Shutdown() }()
	ctx := context.Background()

	target := sharedTestTarget(t)

	// Expectations are registered lazily: open happens on first acquire.
	conn, err := func() (*ScopedConn, error) {
		// Pre-open the pool so the mock exists for expectations.
		_, err := m.poolFor(target)
		require.NoError(t, err)
		mock := opener.mocks[0]
		mock.ExpectExec("SET @stratum_tenant = ?").
			WithArgs("tn_acme001").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("SET @stratum_tenant = NULL").
			WillReturnResult(sqlmock.NewResult(0, 0))
		return m.Acquire(ctx, "tn_acme001", target)
	}()
	require.NoError(t, err)
	assert.Equal(t, "tn_acme001", conn.TenantSID())
	assert.Equal(t, "db-shared-01:3306/stratum_shared", conn.PoolKey())

	require.NoError(t, conn.Release(ctx))
	assert.NoError(t, opener.mocks[0].ExpectationsWereMet())
}

func TestManager_Acquire_SchemaTierSelectsSchema(t *testing.T) {
	opener := &mockOpener{}
	m := NewManager(poolConfig(), opener, logger.NewLogger())
	defer func() { _ = m.Shutdown() }()
	ctx := context.Background()

	target := schemaTestTarget(t, "tenant_acme")

	_, err := m.poolFor(target)
	require.NoError(t, err)
	mock := opener.mocks[0]
	mock.ExpectExec("USE `tenant_acme`").WillReturnResult(sqlmock.NewResult(0, 0))

	conn, err := m.Acquire(ctx, "tn_acme001", target)
	require.NoError(t, err)

	// No session variable to clear on schema-tier release.
	require.NoError(t, conn.Release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_PoolsSharedAcrossSchemaTenants(t *testing.T) {
	opener := &mockOpener{}
	m := NewManager(poolConfig(), opener, logger.NewLogger())
	defer func() { _ = m.Shutdown() }()

	_, err := m.poolFor(schemaTestTarget(t, "tenant_acme"))
	require.NoError(t, err)
	_, err = m.poolFor(schemaTestTarget(t, "tenant_globex"))
	require.NoError(t, err)

	// Same server and database means one physical pool.
	assert.Len(t, opener.dsns, 1)
	assert.Contains(t, opener.dsns[0], "stratum:secret@tcp(db-schema-01:3306)/stratum_schemas")
}

func TestManager_Acquire_PoolExhaustion(t *testing.T) {
	cfg := poolConfig()
	cfg.MaxConnsPerTarget = 1
	cfg.AcquireTimeoutMS = 50

	opener := &mockOpener{}
	m := NewManager(cfg, opener, logger.NewLogger())
	defer func() { _ = m.Shutdown() }()
	ctx := context.Background()

	target := sharedTestTarget(t)

	_, err := m.poolFor(target)
	require.NoError(t, err)
	mock := opener.mocks[0]
	mock.ExpectExec("SET @stratum_tenant = ?").
		WithArgs("tn_first").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET @stratum_tenant = NULL").
		WillReturnResult(sqlmock.NewResult(0, 0))

	held, err := m.Acquire(ctx, "tn_first", target)
	require.NoError(t, err)

	// The single connection is held; the second acquire must fail with
	// a bounded, retryable exhaustion error instead of blocking.
	start := time.Now()
	_, err = m.Acquire(ctx, "tn_second", target)
	require.Error(t, err)
	assert.True(t, apperrors.IsPoolExhaustedError(err))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.GreaterOrEqual(t, apperrors.RetryAfterHint(err), 1)

	require.NoError(t, held.Release(ctx))
}

func TestManager_Acquire_CallerCancellation(t *testing.T) {
	cfg := poolConfig()
	cfg.MaxConnsPerTarget = 1

	opener := &mockOpener{}
	m := NewManager(cfg, opener, logger.NewLogger())
	defer func() { _ = m.Shutdown() }()

	target := sharedTestTarget(t)

	_, err := m.poolFor(target)
	require.NoError(t, err)
	mock := opener.mocks[0]
	mock.ExpectExec("SET @stratum_tenant = ?").
		WithArgs("tn_first").
		WillReturnResult(sqlmock.NewResult(0, 0))

	held, err := m.Acquire(context.Background(), "tn_first", target)
	require.NoError(t, err)
	defer func() {
		mock.ExpectExec("SET @stratum_tenant = NULL").
			WillReturnResult(sqlmock.NewResult(0, 0))
		_ = held.Release(context.Background())
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Acquire(ctx, "tn_second", target)
	require.Error(t, err)
	assert.False(t, apperrors.IsPoolExhaustedError(err), "caller cancellation is not pool exhaustion")
}

func TestManager_EvictTarget(t *testing.T) {
	opener := &mockOpener{}
	m := NewManager(poolConfig(), opener, logger.NewLogger())
	ctx := context.Background()

	target := sharedTestTarget(t)
	_, err := m.poolFor(target)
	require.NoError(t, err)
	mock := opener.mocks[0]
	mock.ExpectClose()

	require.NoError(t, m.EvictTarget(target.PoolKey()))
	assert.Empty(t, m.Stats())

	// Evicting an unknown pool is a no-op.
	require.NoError(t, m.EvictTarget("nowhere:3306/none"))

	// A later acquire reopens the pool transparently.
	_, err = m.poolFor(target)
	require.NoError(t, err)
	require.Len(t, opener.mocks, 2)
	opener.mocks[1].ExpectExec("SET @stratum_tenant = ?").
		WithArgs("tn_back").
		WillReturnResult(sqlmock.NewResult(0, 0))
	conn, err := m.Acquire(ctx, "tn_back", target)
	require.NoError(t, err)
	opener.mocks[1].ExpectExec("SET @stratum_tenant = NULL").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, conn.Release(ctx))

	_ = m.Shutdown()
}

func TestScopedConn_ReleaseIdempotent(t *testing.T) {
	opener := &mockOpener{}
	m := NewManager(poolConfig(), opener, logger.NewLogger())
	defer func() { _ = m.Shutdown() }()
	ctx := context.Background()

	target := sharedTestTarget(t)
	_, err := m.poolFor(target)
	require.NoError(t, err)
	mock := opener.mocks[0]
	mock.ExpectExec("SET @stratum_tenant = ?").
		WithArgs("tn_acme001").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET @stratum_tenant = NULL").
		WillReturnResult(sqlmock.NewResult(0, 0))

	conn, err := m.Acquire(ctx, "tn_acme001", target)
	require.NoError(t, err)

	require.NoError(t, conn.Release(ctx))
	// Second release is a no-op, not a double clear.
	require.NoError(t, conn.Release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

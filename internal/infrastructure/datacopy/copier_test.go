package datacopy

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainMigration "stratum/internal/domain/migration"
	"stratum/internal/domain/tenant"
	"stratum/internal/infrastructure/pool"
	"stratum/internal/shared/config"
	"stratum/internal/shared/logger"
)

const testTenantSID = "tn_acme001"

// expectationOpener wires sqlmock expectations per DSN at open time,
// because the pool manager opens handles lazily inside Acquire.
type expectationOpener struct {
	setup map[string]func(sqlmock.Sqlmock)
	mocks []sqlmock.Sqlmock
}

func (o *expectationOpener) Open(driverName, dsn string) (*sql.DB, error) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		return nil, err
	}
	for marker, fn := range o.setup {
		if strings.Contains(dsn, marker) {
			fn(mock)
		}
	}
	o.mocks = append(o.mocks, mock)
	return db, nil
}

func testJob(t *testing.T) *domainMigration.Job {
	t.Helper()
	source, err := tenant.NewConnectionTarget(tenant.TierShared, "db-shared-01", 3306, "stratum_shared", "")
	require.NoError(t, err)
	dest, err := tenant.NewConnectionTarget(tenant.TierDedicated, "db-dedicated-07", 3306, "tenant_acme", "")
	require.NoError(t, err)
	job, err := domainMigration.NewJob(testTenantSID, source, dest)
	require.NoError(t, err)
	return job
}

func poolManager(opener pool.Opener) *pool.Manager {
	return pool.NewManager(config.PoolConfig{
		Username:              "stratum",
		Password:              "secret",
		MaxConnsPerTarget:     5,
		AcquireTimeoutMS:      200,
		ConnMaxLifetimeMinute: 10,
	}, opener, logger.NewLogger())
}

func TestTableCopier_CopySharedToDedicated(t *testing.T) {
	opener := &expectationOpener{setup: map[string]func(sqlmock.Sqlmock){
		"db-shared-01": func(mock sqlmock.Sqlmock) {
			mock.ExpectExec("SET @stratum_tenant = ?").
				WithArgs(testTenantSID).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery("SELECT * FROM `projects` WHERE `tenant_sid` = ?").
				WithArgs(testTenantSID).
				WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_sid", "name"}).
					AddRow(int64(1), testTenantSID, "alpha").
					AddRow(int64(2), testTenantSID, "beta"))
			mock.ExpectExec("SET @stratum_tenant = NULL").
				WillReturnResult(sqlmock.NewResult(0, 0))
		},
		"db-dedicated-07": func(mock sqlmock.Sqlmock) {
			mock.ExpectExec("REPLACE INTO `projects` (`id`,`tenant_sid`,`name`) VALUES (?,?,?),(?,?,?)").
				WithArgs(int64(1), testTenantSID, "alpha", int64(2), testTenantSID, "beta").
				WillReturnResult(sqlmock.NewResult(0, 2))
		},
	}}

	m := poolManager(opener)
	defer func() { _ = m.Shutdown() }()

	copier := NewTableCopier(m, []string{"projects"}, 500, logger.NewLogger())
	copied, err := copier.Copy(context.Background(), testJob(t))
	require.NoError(t, err)
	assert.Equal(t, int64(2), copied)

	for _, mock := range opener.mocks {
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

const projectsFingerprint = "SELECT COUNT(*), COALESCE(BIT_XOR(CRC32(CONCAT_WS('#',`id`,`tenant_sid`,`name`))),0) FROM `projects`"

func expectFingerprint(mock sqlmock.Sqlmock, shared bool, count int64, checksum uint64) {
	mock.ExpectQuery("SELECT * FROM `projects` LIMIT 0").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_sid", "name"}))

	if shared {
		mock.ExpectQuery(projectsFingerprint+" WHERE `tenant_sid` = ?").
			WithArgs(testTenantSID).
			WillReturnRows(sqlmock.NewRows([]string{"count", "checksum"}).AddRow(count, checksum))
	} else {
		mock.ExpectQuery(projectsFingerprint).
			WillReturnRows(sqlmock.NewRows([]string{"count", "checksum"}).AddRow(count, checksum))
	}
}

func TestTableCopier_VerifyDetectsMissingRows(t *testing.T) {
	opener := &expectationOpener{setup: map[string]func(sqlmock.Sqlmock){
		"db-shared-01": func(mock sqlmock.Sqlmock) {
			mock.ExpectExec("SET @stratum_tenant = ?").
				WithArgs(testTenantSID).
				WillReturnResult(sqlmock.NewResult(0, 0))
			expectFingerprint(mock, true, 5, 0xdead)
			mock.ExpectExec("SET @stratum_tenant = NULL").
				WillReturnResult(sqlmock.NewResult(0, 0))
		},
		"db-dedicated-07": func(mock sqlmock.Sqlmock) {
			expectFingerprint(mock, false, 4, 0xdead)
		},
	}}

	m := poolManager(opener)
	defer func() { _ = m.Shutdown() }()

	copier := NewTableCopier(m, []string{"projects"}, 500, logger.NewLogger())
	consistent, err := copier.Verify(context.Background(), testJob(t))
	require.NoError(t, err)
	assert.False(t, consistent, "a row count mismatch is drift")
}

func TestTableCopier_VerifyDetectsContentDrift(t *testing.T) {
	opener := &expectationOpener{setup: map[string]func(sqlmock.Sqlmock){
		"db-shared-01": func(mock sqlmock.Sqlmock) {
			mock.ExpectExec("SET @stratum_tenant = ?").
				WithArgs(testTenantSID).
				WillReturnResult(sqlmock.NewResult(0, 0))
			expectFingerprint(mock, true, 5, 0xdead)
			mock.ExpectExec("SET @stratum_tenant = NULL").
				WillReturnResult(sqlmock.NewResult(0, 0))
		},
		"db-dedicated-07": func(mock sqlmock.Sqlmock) {
			// Same row count, different checksum: an updated source
			// row the copy has not caught up with yet.
			expectFingerprint(mock, false, 5, 0xbeef)
		},
	}}

	m := poolManager(opener)
	defer func() { _ = m.Shutdown() }()

	copier := NewTableCopier(m, []string{"projects"}, 500, logger.NewLogger())
	consistent, err := copier.Verify(context.Background(), testJob(t))
	require.NoError(t, err)
	assert.False(t, consistent, "a checksum mismatch is drift even with equal counts")
}

func TestTableCopier_VerifyConsistent(t *testing.T) {
	opener := &expectationOpener{setup: map[string]func(sqlmock.Sqlmock){
		"db-shared-01": func(mock sqlmock.Sqlmock) {
			mock.ExpectExec("SET @stratum_tenant = ?").
				WithArgs(testTenantSID).
				WillReturnResult(sqlmock.NewResult(0, 0))
			expectFingerprint(mock, true, 5, 0xdead)
			mock.ExpectExec("SET @stratum_tenant = NULL").
				WillReturnResult(sqlmock.NewResult(0, 0))
		},
		"db-dedicated-07": func(mock sqlmock.Sqlmock) {
			expectFingerprint(mock, false, 5, 0xdead)
		},
	}}

	m := poolManager(opener)
	defer func() { _ = m.Shutdown() }()

	copier := NewTableCopier(m, []string{"projects"}, 500, logger.NewLogger())
	consistent, err := copier.Verify(context.Background(), testJob(t))
	require.NoError(t, err)
	assert.True(t, consistent)
}

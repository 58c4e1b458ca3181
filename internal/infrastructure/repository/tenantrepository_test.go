package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stratum/internal/domain/tenant"
	"stratum/internal/infrastructure/persistence/models"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = gdb.AutoMigrate(&models.TenantModel{}, &models.MigrationJobModel{})
	require.NoError(t, err)

	return gdb
}

func newSharedTarget(t *testing.T) tenant.ConnectionTarget {
	t.Helper()
	target, err := tenant.NewConnectionTarget(tenant.TierShared, "db-shared-01", 3306, "stratum_shared", "")
	require.NoError(t, err)
	return target
}

func newDedicatedTarget(t *testing.T, database string) tenant.ConnectionTarget {
	t.Helper()
	target, err := tenant.NewConnectionTarget(tenant.TierDedicated, "db-dedicated-03", 3306, database, "")
	require.NoError(t, err)
	return target
}

func createTestTenant(t *testing.T, name, slug string) *tenant.Tenant {
	t.Helper()
	tn, err := tenant.NewTenant(name, slug, newSharedTarget(t))
	require.NoError(t, err)
	return tn
}

func TestTenantRepository_Create(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	t.Run("create tenant successfully", func(t *testing.T) {
		tn := createTestTenant(t, "Acme Corp", "acme")

		err := repo.Create(ctx, tn)
		assert.NoError(t, err)
		assert.NotZero(t, tn.ID())

		found, err := repo.GetBySlug(ctx, "acme")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, tn.SID(), found.SID())
		assert.Equal(t, tenant.TierShared, found.Tier())
		assert.True(t, tn.ActiveTarget().Equal(found.ActiveTarget()))
	})

	t.Run("duplicate slug is a validation error", func(t *testing.T) {
		first := createTestTenant(t, "Globex", "globex")
		require.NoError(t, repo.Create(ctx, first))

		second := createTestTenant(t, "Globex Again", "globex")
		err := repo.Create(ctx, second)
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestTenantRepository_GetBySID(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	tn := createTestTenant(t, "Acme Corp", "acme")
	require.NoError(t, repo.Create(ctx, tn))

	found, err := repo.GetBySID(ctx, tn.SID())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "acme", found.Slug())

	missing, err := repo.GetBySID(ctx, "tn_doesnotexist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTenantRepository_Update_MigrationRoundTrip(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	tn := createTestTenant(t, "Acme Corp", "acme")
	require.NoError(t, repo.Create(ctx, tn))

	dest := newDedicatedTarget(t, "tenant_acme")
	require.NoError(t, tn.BeginMigration(dest))
	require.NoError(t, repo.Update(ctx, tn))

	// Pending target survives the round trip; active is untouched.
	loaded, err := repo.GetBySID(ctx, tn.SID())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, tenant.StatusMigrating, loaded.Status())
	assert.Equal(t, "db-shared-01", loaded.ActiveTarget().Host())
	require.NotNil(t, loaded.PendingTarget())
	assert.True(t, dest.Equal(*loaded.PendingTarget()))

	require.NoError(t, loaded.CompleteCutover())
	require.NoError(t, repo.Update(ctx, loaded))

	after, err := repo.GetBySID(ctx, tn.SID())
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusActive, after.Status())
	assert.Equal(t, tenant.TierDedicated, after.Tier())
	assert.True(t, dest.Equal(after.ActiveTarget()))
	assert.Nil(t, after.PendingTarget())
}

func TestTenantRepository_Update_SameAggregateRepeatedly(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	tn := createTestTenant(t, "Acme Corp", "acme")
	require.NoError(t, repo.Create(ctx, tn))

	require.NoError(t, tn.Suspend())
	require.NoError(t, repo.Update(ctx, tn))
	require.NoError(t, tn.Reactivate())
	require.NoError(t, repo.Update(ctx, tn))

	loaded, err := repo.GetBySID(ctx, tn.SID())
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusActive, loaded.Status())
	assert.Equal(t, tn.Version(), loaded.Version())
}

func TestTenantRepository_Update_OptimisticLocking(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	tn := createTestTenant(t, "Acme Corp", "acme")
	require.NoError(t, repo.Create(ctx, tn))

	first, err := repo.GetBySID(ctx, tn.SID())
	require.NoError(t, err)
	second, err := repo.GetBySID(ctx, tn.SID())
	require.NoError(t, err)

	require.NoError(t, first.Suspend())
	require.NoError(t, repo.Update(ctx, first))

	// The second loaded copy carries a stale version now.
	require.NoError(t, second.UpdateName("Acme Renamed"))
	err = repo.Update(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
}

func TestTenantRepository_List(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	for _, slug := range []string{"acme", "globex", "initech"} {
		require.NoError(t, repo.Create(ctx, createTestTenant(t, slug, slug)))
	}

	suspended, err := repo.GetBySlug(ctx, "initech")
	require.NoError(t, err)
	require.NoError(t, suspended.Suspend())
	require.NoError(t, repo.Update(ctx, suspended))

	all, total, err := repo.List(ctx, tenant.ListFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	active := tenant.StatusActive
	actives, total, err := repo.List(ctx, tenant.ListFilter{Status: &active, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, actives, 2)
}

func TestTenantRepository_CountByActiveTarget(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewTenantRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, createTestTenant(t, "Acme", "acme")))
	require.NoError(t, repo.Create(ctx, createTestTenant(t, "Globex", "globex")))

	gone, err := repo.GetBySlug(ctx, "globex")
	require.NoError(t, err)
	require.NoError(t, gone.Decommission())
	require.NoError(t, repo.Update(ctx, gone))

	count, err := repo.CountByActiveTarget(ctx, "db-shared-01", 3306, "stratum_shared")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

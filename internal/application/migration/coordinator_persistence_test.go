package migration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	domainMigration "stratum/internal/domain/migration"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/infrastructure/persistence/models"
	"stratum/internal/infrastructure/repository"
	"stratum/internal/shared/config"
	"stratum/internal/shared/db"
	"stratum/internal/shared/logger"
)

// failingTenantRepo lets a test inject one persistence failure into an
// otherwise real repository.
type failingTenantRepo struct {
	domainTenant.Repository
	failNextUpdate bool
}

func (r *failingTenantRepo) Update(ctx context.Context, t *domainTenant.Tenant) error {
	if r.failNextUpdate {
		r.failNextUpdate = false
		return fmt.Errorf("catalog unavailable")
	}
	return r.Repository.Update(ctx, t)
}

type persistedFixture struct {
	coordinator *Coordinator
	tenantRepo  *failingTenantRepo
	jobRepo     domainMigration.Repository
	freezer     *fakeFreezer
	tenant      *domainTenant.Tenant
	job         *domainMigration.Job
}

// newPersistedFixture wires the coordinator against the real gorm-backed
// repositories so the optimistic version guard is exercised on every
// state persist, not faked away.
func newPersistedFixture(t *testing.T) *persistedFixture {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.TenantModel{}, &models.MigrationJobModel{}))

	log := logger.NewLogger()
	tenantRepo := &failingTenantRepo{Repository: repository.NewTenantRepository(gdb, log)}
	jobRepo := repository.NewMigrationJobRepository(gdb, log)

	source, err := domainTenant.NewConnectionTarget(domainTenant.TierShared, "db-shared-01", 3306, "stratum_shared", "")
	require.NoError(t, err)
	dest, err := domainTenant.NewConnectionTarget(domainTenant.TierDedicated, "db-dedicated-07", 3306, "tenant_acme", "")
	require.NoError(t, err)

	tn, err := domainTenant.NewTenant("Acme", "acme", source)
	require.NoError(t, err)
	require.NoError(t, tn.BeginMigration(dest))
	require.NoError(t, tenantRepo.Create(context.Background(), tn))

	job, err := domainMigration.NewJob(tn.SID(), source, dest)
	require.NoError(t, err)
	require.NoError(t, jobRepo.Create(context.Background(), job))

	freezer := newFakeFreezer()
	fx := &persistedFixture{
		tenantRepo: tenantRepo,
		jobRepo:    jobRepo,
		freezer:    freezer,
		tenant:     tn,
		job:        job,
	}
	fx.coordinator = NewCoordinator(
		tenantRepo,
		jobRepo,
		&fakeCopier{},
		&fakeVerifier{},
		freezer,
		&fakeInvalidator{},
		db.NewTransactionManager(gdb),
		&capturingPublisher{},
		config.MigrationConfig{
			PollIntervalSeconds:  1,
			FreezeTimeoutSeconds: 30,
			GracePeriodHours:     24,
		},
		log,
	)
	return fx
}

func TestCoordinator_FullPassAgainstPersistedState(t *testing.T) {
	fx := newPersistedFixture(t)
	ctx := context.Background()

	// One pass drives the same aggregate through every persisted
	// transition: pending, copying, verifying, cutover, complete.
	require.NoError(t, fx.coordinator.Process(ctx, fx.job))

	loaded, err := fx.jobRepo.GetBySID(ctx, fx.job.SID())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, domainMigration.StateComplete, loaded.State())
	assert.NotNil(t, loaded.CompletedAt())

	tn, err := fx.tenantRepo.GetBySID(ctx, fx.tenant.SID())
	require.NoError(t, err)
	assert.Equal(t, domainTenant.StatusActive, tn.Status())
	assert.Equal(t, domainTenant.TierDedicated, tn.Tier())
	assert.Equal(t, "db-dedicated-07", tn.ActiveTarget().Host())
	assert.Nil(t, tn.PendingTarget())
}

func TestCoordinator_CutoverPersistFailureFailsJob(t *testing.T) {
	fx := newPersistedFixture(t)
	ctx := context.Background()
	fx.tenantRepo.failNextUpdate = true

	require.NoError(t, fx.coordinator.Process(ctx, fx.job))

	// The cutover transaction rolled back, so the job must end up
	// failed in storage, not stuck as a terminal in-memory ghost.
	loaded, err := fx.jobRepo.GetBySID(ctx, fx.job.SID())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, domainMigration.StateFailed, loaded.State())
	assert.Contains(t, loaded.FailureReason(), "persist cutover")

	// The tenant returns to active on its source placement.
	tn, err := fx.tenantRepo.GetBySID(ctx, fx.tenant.SID())
	require.NoError(t, err)
	assert.Equal(t, domainTenant.StatusActive, tn.Status())
	assert.Equal(t, "db-shared-01", tn.ActiveTarget().Host())
	assert.Nil(t, tn.PendingTarget())

	assert.Equal(t, fx.freezer.freezes, fx.freezer.unfreezes, "every freeze must be released")
}

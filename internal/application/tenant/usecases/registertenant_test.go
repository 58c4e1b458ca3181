package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stratum/internal/application/tenant/dto"
	"stratum/internal/domain/migration"
	"stratum/internal/domain/shared/events"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/config"
	"stratum/internal/shared/db"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
)

type fakeTenantRepo struct {
	mu      sync.Mutex
	bySID   map[string]*domainTenant.Tenant
	bySlug  map[string]*domainTenant.Tenant
	updates int
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{
		bySID:  make(map[string]*domainTenant.Tenant),
		bySlug: make(map[string]*domainTenant.Tenant),
	}
}

func (f *fakeTenantRepo) Create(ctx context.Context, t *domainTenant.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bySlug[t.Slug()]; ok {
		return errors.NewValidationError("tenant slug already registered", t.Slug())
	}
	f.bySID[t.SID()] = t
	f.bySlug[t.Slug()] = t
	return nil
}

func (f *fakeTenantRepo) Update(ctx context.Context, t *domainTenant.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.bySID[t.SID()] = t
	f.bySlug[t.Slug()] = t
	return nil
}

func (f *fakeTenantRepo) GetByID(ctx context.Context, dbID uint) (*domainTenant.Tenant, error) {
	return nil, nil
}

func (f *fakeTenantRepo) GetBySID(ctx context.Context, sid string) (*domainTenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bySID[sid], nil
}

func (f *fakeTenantRepo) GetBySlug(ctx context.Context, slug string) (*domainTenant.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bySlug[slug], nil
}

func (f *fakeTenantRepo) GetBySIDForUpdate(ctx context.Context, sid string) (*domainTenant.Tenant, error) {
	return f.GetBySID(ctx, sid)
}

func (f *fakeTenantRepo) List(ctx context.Context, filter domainTenant.ListFilter) ([]*domainTenant.Tenant, int64, error) {
	return nil, 0, nil
}

func (f *fakeTenantRepo) CountByActiveTarget(ctx context.Context, host string, port int, database string) (int64, error) {
	return 0, nil
}

type fakeJobRepo struct {
	mu     sync.Mutex
	jobs   map[string]*migration.Job
	active map[string]*migration.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		jobs:   make(map[string]*migration.Job),
		active: make(map[string]*migration.Job),
	}
}

func (f *fakeJobRepo) Create(ctx context.Context, job *migration.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.SID()] = job
	f.active[job.TenantSID()] = job
	return nil
}

func (f *fakeJobRepo) Update(ctx context.Context, job *migration.Job) error { return nil }

func (f *fakeJobRepo) GetBySID(ctx context.Context, sid string) (*migration.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[sid], nil
}

func (f *fakeJobRepo) GetActiveByTenant(ctx context.Context, tenantSID string) (*migration.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[tenantSID], nil
}

func (f *fakeJobRepo) ListRunnable(ctx context.Context, limit int) ([]*migration.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) List(ctx context.Context, filter migration.ListFilter) ([]*migration.Job, int64, error) {
	return nil, 0, nil
}

func (f *fakeJobRepo) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*migration.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *capturingPublisher) Publish(event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) PublishAll(evts []events.DomainEvent) error {
	for _, e := range evts {
		if err := p.Publish(e); err != nil {
			return err
		}
	}
	return nil
}

func (p *capturingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.GetEventType())
	}
	return out
}

func testPlanner() *PlacementPlanner {
	return NewPlacementPlanner(config.PlacementConfig{
		Shared: config.PlacementTargetConfig{
			Host:     "db-shared-01",
			Port:     3306,
			Database: "stratum_shared",
		},
		Schema: config.PlacementTargetConfig{
			Host:     "db-schema-01",
			Port:     3306,
			Database: "stratum_schemas",
		},
		SchemaPrefix: "tenant_",
	})
}

func testTxManager(t *testing.T) *db.TransactionManager {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db.NewTransactionManager(gdb)
}

func TestRegisterTenantUseCase_SharedTier(t *testing.T) {
	repo := newFakeTenantRepo()
	publisher := &capturingPublisher{}
	uc := NewRegisterTenantUseCase(repo, testPlanner(), publisher, logger.NewLogger())

	resp, err := uc.Execute(context.Background(), dto.RegisterTenantRequest{
		Name: "Acme Corp",
		Slug: "acme",
		Tier: "shared",
		Plan: "starter",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme", resp.Slug)
	assert.Equal(t, "shared", resp.Tier)
	assert.Equal(t, "active", resp.Status)
	assert.Equal(t, "db-shared-01", resp.ActiveTarget.Host)
	assert.Equal(t, "stratum_shared", resp.ActiveTarget.Database)
	assert.Empty(t, resp.ActiveTarget.Schema)
	assert.Contains(t, publisher.types(), domainTenant.EventTenantRegistered)
}

func TestRegisterTenantUseCase_SchemaTierGetsOwnSchema(t *testing.T) {
	repo := newFakeTenantRepo()
	uc := NewRegisterTenantUseCase(repo, testPlanner(), &capturingPublisher{}, logger.NewLogger())

	resp, err := uc.Execute(context.Background(), dto.RegisterTenantRequest{
		Name: "Globex",
		Slug: "globex",
		Tier: "schema",
	})
	require.NoError(t, err)

	assert.Equal(t, "schema", resp.Tier)
	assert.Equal(t, "tenant_globex", resp.ActiveTarget.Schema)
}

func TestRegisterTenantUseCase_DuplicateSlug(t *testing.T) {
	repo := newFakeTenantRepo()
	uc := NewRegisterTenantUseCase(repo, testPlanner(), &capturingPublisher{}, logger.NewLogger())

	_, err := uc.Execute(context.Background(), dto.RegisterTenantRequest{Name: "Acme", Slug: "acme", Tier: "shared"})
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), dto.RegisterTenantRequest{Name: "Other Acme", Slug: "acme", Tier: "schema"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err), "a taken slug is a validation failure, not a write conflict")
}

func TestRegisterTenantUseCase_DedicatedRequiresTarget(t *testing.T) {
	repo := newFakeTenantRepo()
	uc := NewRegisterTenantUseCase(repo, testPlanner(), &capturingPublisher{}, logger.NewLogger())

	_, err := uc.Execute(context.Background(), dto.RegisterTenantRequest{Name: "Initech", Slug: "initech", Tier: "dedicated"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestStartMigrationUseCase_EnqueuesJob(t *testing.T) {
	tenantRepo := newFakeTenantRepo()
	jobRepo := newFakeJobRepo()
	publisher := &capturingPublisher{}
	planner := testPlanner()

	register := NewRegisterTenantUseCase(tenantRepo, planner, publisher, logger.NewLogger())
	registered, err := register.Execute(context.Background(), dto.RegisterTenantRequest{Name: "Acme", Slug: "acme", Tier: "shared"})
	require.NoError(t, err)

	uc := NewStartMigrationUseCase(tenantRepo, jobRepo, planner, testTxManager(t), publisher, logger.NewLogger())
	resp, err := uc.Execute(context.Background(), registered.ID, dto.StartMigrationRequest{
		TargetTier: "dedicated",
		Dedicated:  &dto.TargetRequest{Host: "db-dedicated-07", Port: 3306, Database: "tenant_acme"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.State)
	assert.Equal(t, "db-shared-01", resp.Source.Host)
	assert.Equal(t, "db-dedicated-07", resp.Destination.Host)

	// The tenant keeps routing to the source until cutover.
	updated, err := tenantRepo.GetBySID(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, domainTenant.StatusMigrating, updated.Status())
	assert.Equal(t, "db-shared-01", updated.ActiveTarget().Host())
	assert.Contains(t, publisher.types(), domainTenant.EventMigrationStarted)
}

func TestStartMigrationUseCase_RejectsSecondMigration(t *testing.T) {
	tenantRepo := newFakeTenantRepo()
	jobRepo := newFakeJobRepo()
	planner := testPlanner()

	register := NewRegisterTenantUseCase(tenantRepo, planner, &capturingPublisher{}, logger.NewLogger())
	registered, err := register.Execute(context.Background(), dto.RegisterTenantRequest{Name: "Acme", Slug: "acme", Tier: "shared"})
	require.NoError(t, err)

	uc := NewStartMigrationUseCase(tenantRepo, jobRepo, planner, testTxManager(t), &capturingPublisher{}, logger.NewLogger())
	_, err = uc.Execute(context.Background(), registered.ID, dto.StartMigrationRequest{TargetTier: "schema"})
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), registered.ID, dto.StartMigrationRequest{TargetTier: "dedicated",
		Dedicated: &dto.TargetRequest{Host: "db-dedicated-07", Port: 3306, Database: "tenant_acme"}})
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
}

package migration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	domainMigration "stratum/internal/domain/migration"
	"stratum/internal/domain/shared/events"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/config"
	"stratum/internal/shared/db"
	"stratum/internal/shared/logger"
)

type fakeTenantRepo struct {
	mu           sync.Mutex
	bySID        map[string]*domainTenant.Tenant
	activeOnHost map[string]int64
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{
		bySID:        make(map[string]*domainTenant.Tenant),
		activeOnHost: make(map[string]int64),
	}
}

func (f *fakeTenantRepo) Create(ctx context.Context, t *domainTenant.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bySID[t.SID()] = t
	return nil
}

func (f *fakeTenantRepo) Update(ctx context.Context, t *domainTenant.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bySID[t.SID()] = t
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
	return nil, nil
}

func (f *fakeTenantRepo) GetBySIDForUpdate(ctx context.Context, sid string) (*domainTenant.Tenant, error) {
	return f.GetBySID(ctx, sid)
}

func (f *fakeTenantRepo) List(ctx context.Context, filter domainTenant.ListFilter) ([]*domainTenant.Tenant, int64, error) {
	return nil, 0, nil
}

func (f *fakeTenantRepo) CountByActiveTarget(ctx context.Context, host string, port int, database string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeOnHost[host], nil
}

type fakeJobRepo struct {
	mu       sync.Mutex
	bySID    map[string]*domainMigration.Job
	finished []*domainMigration.Job
	deleted  int64
	cutoff   time.Time
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{bySID: make(map[string]*domainMigration.Job)}
}

func (f *fakeJobRepo) Create(ctx context.Context, job *domainMigration.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bySID[job.SID()] = job
	return nil
}

func (f *fakeJobRepo) Update(ctx context.Context, job *domainMigration.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bySID[job.SID()] = job
	return nil
}

func (f *fakeJobRepo) GetBySID(ctx context.Context, sid string) (*domainMigration.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bySID[sid], nil
}

func (f *fakeJobRepo) GetActiveByTenant(ctx context.Context, tenantSID string) (*domainMigration.Job, error) {
	return nil, nil
}

func (f *fakeJobRepo) ListRunnable(ctx context.Context, limit int) ([]*domainMigration.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domainMigration.Job
	for _, job := range f.bySID {
		if !job.State().Terminal() {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) List(ctx context.Context, filter domainMigration.ListFilter) ([]*domainMigration.Job, int64, error) {
	return nil, 0, nil
}

func (f *fakeJobRepo) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domainMigration.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished, nil
}

func (f *fakeJobRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return f.deleted, nil
}

type fakeCopier struct {
	mu      sync.Mutex
	copies  int
	deltas  int
	failMsg string
}

func (c *fakeCopier) Copy(ctx context.Context, job *domainMigration.Job) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failMsg != "" {
		return 0, fmt.Errorf("%s", c.failMsg)
	}
	c.copies++
	return 1000, nil
}

func (c *fakeCopier) CopyDelta(ctx context.Context, job *domainMigration.Job) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deltas++
	return 10, nil
}

// fakeVerifier reports drift for the first driftCount calls, then
// consistency.
type fakeVerifier struct {
	mu         sync.Mutex
	calls      int
	driftCount int
}

func (v *fakeVerifier) Verify(ctx context.Context, job *domainMigration.Job) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.calls > v.driftCount, nil
}

type fakeFreezer struct {
	mu        sync.Mutex
	freezes   int
	unfreezes int
	frozen    map[string]bool
}

func newFakeFreezer() *fakeFreezer {
	return &fakeFreezer{frozen: make(map[string]bool)}
}

func (f *fakeFreezer) Freeze(ctx context.Context, tenantSID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freezes++
	f.frozen[tenantSID] = true
	return nil
}

func (f *fakeFreezer) Unfreeze(ctx context.Context, tenantSID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unfreezes++
	delete(f.frozen, tenantSID)
	return nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (i *fakeInvalidator) Invalidate(ctx context.Context, sid, slug string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
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

type coordinatorFixture struct {
	coordinator *Coordinator
	tenantRepo  *fakeTenantRepo
	jobRepo     *fakeJobRepo
	copier      *fakeCopier
	verifier    *fakeVerifier
	freezer     *fakeFreezer
	invalidator *fakeInvalidator
	publisher   *capturingPublisher
	tenant      *domainTenant.Tenant
	job         *domainMigration.Job
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()

	source, err := domainTenant.NewConnectionTarget(domainTenant.TierShared, "db-shared-01", 3306, "stratum_shared", "")
	require.NoError(t, err)
	dest, err := domainTenant.NewConnectionTarget(domainTenant.TierDedicated, "db-dedicated-07", 3306, "tenant_acme", "")
	require.NoError(t, err)

	tn, err := domainTenant.NewTenant("Acme", "acme", source)
	require.NoError(t, err)
	require.NoError(t, tn.BeginMigration(dest))

	job, err := domainMigration.NewJob(tn.SID(), source, dest)
	require.NoError(t, err)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	fx := &coordinatorFixture{
		tenantRepo:  newFakeTenantRepo(),
		jobRepo:     newFakeJobRepo(),
		copier:      &fakeCopier{},
		verifier:    &fakeVerifier{},
		freezer:     newFakeFreezer(),
		invalidator: &fakeInvalidator{},
		publisher:   &capturingPublisher{},
		tenant:      tn,
		job:         job,
	}
	require.NoError(t, fx.tenantRepo.Create(context.Background(), tn))
	require.NoError(t, fx.jobRepo.Create(context.Background(), job))

	fx.coordinator = NewCoordinator(
		fx.tenantRepo,
		fx.jobRepo,
		fx.copier,
		fx.verifier,
		fx.freezer,
		fx.invalidator,
		db.NewTransactionManager(gdb),
		fx.publisher,
		config.MigrationConfig{
			PollIntervalSeconds:  1,
			FreezeTimeoutSeconds: 30,
			GracePeriodHours:     24,
		},
		logger.NewLogger(),
	)
	return fx
}

func TestCoordinator_HappyPath(t *testing.T) {
	fx := newCoordinatorFixture(t)

	err := fx.coordinator.Process(context.Background(), fx.job)
	require.NoError(t, err)

	assert.Equal(t, domainMigration.StateComplete, fx.job.State())
	assert.Equal(t, 1, fx.copier.copies)
	assert.NotNil(t, fx.job.CompletedAt())

	updated, err := fx.tenantRepo.GetBySID(context.Background(), fx.tenant.SID())
	require.NoError(t, err)
	assert.Equal(t, domainTenant.StatusActive, updated.Status())
	assert.Equal(t, domainTenant.TierDedicated, updated.Tier())
	assert.Equal(t, "db-dedicated-07", updated.ActiveTarget().Host())
	assert.Nil(t, updated.PendingTarget())

	assert.Equal(t, 1, fx.freezer.freezes)
	assert.Equal(t, 1, fx.freezer.unfreezes, "freeze marker must be cleared after cutover")
	assert.Empty(t, fx.freezer.frozen)
	assert.Equal(t, 1, fx.invalidator.calls)
	assert.Contains(t, fx.publisher.types(), domainTenant.EventCutoverCompleted)
}

func TestCoordinator_DriftTriggersDeltaCopy(t *testing.T) {
	fx := newCoordinatorFixture(t)
	fx.verifier.driftCount = 1

	err := fx.coordinator.Process(context.Background(), fx.job)
	require.NoError(t, err)

	assert.Equal(t, domainMigration.StateComplete, fx.job.State())
	assert.Equal(t, 2, fx.job.Attempt())
	assert.GreaterOrEqual(t, fx.copier.deltas, 1, "drift must be repaired with a delta copy")
}

func TestCoordinator_PersistentDriftFailsJob(t *testing.T) {
	fx := newCoordinatorFixture(t)
	fx.verifier.driftCount = 100

	err := fx.coordinator.Process(context.Background(), fx.job)
	require.NoError(t, err)

	assert.Equal(t, domainMigration.StateFailed, fx.job.State())
	assert.Contains(t, fx.job.FailureReason(), "drift")

	// The tenant rolls back to active on its source placement.
	updated, err := fx.tenantRepo.GetBySID(context.Background(), fx.tenant.SID())
	require.NoError(t, err)
	assert.Equal(t, domainTenant.StatusActive, updated.Status())
	assert.Equal(t, "db-shared-01", updated.ActiveTarget().Host())
	assert.Nil(t, updated.PendingTarget())
	assert.Contains(t, fx.publisher.types(), domainTenant.EventMigrationAborted)
}

func TestCoordinator_CopyFailureFailsJob(t *testing.T) {
	fx := newCoordinatorFixture(t)
	fx.copier.failMsg = "source unreachable"

	err := fx.coordinator.Process(context.Background(), fx.job)
	require.NoError(t, err)

	assert.Equal(t, domainMigration.StateFailed, fx.job.State())
	assert.Contains(t, fx.job.FailureReason(), "source unreachable")
	assert.Zero(t, fx.freezer.freezes, "a failed copy must never freeze writes")
}

func TestCoordinator_DriftDuringFreezeRollsBack(t *testing.T) {
	fx := newCoordinatorFixture(t)
	// Consistent for the pre-cutover verify, drifting once writes are
	// frozen.
	fx.coordinator.verifier = &sequenceVerifier{results: []bool{true, false}}

	err := fx.coordinator.Process(context.Background(), fx.job)
	require.NoError(t, err)

	assert.Equal(t, domainMigration.StateFailed, fx.job.State())
	assert.Contains(t, fx.job.FailureReason(), "freeze")
	assert.Equal(t, fx.freezer.freezes, fx.freezer.unfreezes, "every freeze must be released")

	updated, err := fx.tenantRepo.GetBySID(context.Background(), fx.tenant.SID())
	require.NoError(t, err)
	assert.Equal(t, domainTenant.StatusActive, updated.Status())
	assert.Equal(t, "db-shared-01", updated.ActiveTarget().Host())
}

// sequenceVerifier returns a fixed sequence of verification results.
type sequenceVerifier struct {
	mu      sync.Mutex
	calls   int
	results []bool
}

func (v *sequenceVerifier) Verify(ctx context.Context, job *domainMigration.Job) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	idx := v.calls
	v.calls++
	if idx >= len(v.results) {
		return false, nil
	}
	return v.results[idx], nil
}

func TestRunner_ProcessesBatch(t *testing.T) {
	fx := newCoordinatorFixture(t)
	runner := NewRunner(fx.coordinator, fx.jobRepo, 10, logger.NewLogger())

	processed, err := runner.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, domainMigration.StateComplete, fx.job.State())

	// Nothing left to pick up.
	processed, err = runner.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
}

type fakeEvictor struct {
	mu      sync.Mutex
	evicted []string
}

func (e *fakeEvictor) EvictTarget(poolKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicted = append(e.evicted, poolKey)
	return nil
}

// finishedJob builds a job driven to the given terminal state.
func finishedJob(t *testing.T, state domainMigration.JobState) *domainMigration.Job {
	t.Helper()

	source, err := domainTenant.NewConnectionTarget(domainTenant.TierShared, "db-shared-01", 3306, "stratum_shared", "")
	require.NoError(t, err)
	dest, err := domainTenant.NewConnectionTarget(domainTenant.TierDedicated, "db-dedicated-07", 3306, "tenant_acme", "")
	require.NoError(t, err)

	job, err := domainMigration.NewJob("tn_acme0001", source, dest)
	require.NoError(t, err)

	switch state {
	case domainMigration.StateComplete:
		require.NoError(t, job.StartCopy())
		require.NoError(t, job.MarkVerifying())
		require.NoError(t, job.BeginCutover())
		require.NoError(t, job.Complete())
	case domainMigration.StateFailed:
		require.NoError(t, job.Fail("copy aborted"))
	default:
		t.Fatalf("not a terminal state: %s", state)
	}
	return job
}

func TestReclaimer_RemovesFinishedJobs(t *testing.T) {
	jobRepo := newFakeJobRepo()
	jobRepo.deleted = 3

	reclaimer := NewReclaimer(jobRepo, newFakeTenantRepo(), &fakeEvictor{}, config.MigrationConfig{GracePeriodHours: 24}, logger.NewLogger())
	removed, err := reclaimer.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), jobRepo.cutoff, 5*time.Second)
}

func TestReclaimer_EvictsSourcePoolOfCompletedMigration(t *testing.T) {
	jobRepo := newFakeJobRepo()
	jobRepo.finished = []*domainMigration.Job{finishedJob(t, domainMigration.StateComplete)}
	evictor := &fakeEvictor{}

	reclaimer := NewReclaimer(jobRepo, newFakeTenantRepo(), evictor, config.MigrationConfig{GracePeriodHours: 24}, logger.NewLogger())
	_, err := reclaimer.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"db-shared-01:3306/stratum_shared"}, evictor.evicted)
}

func TestReclaimer_KeepsPoolWithRemainingTenants(t *testing.T) {
	jobRepo := newFakeJobRepo()
	jobRepo.finished = []*domainMigration.Job{finishedJob(t, domainMigration.StateComplete)}
	tenantRepo := newFakeTenantRepo()
	tenantRepo.activeOnHost["db-shared-01"] = 7
	evictor := &fakeEvictor{}

	reclaimer := NewReclaimer(jobRepo, tenantRepo, evictor, config.MigrationConfig{GracePeriodHours: 24}, logger.NewLogger())
	_, err := reclaimer.Execute(context.Background())
	require.NoError(t, err)

	assert.Empty(t, evictor.evicted)
}

func TestReclaimer_EvictsDestinationPoolOfFailedMigration(t *testing.T) {
	jobRepo := newFakeJobRepo()
	jobRepo.finished = []*domainMigration.Job{finishedJob(t, domainMigration.StateFailed)}
	evictor := &fakeEvictor{}

	reclaimer := NewReclaimer(jobRepo, newFakeTenantRepo(), evictor, config.MigrationConfig{GracePeriodHours: 24}, logger.NewLogger())
	_, err := reclaimer.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"db-dedicated-07:3306/tenant_acme"}, evictor.evicted)
}

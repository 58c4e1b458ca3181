package migration

import (
	"context"
	"fmt"

	domainMigration "stratum/internal/domain/migration"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/biztime"
	"stratum/internal/shared/config"
	"stratum/internal/shared/logger"
)

// Runner is the scheduler entry point for the coordinator: each tick it
// picks up runnable jobs and drives them. One job failing does not stop
// the batch.
type Runner struct {
	coordinator *Coordinator
	jobRepo     domainMigration.Repository
	batchSize   int
	logger      logger.Interface
}

// NewRunner creates a coordinator runner processing up to batchSize jobs
// per tick.
func NewRunner(coordinator *Coordinator, jobRepo domainMigration.Repository, batchSize int, logger logger.Interface) *Runner {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Runner{
		coordinator: coordinator,
		jobRepo:     jobRepo,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Execute processes one batch of runnable jobs. Returns how many jobs
// were picked up.
func (r *Runner) Execute(ctx context.Context) (int, error) {
	jobs, err := r.jobRepo.ListRunnable(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list runnable jobs: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	var firstErr error
	for _, job := range jobs {
		if err := r.coordinator.Process(ctx, job); err != nil {
			r.logger.Errorw("migration job processing error",
				"job_sid", job.SID(),
				"tenant_sid", job.TenantSID(),
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return len(jobs), firstErr
}

// targetEvictor retires the connection pool for a target.
type targetEvictor interface {
	EvictTarget(poolKey string) error
}

// Reclaimer runs once a migration leaves its grace period: it retires
// connection pools for targets the finished jobs abandoned, then
// removes the terminal jobs so the job table does not grow without
// bound.
type Reclaimer struct {
	jobRepo    domainMigration.Repository
	tenantRepo domainTenant.Repository
	pools      targetEvictor
	cfg        config.MigrationConfig
	logger     logger.Interface
}

// NewReclaimer creates a job reclaimer.
func NewReclaimer(
	jobRepo domainMigration.Repository,
	tenantRepo domainTenant.Repository,
	pools targetEvictor,
	cfg config.MigrationConfig,
	logger logger.Interface,
) *Reclaimer {
	return &Reclaimer{
		jobRepo:    jobRepo,
		tenantRepo: tenantRepo,
		pools:      pools,
		cfg:        cfg,
		logger:     logger,
	}
}

// Execute evicts pools abandoned by finished migrations, then deletes
// the jobs past the grace period. Returns how many jobs were removed.
func (r *Reclaimer) Execute(ctx context.Context) (int, error) {
	cutoff := biztime.NowUTC().Add(-r.cfg.GracePeriod())

	finished, err := r.jobRepo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		return 0, fmt.Errorf("failed to list finished jobs: %w", err)
	}
	r.evictAbandonedTargets(ctx, finished)

	removed, err := r.jobRepo.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim finished jobs: %w", err)
	}
	if removed > 0 {
		r.logger.Infow("reclaimed finished migration jobs", "count", removed, "cutoff", cutoff)
	}
	return int(removed), nil
}

// evictAbandonedTargets closes pools for targets the finished jobs
// left behind: the source of a completed migration, the destination of
// a failed one. A target still serving tenants is left alone; an
// evicted pool reopens lazily if a tenant lands on the target again.
func (r *Reclaimer) evictAbandonedTargets(ctx context.Context, finished []*domainMigration.Job) {
	candidates := make(map[string]domainTenant.ConnectionTarget)
	for _, job := range finished {
		switch job.State() {
		case domainMigration.StateComplete:
			candidates[job.Source().PoolKey()] = job.Source()
		case domainMigration.StateFailed:
			candidates[job.Destination().PoolKey()] = job.Destination()
		}
	}

	for key, target := range candidates {
		count, err := r.tenantRepo.CountByActiveTarget(ctx, target.Host(), target.Port(), target.Database())
		if err != nil {
			r.logger.Warnw("failed to count tenants on target", "pool_key", key, "error", err)
			continue
		}
		if count > 0 {
			continue
		}
		if err := r.pools.EvictTarget(key); err != nil {
			r.logger.Warnw("failed to evict abandoned pool", "pool_key", key, "error", err)
			continue
		}
		r.logger.Infow("abandoned target pool reclaimed", "pool_key", key)
	}
}

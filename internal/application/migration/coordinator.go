package migration

import (
	"context"
	"fmt"
	"time"

	domainMigration "stratum/internal/domain/migration"
	"stratum/internal/domain/shared/events"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/config"
	"stratum/internal/shared/db"
	"stratum/internal/shared/logger"
)

// maxCopyAttempts bounds how often a drifted copy is retried before the
// job fails.
const maxCopyAttempts = 3

// DataCopier moves a tenant's rows between placements. Copy performs
// the bulk copy; CopyDelta re-copies whatever changed since the last
// pass. Both must be idempotent so a restarted job can repeat them.
type DataCopier interface {
	Copy(ctx context.Context, job *domainMigration.Job) (int64, error)
	CopyDelta(ctx context.Context, job *domainMigration.Job) (int64, error)
}

// Verifier checks source and destination for consistency after a copy.
type Verifier interface {
	Verify(ctx context.Context, job *domainMigration.Job) (bool, error)
}

// Freezer controls the tenant write-freeze marker used during cutover.
type Freezer interface {
	Freeze(ctx context.Context, tenantSID string, ttl time.Duration) error
	Unfreeze(ctx context.Context, tenantSID string) error
}

// RouteInvalidator drops cached routing decisions after a placement
// change.
type RouteInvalidator interface {
	Invalidate(ctx context.Context, sid, slug string)
}

// Coordinator drives migration jobs through their phases: copy, verify,
// freeze, final delta, cutover. Routing keeps flowing to the source the
// whole time; only the cutover itself freezes writes, and that window
// is bounded by the freeze TTL even if the coordinator dies.
type Coordinator struct {
	tenantRepo domainTenant.Repository
	jobRepo    domainMigration.Repository
	copier     DataCopier
	verifier   Verifier
	freezer    Freezer
	routes     RouteInvalidator
	txManager  *db.TransactionManager
	publisher  events.EventPublisher
	cfg        config.MigrationConfig
	logger     logger.Interface
}

// NewCoordinator creates a migration coordinator.
func NewCoordinator(
	tenantRepo domainTenant.Repository,
	jobRepo domainMigration.Repository,
	copier DataCopier,
	verifier Verifier,
	freezer Freezer,
	routes RouteInvalidator,
	txManager *db.TransactionManager,
	publisher events.EventPublisher,
	cfg config.MigrationConfig,
	logger logger.Interface,
) *Coordinator {
	return &Coordinator{
		tenantRepo: tenantRepo,
		jobRepo:    jobRepo,
		copier:     copier,
		verifier:   verifier,
		freezer:    freezer,
		routes:     routes,
		txManager:  txManager,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Process advances one job as far as it can go in a single pass. Jobs
// parked mid-phase by a restart resume from their persisted state; the
// copy and verify phases are idempotent so repeating them is safe.
func (c *Coordinator) Process(ctx context.Context, job *domainMigration.Job) error {
	c.logger.Infow("processing migration job",
		"job_sid", job.SID(),
		"tenant_sid", job.TenantSID(),
		"state", job.State(),
		"correlation_id", job.CorrelationID(),
	)

	for !job.State().Terminal() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch job.State() {
		case domainMigration.StatePending:
			if err := job.StartCopy(); err != nil {
				return c.fail(ctx, job, fmt.Sprintf("cannot start copy: %v", err))
			}
			if err := c.jobRepo.Update(ctx, job); err != nil {
				return fmt.Errorf("failed to persist job state: %w", err)
			}

		case domainMigration.StateCopying:
			if err := c.runCopy(ctx, job); err != nil {
				return err
			}

		case domainMigration.StateVerifying:
			if err := c.runVerify(ctx, job); err != nil {
				return err
			}

		case domainMigration.StateCutover:
			return c.runCutover(ctx, job)

		case domainMigration.StateComplete, domainMigration.StateFailed:
			return nil
		}
	}

	return nil
}

// runCopy performs the bulk copy (or a delta on retry) and moves the job
// to verification.
func (c *Coordinator) runCopy(ctx context.Context, job *domainMigration.Job) error {
	var (
		rows int64
		err  error
	)
	if job.Attempt() > 1 {
		rows, err = c.copier.CopyDelta(ctx, job)
	} else {
		rows, err = c.copier.Copy(ctx, job)
	}
	if err != nil {
		return c.fail(ctx, job, fmt.Sprintf("copy failed: %v", err))
	}

	job.RecordProgress(job.RowsCopied() + rows)
	if err := job.MarkVerifying(); err != nil {
		return c.fail(ctx, job, fmt.Sprintf("cannot mark verifying: %v", err))
	}
	if err := c.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to persist job state: %w", err)
	}

	c.logger.Infow("copy phase finished",
		"job_sid", job.SID(),
		"tenant_sid", job.TenantSID(),
		"rows_copied", job.RowsCopied(),
		"attempt", job.Attempt(),
	)
	return nil
}

// runVerify compares source and destination. Drift sends the job back to
// copying for a delta pass; persistent drift fails the job.
func (c *Coordinator) runVerify(ctx context.Context, job *domainMigration.Job) error {
	consistent, err := c.verifier.Verify(ctx, job)
	if err != nil {
		return c.fail(ctx, job, fmt.Sprintf("verification failed: %v", err))
	}

	if !consistent {
		if job.Attempt() >= maxCopyAttempts {
			return c.fail(ctx, job, fmt.Sprintf("destination still drifting after %d copy attempts", job.Attempt()))
		}
		c.logger.Warnw("verification found drift, scheduling delta copy",
			"job_sid", job.SID(),
			"tenant_sid", job.TenantSID(),
			"attempt", job.Attempt(),
		)
		if err := job.RetryCopy(); err != nil {
			return c.fail(ctx, job, fmt.Sprintf("cannot retry copy: %v", err))
		}
		return c.jobRepo.Update(ctx, job)
	}

	if err := job.BeginCutover(); err != nil {
		return c.fail(ctx, job, fmt.Sprintf("cannot begin cutover: %v", err))
	}
	return c.jobRepo.Update(ctx, job)
}

// runCutover freezes the tenant's writes, copies the final delta, and
// atomically swaps the tenant's placement. The swap runs on a detached
// context so a dying caller cannot abandon a half-finished cutover, and
// the freeze marker's TTL bounds the window regardless of what happens
// here.
func (c *Coordinator) runCutover(ctx context.Context, job *domainMigration.Job) error {
	tenantSID := job.TenantSID()

	if err := c.freezer.Freeze(ctx, tenantSID, c.cfg.FreezeTimeout()); err != nil {
		return c.fail(ctx, job, fmt.Sprintf("failed to freeze writes: %v", err))
	}

	cutCtx, cancel := context.WithTimeout(context.Background(), c.cfg.FreezeTimeout())
	defer cancel()
	defer func() {
		if err := c.freezer.Unfreeze(cutCtx, tenantSID); err != nil {
			c.logger.Errorw("failed to clear freeze marker, TTL will expire it",
				"tenant_sid", tenantSID,
				"error", err,
			)
		}
	}()

	c.logger.Infow("writes frozen for cutover",
		"job_sid", job.SID(),
		"tenant_sid", tenantSID,
		"freeze_timeout", c.cfg.FreezeTimeout(),
	)

	if _, err := c.copier.CopyDelta(cutCtx, job); err != nil {
		return c.rollback(cutCtx, job, fmt.Sprintf("final delta copy failed: %v", err))
	}
	consistent, err := c.verifier.Verify(cutCtx, job)
	if err != nil {
		return c.rollback(cutCtx, job, fmt.Sprintf("final verification failed: %v", err))
	}
	if !consistent {
		return c.rollback(cutCtx, job, "destination drifted during freeze")
	}

	tenantEntity, err := c.tenantRepo.GetBySID(cutCtx, tenantSID)
	if err != nil {
		return c.rollback(cutCtx, job, fmt.Sprintf("failed to load tenant: %v", err))
	}
	if tenantEntity == nil {
		return c.fail(cutCtx, job, "tenant vanished before cutover")
	}

	if err := tenantEntity.CompleteCutover(); err != nil {
		return c.rollback(cutCtx, job, fmt.Sprintf("cutover refused: %v", err))
	}
	if err := job.Complete(); err != nil {
		return c.rollback(cutCtx, job, fmt.Sprintf("cannot complete job: %v", err))
	}

	err = c.txManager.RunInTransaction(cutCtx, func(txCtx context.Context) error {
		if err := c.tenantRepo.Update(txCtx, tenantEntity); err != nil {
			return err
		}
		return c.jobRepo.Update(txCtx, job)
	})
	if err != nil {
		// The rolled-back transaction never persisted the in-memory
		// completion. Reload the stored cutover-state job so it is
		// still failable; the terminal in-memory copy is not.
		if fresh, loadErr := c.jobRepo.GetBySID(cutCtx, job.SID()); loadErr == nil && fresh != nil {
			job = fresh
		}
		return c.rollback(cutCtx, job, fmt.Sprintf("failed to persist cutover: %v", err))
	}

	c.publishPlacementChange(domainTenant.EventCutoverCompleted, tenantEntity)
	c.invalidateRoutes(cutCtx, tenantEntity)

	c.logger.Infow("cutover completed",
		"job_sid", job.SID(),
		"tenant_sid", tenantSID,
		"tier", tenantEntity.Tier(),
		"pool_key", tenantEntity.ActiveTarget().PoolKey(),
		"rows_copied", job.RowsCopied(),
	)
	return nil
}

// fail marks the job failed and restores the tenant to active on its
// source placement.
func (c *Coordinator) fail(ctx context.Context, job *domainMigration.Job, reason string) error {
	c.logger.Errorw("migration job failed",
		"job_sid", job.SID(),
		"tenant_sid", job.TenantSID(),
		"state", job.State(),
		"reason", reason,
	)

	if err := job.Fail(reason); err != nil {
		return fmt.Errorf("cannot fail job %s: %w", job.SID(), err)
	}
	if err := c.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to persist failed job: %w", err)
	}

	tenantEntity, err := c.tenantRepo.GetBySID(ctx, job.TenantSID())
	if err != nil || tenantEntity == nil {
		c.logger.Errorw("failed to load tenant for migration abort", "tenant_sid", job.TenantSID(), "error", err)
		return nil
	}
	if !tenantEntity.IsMigrating() {
		return nil
	}
	if err := tenantEntity.AbortMigration(); err != nil {
		c.logger.Errorw("failed to abort tenant migration", "tenant_sid", job.TenantSID(), "error", err)
		return nil
	}
	if err := c.tenantRepo.Update(ctx, tenantEntity); err != nil {
		c.logger.Errorw("failed to persist migration abort", "tenant_sid", job.TenantSID(), "error", err)
		return nil
	}

	c.publishPlacementChange(domainTenant.EventMigrationAborted, tenantEntity)
	c.invalidateRoutes(ctx, tenantEntity)
	return nil
}

// rollback is fail with cutover context: the tenant stays on its source
// placement, which never stopped serving reads.
func (c *Coordinator) rollback(ctx context.Context, job *domainMigration.Job, reason string) error {
	c.logger.Warnw("rolling back cutover",
		"job_sid", job.SID(),
		"tenant_sid", job.TenantSID(),
		"reason", reason,
	)
	return c.fail(ctx, job, reason)
}

func (c *Coordinator) publishPlacementChange(eventType string, t *domainTenant.Tenant) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(domainTenant.NewPlacementChangedEvent(eventType, t)); err != nil {
		c.logger.Warnw("failed to publish placement change event",
			"event_type", eventType,
			"tenant_sid", t.SID(),
			"error", err,
		)
	}
}

func (c *Coordinator) invalidateRoutes(ctx context.Context, t *domainTenant.Tenant) {
	if c.routes == nil {
		return
	}
	c.routes.Invalidate(ctx, t.SID(), t.Slug())
}

package usecases

import (
	"context"
	"fmt"

	"stratum/internal/application/tenant/dto"
	"stratum/internal/domain/migration"
	"stratum/internal/domain/shared/events"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/db"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
)

// StartMigrationUseCase handles enqueueing a tier migration. It records
// the destination on the tenant and creates the job in one transaction;
// the coordinator picks the job up asynchronously.
type StartMigrationUseCase struct {
	tenantRepo domainTenant.Repository
	jobRepo    migration.Repository
	planner    *PlacementPlanner
	txManager  *db.TransactionManager
	publisher  events.EventPublisher
	logger     logger.Interface
}

// NewStartMigrationUseCase creates a new start migration use case.
func NewStartMigrationUseCase(
	tenantRepo domainTenant.Repository,
	jobRepo migration.Repository,
	planner *PlacementPlanner,
	txManager *db.TransactionManager,
	publisher events.EventPublisher,
	logger logger.Interface,
) *StartMigrationUseCase {
	return &StartMigrationUseCase{
		tenantRepo: tenantRepo,
		jobRepo:    jobRepo,
		planner:    planner,
		txManager:  txManager,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute enqueues a migration moving the tenant to the requested tier.
func (uc *StartMigrationUseCase) Execute(ctx context.Context, tenantSID string, request dto.StartMigrationRequest) (*dto.MigrationJobResponse, error) {
	uc.logger.Infow("executing start migration use case", "tenant_sid", tenantSID, "target_tier", request.TargetTier)

	tier, err := domainTenant.ParseIsolationTier(request.TargetTier)
	if err != nil {
		return nil, errors.NewValidationError("invalid target tier", request.TargetTier)
	}

	tenantEntity, err := uc.tenantRepo.GetBySID(ctx, tenantSID)
	if err != nil {
		uc.logger.Errorw("failed to fetch tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to fetch tenant: %w", err)
	}
	if tenantEntity == nil {
		return nil, errors.NewTenantNotFoundError(tenantSID)
	}

	active, err := uc.jobRepo.GetActiveByTenant(ctx, tenantSID)
	if err != nil {
		uc.logger.Errorw("failed to check active migration", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to check active migration: %w", err)
	}
	if active != nil {
		return nil, errors.NewConflictError("tenant already has a migration in flight", active.SID())
	}

	destination, err := uc.planner.Plan(tier, tenantEntity.Slug(), request.Dedicated)
	if err != nil {
		return nil, err
	}

	// The status transition runs against a row locked for the length
	// of the transaction, so two racing starts serialize and the loser
	// sees the migrating status.
	var (
		job    *migration.Job
		source domainTenant.ConnectionTarget
	)
	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		locked, err := uc.tenantRepo.GetBySIDForUpdate(txCtx, tenantSID)
		if err != nil {
			return err
		}
		if locked == nil {
			return errors.NewTenantNotFoundError(tenantSID)
		}

		source = locked.ActiveTarget()
		if err := locked.BeginMigration(destination); err != nil {
			return errors.NewConflictError("cannot start migration", err.Error())
		}

		job, err = migration.NewJob(tenantSID, source, destination)
		if err != nil {
			return errors.NewValidationError("invalid migration", err.Error())
		}

		if err := uc.tenantRepo.Update(txCtx, locked); err != nil {
			return err
		}
		tenantEntity = locked
		return uc.jobRepo.Create(txCtx, job)
	})
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		uc.logger.Errorw("failed to enqueue migration", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to enqueue migration: %w", err)
	}

	if uc.publisher != nil {
		event := domainTenant.NewPlacementChangedEvent(domainTenant.EventMigrationStarted, tenantEntity)
		if err := uc.publisher.Publish(event); err != nil {
			uc.logger.Warnw("failed to publish migration started event", "tenant_sid", tenantSID, "error", err)
		}
	}

	uc.logger.Infow("migration enqueued",
		"tenant_sid", tenantSID,
		"job_sid", job.SID(),
		"source_pool", source.PoolKey(),
		"dest_pool", destination.PoolKey(),
	)

	return toMigrationJobResponse(job), nil
}

package usecases

import (
	"context"
	"fmt"

	"stratum/internal/application/tenant/dto"
	"stratum/internal/domain/shared/events"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
)

// SuspendTenantUseCase handles suspending a tenant from routing.
type SuspendTenantUseCase struct {
	tenantRepo domainTenant.Repository
	publisher  events.EventPublisher
	logger     logger.Interface
}

// NewSuspendTenantUseCase creates a new suspend tenant use case.
func NewSuspendTenantUseCase(
	tenantRepo domainTenant.Repository,
	publisher events.EventPublisher,
	logger logger.Interface,
) *SuspendTenantUseCase {
	return &SuspendTenantUseCase{
		tenantRepo: tenantRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute suspends the tenant. Suspending a migrating tenant is refused.
func (uc *SuspendTenantUseCase) Execute(ctx context.Context, tenantSID string) (*dto.TenantResponse, error) {
	tenantEntity, err := uc.tenantRepo.GetBySID(ctx, tenantSID)
	if err != nil {
		uc.logger.Errorw("failed to fetch tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to fetch tenant: %w", err)
	}
	if tenantEntity == nil {
		return nil, errors.NewTenantNotFoundError(tenantSID)
	}

	if err := tenantEntity.Suspend(); err != nil {
		uc.logger.Warnw("suspend refused", "tenant_sid", tenantSID, "status", tenantEntity.Status(), "error", err)
		return nil, errors.NewConflictError("cannot suspend tenant", err.Error())
	}

	if err := uc.tenantRepo.Update(ctx, tenantEntity); err != nil {
		if errors.IsConflictError(err) {
			return nil, err
		}
		uc.logger.Errorw("failed to update tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	if uc.publisher != nil {
		event := domainTenant.NewPlacementChangedEvent(domainTenant.EventTenantSuspended, tenantEntity)
		if err := uc.publisher.Publish(event); err != nil {
			uc.logger.Warnw("failed to publish tenant suspended event", "tenant_sid", tenantSID, "error", err)
		}
	}

	uc.logger.Infow("tenant suspended", "tenant_sid", tenantSID)
	return toTenantResponse(tenantEntity), nil
}

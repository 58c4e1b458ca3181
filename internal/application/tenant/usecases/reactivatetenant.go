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

// ReactivateTenantUseCase handles restoring a suspended tenant.
type ReactivateTenantUseCase struct {
	tenantRepo domainTenant.Repository
	publisher  events.EventPublisher
	logger     logger.Interface
}

// NewReactivateTenantUseCase creates a new reactivate tenant use case.
func NewReactivateTenantUseCase(
	tenantRepo domainTenant.Repository,
	publisher events.EventPublisher,
	logger logger.Interface,
) *ReactivateTenantUseCase {
	return &ReactivateTenantUseCase{
		tenantRepo: tenantRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute reactivates a suspended tenant.
func (uc *ReactivateTenantUseCase) Execute(ctx context.Context, tenantSID string) (*dto.TenantResponse, error) {
	tenantEntity, err := uc.tenantRepo.GetBySID(ctx, tenantSID)
	if err != nil {
		uc.logger.Errorw("failed to fetch tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to fetch tenant: %w", err)
	}
	if tenantEntity == nil {
		return nil, errors.NewTenantNotFoundError(tenantSID)
	}

	if err := tenantEntity.Reactivate(); err != nil {
		uc.logger.Warnw("reactivate refused", "tenant_sid", tenantSID, "status", tenantEntity.Status(), "error", err)
		return nil, errors.NewConflictError("cannot reactivate tenant", err.Error())
	}

	if err := uc.tenantRepo.Update(ctx, tenantEntity); err != nil {
		if errors.IsConflictError(err) {
			return nil, err
		}
		uc.logger.Errorw("failed to update tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	if uc.publisher != nil {
		event := domainTenant.NewPlacementChangedEvent(domainTenant.EventTenantReactivated, tenantEntity)
		if err := uc.publisher.Publish(event); err != nil {
			uc.logger.Warnw("failed to publish tenant reactivated event", "tenant_sid", tenantSID, "error", err)
		}
	}

	uc.logger.Infow("tenant reactivated", "tenant_sid", tenantSID)
	return toTenantResponse(tenantEntity), nil
}

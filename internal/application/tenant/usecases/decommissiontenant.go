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

// DecommissionTenantUseCase handles permanently retiring a tenant.
type DecommissionTenantUseCase struct {
	tenantRepo domainTenant.Repository
	publisher  events.EventPublisher
	logger     logger.Interface
}

// NewDecommissionTenantUseCase creates a new decommission tenant use case.
func NewDecommissionTenantUseCase(
	tenantRepo domainTenant.Repository,
	publisher events.EventPublisher,
	logger logger.Interface,
) *DecommissionTenantUseCase {
	return &DecommissionTenantUseCase{
		tenantRepo: tenantRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute decommissions the tenant. In-flight migrations must finish or
// abort first.
func (uc *DecommissionTenantUseCase) Execute(ctx context.Context, tenantSID string) (*dto.TenantResponse, error) {
	tenantEntity, err := uc.tenantRepo.GetBySID(ctx, tenantSID)
	if err != nil {
		uc.logger.Errorw("failed to fetch tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to fetch tenant: %w", err)
	}
	if tenantEntity == nil {
		return nil, errors.NewTenantNotFoundError(tenantSID)
	}

	if err := tenantEntity.Decommission(); err != nil {
		uc.logger.Warnw("decommission refused", "tenant_sid", tenantSID, "status", tenantEntity.Status(), "error", err)
		return nil, errors.NewConflictError("cannot decommission tenant", err.Error())
	}

	if err := uc.tenantRepo.Update(ctx, tenantEntity); err != nil {
		if errors.IsConflictError(err) {
			return nil, err
		}
		uc.logger.Errorw("failed to update tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	if uc.publisher != nil {
		event := domainTenant.NewPlacementChangedEvent(domainTenant.EventTenantDecommissioned, tenantEntity)
		if err := uc.publisher.Publish(event); err != nil {
			uc.logger.Warnw("failed to publish tenant decommissioned event", "tenant_sid", tenantSID, "error", err)
		}
	}

	uc.logger.Infow("tenant decommissioned", "tenant_sid", tenantSID)
	return toTenantResponse(tenantEntity), nil
}

package usecases

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"stratum/internal/application/tenant/dto"
	"stratum/internal/domain/shared/events"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
)

// UpdateTenantUseCase handles profile updates on a tenant.
type UpdateTenantUseCase struct {
	tenantRepo domainTenant.Repository
	publisher  events.EventPublisher
	logger     logger.Interface
}

// NewUpdateTenantUseCase creates a new update tenant use case.
func NewUpdateTenantUseCase(
	tenantRepo domainTenant.Repository,
	publisher events.EventPublisher,
	logger logger.Interface,
) *UpdateTenantUseCase {
	return &UpdateTenantUseCase{
		tenantRepo: tenantRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute applies the requested profile changes to the tenant.
func (uc *UpdateTenantUseCase) Execute(ctx context.Context, tenantSID string, request dto.UpdateTenantRequest) (*dto.TenantResponse, error) {
	tenantEntity, err := uc.tenantRepo.GetBySID(ctx, tenantSID)
	if err != nil {
		uc.logger.Errorw("failed to fetch tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to fetch tenant: %w", err)
	}
	if tenantEntity == nil {
		return nil, errors.NewTenantNotFoundError(tenantSID)
	}

	changed := false
	if request.Name != nil && strings.TrimSpace(*request.Name) != tenantEntity.Name() {
		if err := tenantEntity.UpdateName(*request.Name); err != nil {
			return nil, errors.NewValidationError("invalid name", err.Error())
		}
		changed = true
	}
	if request.Plan != nil || request.MaxUsers != nil || request.MaxStorageBytes != nil {
		plan := tenantEntity.Plan()
		maxUsers := tenantEntity.MaxUsers()
		maxStorage := tenantEntity.MaxStorageBytes()
		if request.Plan != nil {
			plan = strings.TrimSpace(*request.Plan)
		}
		if request.MaxUsers != nil {
			maxUsers = *request.MaxUsers
		}
		if request.MaxStorageBytes != nil {
			maxStorage = *request.MaxStorageBytes
		}
		if plan != tenantEntity.Plan() || maxUsers != tenantEntity.MaxUsers() || maxStorage != tenantEntity.MaxStorageBytes() {
			tenantEntity.UpdatePlan(plan, maxUsers, maxStorage)
			changed = true
		}
	}
	if request.ComplianceFlags != nil && !slices.Equal(*request.ComplianceFlags, tenantEntity.ComplianceFlags()) {
		tenantEntity.SetComplianceFlags(*request.ComplianceFlags)
		changed = true
	}

	// An update carrying only current values changes nothing: no version
	// bump, no event, no cache invalidation.
	if !changed {
		uc.logger.Debugw("tenant update is a no-op", "tenant_sid", tenantSID)
		return toTenantResponse(tenantEntity), nil
	}

	if err := uc.tenantRepo.Update(ctx, tenantEntity); err != nil {
		if errors.IsConflictError(err) {
			return nil, err
		}
		uc.logger.Errorw("failed to update tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	if uc.publisher != nil {
		event := domainTenant.NewPlacementChangedEvent(domainTenant.EventTenantUpdated, tenantEntity)
		if err := uc.publisher.Publish(event); err != nil {
			uc.logger.Warnw("failed to publish tenant updated event", "tenant_sid", tenantSID, "error", err)
		}
	}

	uc.logger.Infow("tenant updated", "tenant_sid", tenantSID)
	return toTenantResponse(tenantEntity), nil
}

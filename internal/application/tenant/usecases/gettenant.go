package usecases

import (
	"context"
	"fmt"

	"stratum/internal/application/tenant/dto"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
)

// GetTenantUseCase handles fetching a single tenant.
type GetTenantUseCase struct {
	tenantRepo domainTenant.Repository
	logger     logger.Interface
}

// NewGetTenantUseCase creates a new get tenant use case.
func NewGetTenantUseCase(tenantRepo domainTenant.Repository, logger logger.Interface) *GetTenantUseCase {
	return &GetTenantUseCase{
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// Execute fetches a tenant by its SID.
func (uc *GetTenantUseCase) Execute(ctx context.Context, tenantSID string) (*dto.TenantResponse, error) {
	tenantEntity, err := uc.tenantRepo.GetBySID(ctx, tenantSID)
	if err != nil {
		uc.logger.Errorw("failed to fetch tenant", "tenant_sid", tenantSID, "error", err)
		return nil, fmt.Errorf("failed to fetch tenant: %w", err)
	}
	if tenantEntity == nil {
		return nil, errors.NewTenantNotFoundError(tenantSID)
	}

	return toTenantResponse(tenantEntity), nil
}

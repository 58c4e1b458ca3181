package usecases

import (
	"context"
	"fmt"

	"stratum/internal/application/tenant/dto"
	domainTenant "stratum/internal/domain/tenant"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

// ListTenantsUseCase handles listing tenants with filters.
type ListTenantsUseCase struct {
	tenantRepo domainTenant.Repository
	logger     logger.Interface
}

// NewListTenantsUseCase creates a new list tenants use case.
func NewListTenantsUseCase(tenantRepo domainTenant.Repository, logger logger.Interface) *ListTenantsUseCase {
	return &ListTenantsUseCase{
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// Execute lists tenants matching the request filters.
func (uc *ListTenantsUseCase) Execute(ctx context.Context, request dto.ListTenantsRequest) (*dto.ListTenantsResponse, error) {
	filter := domainTenant.ListFilter{
		Page:     request.Page,
		PageSize: request.PageSize,
	}

	if request.Status != "" {
		status, err := domainTenant.ParseTenantStatus(request.Status)
		if err != nil {
			return nil, errors.NewValidationError("invalid status filter", request.Status)
		}
		filter.Status = &status
	}
	if request.Tier != "" {
		tier, err := domainTenant.ParseIsolationTier(request.Tier)
		if err != nil {
			return nil, errors.NewValidationError("invalid tier filter", request.Tier)
		}
		filter.Tier = &tier
	}

	tenants, total, err := uc.tenantRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Errorw("failed to list tenants", "error", err)
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	responses := make([]*dto.TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		responses = append(responses, toTenantResponse(t))
	}

	page, pageSize := utils.NormalizePagination(request.Page, request.PageSize)
	return &dto.ListTenantsResponse{
		Tenants: responses,
		Pagination: dto.PaginationResponse{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}, nil
}

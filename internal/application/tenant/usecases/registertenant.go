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

// RegisterTenantUseCase handles the business logic for registering a tenant.
type RegisterTenantUseCase struct {
	tenantRepo domainTenant.Repository
	planner    *PlacementPlanner
	publisher  events.EventPublisher
	logger     logger.Interface
}

// NewRegisterTenantUseCase creates a new register tenant use case.
func NewRegisterTenantUseCase(
	tenantRepo domainTenant.Repository,
	planner *PlacementPlanner,
	publisher events.EventPublisher,
	logger logger.Interface,
) *RegisterTenantUseCase {
	return &RegisterTenantUseCase{
		tenantRepo: tenantRepo,
		planner:    planner,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute registers a tenant on the placement its tier resolves to.
func (uc *RegisterTenantUseCase) Execute(ctx context.Context, request dto.RegisterTenantRequest) (*dto.TenantResponse, error) {
	uc.logger.Infow("executing register tenant use case", "slug", request.Slug, "tier", request.Tier)

	tier, err := domainTenant.ParseIsolationTier(request.Tier)
	if err != nil {
		return nil, errors.NewValidationError("invalid isolation tier", request.Tier)
	}

	existing, err := uc.tenantRepo.GetBySlug(ctx, request.Slug)
	if err != nil {
		uc.logger.Errorw("database error while checking for existing tenant", "slug", request.Slug, "error", err)
		return nil, fmt.Errorf("failed to check existing tenant: %w", err)
	}
	if existing != nil {
		uc.logger.Warnw("tenant slug already registered", "slug", request.Slug)
		return nil, errors.NewValidationError("tenant slug already registered", request.Slug)
	}

	target, err := uc.planner.Plan(tier, request.Slug, request.Dedicated)
	if err != nil {
		uc.logger.Errorw("failed to plan placement", "slug", request.Slug, "tier", request.Tier, "error", err)
		return nil, err
	}

	tenantEntity, err := domainTenant.NewTenant(request.Name, request.Slug, target)
	if err != nil {
		return nil, errors.NewValidationError("invalid tenant", err.Error())
	}
	if request.Plan != "" || request.MaxUsers > 0 || request.MaxStorageBytes > 0 {
		tenantEntity.UpdatePlan(request.Plan, request.MaxUsers, request.MaxStorageBytes)
	}
	if len(request.ComplianceFlags) > 0 {
		tenantEntity.SetComplianceFlags(request.ComplianceFlags)
	}

	if err := uc.tenantRepo.Create(ctx, tenantEntity); err != nil {
		if errors.IsValidationError(err) {
			return nil, err
		}
		uc.logger.Errorw("failed to persist tenant", "slug", request.Slug, "error", err)
		return nil, fmt.Errorf("failed to save tenant: %w", err)
	}

	if uc.publisher != nil {
		if err := uc.publisher.Publish(domainTenant.NewRegisteredEvent(tenantEntity)); err != nil {
			uc.logger.Warnw("failed to publish tenant registered event", "tenant_sid", tenantEntity.SID(), "error", err)
		}
	}

	uc.logger.Infow("tenant registered",
		"tenant_sid", tenantEntity.SID(),
		"slug", tenantEntity.Slug(),
		"tier", tenantEntity.Tier(),
		"pool_key", tenantEntity.ActiveTarget().PoolKey(),
	)

	return toTenantResponse(tenantEntity), nil
}

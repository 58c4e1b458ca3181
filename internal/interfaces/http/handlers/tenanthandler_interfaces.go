package handlers

import (
	"context"

	"stratum/internal/application/routing"
	"stratum/internal/application/tenant/dto"
	"stratum/internal/infrastructure/auth"
)

// Use case interfaces for the handlers - enables unit testing with mocks.

type registerTenantUseCase interface {
	Execute(ctx context.Context, request dto.RegisterTenantRequest) (*dto.TenantResponse, error)
}

type getTenantUseCase interface {
	Execute(ctx context.Context, tenantSID string) (*dto.TenantResponse, error)
}

type listTenantsUseCase interface {
	Execute(ctx context.Context, request dto.ListTenantsRequest) (*dto.ListTenantsResponse, error)
}

type updateTenantUseCase interface {
	Execute(ctx context.Context, tenantSID string, request dto.UpdateTenantRequest) (*dto.TenantResponse, error)
}

type suspendTenantUseCase interface {
	Execute(ctx context.Context, tenantSID string) (*dto.TenantResponse, error)
}

type reactivateTenantUseCase interface {
	Execute(ctx context.Context, tenantSID string) (*dto.TenantResponse, error)
}

type decommissionTenantUseCase interface {
	Execute(ctx context.Context, tenantSID string) (*dto.TenantResponse, error)
}

type startMigrationUseCase interface {
	Execute(ctx context.Context, tenantSID string, request dto.StartMigrationRequest) (*dto.MigrationJobResponse, error)
}

type getMigrationJobUseCase interface {
	Execute(ctx context.Context, jobSID string) (*dto.MigrationJobResponse, error)
}

type listMigrationJobsUseCase interface {
	Execute(ctx context.Context, request dto.ListMigrationJobsRequest) (*dto.ListMigrationJobsResponse, error)
}

type routeResolver interface {
	Resolve(ctx context.Context, hint routing.Hint) (*routing.Route, error)
}

type tokenIssuer interface {
	Generate(subjectSID, tenantSID, role string) (*auth.TokenPair, error)
	Refresh(refreshToken string) (*auth.TokenPair, error)
}

type apiKeyVerifier interface {
	Verify(secret, hash string) error
}

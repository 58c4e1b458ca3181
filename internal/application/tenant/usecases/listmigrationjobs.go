package usecases

import (
	"context"
	"fmt"

	"stratum/internal/application/tenant/dto"
	"stratum/internal/domain/migration"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

// ListMigrationJobsUseCase handles listing migration jobs with filters.
type ListMigrationJobsUseCase struct {
	jobRepo migration.Repository
	logger  logger.Interface
}

// NewListMigrationJobsUseCase creates a new list migration jobs use case.
func NewListMigrationJobsUseCase(jobRepo migration.Repository, logger logger.Interface) *ListMigrationJobsUseCase {
	return &ListMigrationJobsUseCase{
		jobRepo: jobRepo,
		logger:  logger,
	}
}

// Execute lists migration jobs matching the request filters.
func (uc *ListMigrationJobsUseCase) Execute(ctx context.Context, request dto.ListMigrationJobsRequest) (*dto.ListMigrationJobsResponse, error) {
	filter := migration.ListFilter{
		TenantSID: request.TenantID,
		Page:      request.Page,
		PageSize:  request.PageSize,
	}

	if request.State != "" {
		state, err := migration.ParseJobState(request.State)
		if err != nil {
			return nil, errors.NewValidationError("invalid state filter", request.State)
		}
		filter.State = &state
	}

	jobs, total, err := uc.jobRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Errorw("failed to list migration jobs", "error", err)
		return nil, fmt.Errorf("failed to list migration jobs: %w", err)
	}

	responses := make([]*dto.MigrationJobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, toMigrationJobResponse(job))
	}

	page, pageSize := utils.NormalizePagination(request.Page, request.PageSize)
	return &dto.ListMigrationJobsResponse{
		Jobs: responses,
		Pagination: dto.PaginationResponse{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}, nil
}

package usecases

import (
	"context"
	"fmt"

	"stratum/internal/application/tenant/dto"
	"stratum/internal/domain/migration"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
)

// GetMigrationJobUseCase handles fetching a single migration job.
type GetMigrationJobUseCase struct {
	jobRepo migration.Repository
	logger  logger.Interface
}

// NewGetMigrationJobUseCase creates a new get migration job use case.
func NewGetMigrationJobUseCase(jobRepo migration.Repository, logger logger.Interface) *GetMigrationJobUseCase {
	return &GetMigrationJobUseCase{
		jobRepo: jobRepo,
		logger:  logger,
	}
}

// Execute fetches a migration job by its SID.
func (uc *GetMigrationJobUseCase) Execute(ctx context.Context, jobSID string) (*dto.MigrationJobResponse, error) {
	job, err := uc.jobRepo.GetBySID(ctx, jobSID)
	if err != nil {
		uc.logger.Errorw("failed to fetch migration job", "job_sid", jobSID, "error", err)
		return nil, fmt.Errorf("failed to fetch migration job: %w", err)
	}
	if job == nil {
		return nil, errors.NewNotFoundError("migration job not found", jobSID)
	}

	return toMigrationJobResponse(job), nil
}

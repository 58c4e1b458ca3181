package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stratum/internal/domain/migration"
	"stratum/internal/infrastructure/persistence/mappers"
	"stratum/internal/infrastructure/persistence/models"
	"stratum/internal/shared/db"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

type MigrationJobRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.MigrationJobMapper
	logger logger.Interface
}

func NewMigrationJobRepository(gdb *gorm.DB, logger logger.Interface) migration.Repository {
	return &MigrationJobRepositoryImpl{
		db:     gdb,
		mapper: mappers.NewMigrationJobMapper(),
		logger: logger,
	}
}

func (r *MigrationJobRepositoryImpl) Create(ctx context.Context, job *migration.Job) error {
	model, err := r.mapper.ToModel(job)
	if err != nil {
		r.logger.Errorw("failed to convert migration job to model", "error", err)
		return fmt.Errorf("failed to convert migration job to model: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		r.logger.Errorw("failed to create migration job", "error", err, "tenant_sid", job.TenantSID())
		return fmt.Errorf("failed to create migration job: %w", err)
	}

	job.SetID(model.ID)

	r.logger.Infow("migration job created",
		"job_id", model.ID,
		"sid", job.SID(),
		"tenant_sid", job.TenantSID(),
		"correlation_id", job.CorrelationID(),
	)
	return nil
}

// Update persists job changes guarded by the loaded version so two
// coordinator instances cannot drive the same job concurrently.
func (r *MigrationJobRepositoryImpl) Update(ctx context.Context, job *migration.Job) error {
	model, err := r.mapper.ToModel(job)
	if err != nil {
		r.logger.Errorw("failed to convert migration job to model", "error", err)
		return fmt.Errorf("failed to convert migration job to model: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.MigrationJobModel{}).
		Where("id = ? AND version = ?", job.ID(), job.Version()).
		Updates(map[string]interface{}{
			"state":          model.State,
			"failure_reason": model.FailureReason,
			"rows_copied":    model.RowsCopied,
			"attempt":        model.Attempt,
			"started_at":     model.StartedAt,
			"completed_at":   model.CompletedAt,
			"version":        model.Version + 1,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update migration job", "error", result.Error, "job_id", job.ID())
		return fmt.Errorf("failed to update migration job: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return errors.NewConflictError("migration job was modified concurrently", job.SID())
	}

	job.BumpVersion()
	return nil
}

func (r *MigrationJobRepositoryImpl) GetBySID(ctx context.Context, sid string) (*migration.Job, error) {
	var model models.MigrationJobModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("sid = ?", sid).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get migration job by SID", "error", err, "sid", sid)
		return nil, fmt.Errorf("failed to get migration job by SID: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *MigrationJobRepositoryImpl) GetActiveByTenant(ctx context.Context, tenantSID string) (*migration.Job, error) {
	var model models.MigrationJobModel
	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Where("tenant_sid = ?", tenantSID).
		Where("state NOT IN ?", []string{
			migration.StateComplete.String(),
			migration.StateFailed.String(),
		}).
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get active migration job", "error", err, "tenant_sid", tenantSID)
		return nil, fmt.Errorf("failed to get active migration job: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *MigrationJobRepositoryImpl) ListRunnable(ctx context.Context, limit int) ([]*migration.Job, error) {
	if limit <= 0 {
		limit = 10
	}

	var jobModels []*models.MigrationJobModel
	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Where("state NOT IN ?", []string{
		migration.StateComplete.String(),
		migration.StateFailed.String(),
	}).
		Order("id ASC").
		Limit(limit).
		Find(&jobModels).Error
	if err != nil {
		r.logger.Errorw("failed to list runnable migration jobs", "error", err)
		return nil, fmt.Errorf("failed to list runnable migration jobs: %w", err)
	}

	return r.mapper.ToEntities(jobModels)
}

func (r *MigrationJobRepositoryImpl) List(ctx context.Context, filter migration.ListFilter) ([]*migration.Job, int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Model(&models.MigrationJobModel{})

	if filter.TenantSID != "" {
		query = query.Where("tenant_sid = ?", filter.TenantSID)
	}
	if filter.State != nil {
		query = query.Where("state = ?", filter.State.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logger.Errorw("failed to count migration jobs", "error", err)
		return nil, 0, fmt.Errorf("failed to count migration jobs: %w", err)
	}

	page, pageSize := utils.NormalizePagination(filter.Page, filter.PageSize)

	var jobModels []*models.MigrationJobModel
	if err := query.
		Order("id DESC").
		Limit(pageSize).
		Offset(utils.Offset(page, pageSize)).
		Find(&jobModels).Error; err != nil {
		r.logger.Errorw("failed to list migration jobs", "error", err)
		return nil, 0, fmt.Errorf("failed to list migration jobs: %w", err)
	}

	entities, err := r.mapper.ToEntities(jobModels)
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}

func (r *MigrationJobRepositoryImpl) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*migration.Job, error) {
	if limit <= 0 {
		limit = 100
	}

	var jobModels []*models.MigrationJobModel
	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.Where("state IN ?", []string{
		migration.StateComplete.String(),
		migration.StateFailed.String(),
	}).
		Where("completed_at IS NOT NULL AND completed_at < ?", cutoff).
		Order("id ASC").
		Limit(limit).
		Find(&jobModels).Error
	if err != nil {
		r.logger.Errorw("failed to list finished migration jobs", "error", err)
		return nil, fmt.Errorf("failed to list finished migration jobs: %w", err)
	}

	return r.mapper.ToEntities(jobModels)
}

func (r *MigrationJobRepositoryImpl) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Where("state IN ?", []string{
		migration.StateComplete.String(),
		migration.StateFailed.String(),
	}).
		Where("completed_at IS NOT NULL AND completed_at < ?", cutoff).
		Delete(&models.MigrationJobModel{})

	if result.Error != nil {
		r.logger.Errorw("failed to reclaim finished migration jobs", "error", result.Error)
		return 0, fmt.Errorf("failed to reclaim finished migration jobs: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		r.logger.Infow("reclaimed finished migration jobs", "count", result.RowsAffected, "cutoff", cutoff)
	}

	return result.RowsAffected, nil
}

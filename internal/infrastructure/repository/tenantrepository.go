package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stratum/internal/domain/tenant"
	"stratum/internal/infrastructure/persistence/mappers"
	"stratum/internal/infrastructure/persistence/models"
	"stratum/internal/shared/db"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

type TenantRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.TenantMapper
	logger logger.Interface
}

func NewTenantRepository(gdb *gorm.DB, logger logger.Interface) tenant.Repository {
	return &TenantRepositoryImpl{
		db:     gdb,
		mapper: mappers.NewTenantMapper(),
		logger: logger,
	}
}

func (r *TenantRepositoryImpl) Create(ctx context.Context, t *tenant.Tenant) error {
	model, err := r.mapper.ToModel(t)
	if err != nil {
		r.logger.Errorw("failed to convert tenant to model", "error", err)
		return fmt.Errorf("failed to convert tenant to model: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewValidationError("tenant slug already registered", t.Slug())
		}
		r.logger.Errorw("failed to create tenant", "error", err, "slug", t.Slug())
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	t.SetID(model.ID)

	r.logger.Infow("tenant created", "tenant_id", model.ID, "sid", t.SID(), "slug", t.Slug(), "tier", t.Tier())
	return nil
}

// Update persists aggregate changes guarded by the version the aggregate
// was loaded with. A stale version means a concurrent placement change
// won the race; the caller gets a conflict instead of a lost update.
func (r *TenantRepositoryImpl) Update(ctx context.Context, t *tenant.Tenant) error {
	model, err := r.mapper.ToModel(t)
	if err != nil {
		r.logger.Errorw("failed to convert tenant to model", "error", err)
		return fmt.Errorf("failed to convert tenant to model: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Model(&models.TenantModel{}).
		Where("id = ? AND version = ?", t.ID(), t.Version()).
		Updates(map[string]interface{}{
			"name":              model.Name,
			"tier":              model.Tier,
			"status":            model.Status,
			"active_host":       model.ActiveHost,
			"active_port":       model.ActivePort,
			"active_database":   model.ActiveDatabase,
			"active_schema":     model.ActiveSchema,
			"pending_tier":      model.PendingTier,
			"pending_host":      model.PendingHost,
			"pending_port":      model.PendingPort,
			"pending_database":  model.PendingDatabase,
			"pending_schema":    model.PendingSchema,
			"plan":              model.Plan,
			"max_users":         model.MaxUsers,
			"max_storage_bytes": model.MaxStorageBytes,
			"compliance_flags":  model.ComplianceFlags,
			"version":           model.Version + 1,
			"updated_at":        model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update tenant", "error", result.Error, "tenant_id", t.ID())
		return fmt.Errorf("failed to update tenant: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return errors.NewConflictError("tenant was modified concurrently", t.SID())
	}

	t.BumpVersion()
	r.logger.Infow("tenant updated", "tenant_id", t.ID(), "sid", t.SID(), "status", t.Status())
	return nil
}

func (r *TenantRepositoryImpl) GetByID(ctx context.Context, dbID uint) (*tenant.Tenant, error) {
	var model models.TenantModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.First(&model, dbID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get tenant by ID", "error", err, "tenant_id", dbID)
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *TenantRepositoryImpl) GetBySID(ctx context.Context, sid string) (*tenant.Tenant, error) {
	var model models.TenantModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("sid = ?", sid).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get tenant by SID", "error", err, "sid", sid)
		return nil, fmt.Errorf("failed to get tenant by SID: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// GetBySIDForUpdate locks the tenant row until the surrounding
// transaction ends. Callers must run inside the transaction manager.
func (r *TenantRepositoryImpl) GetBySIDForUpdate(ctx context.Context, sid string) (*tenant.Tenant, error) {
	var model models.TenantModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("sid = ?", sid).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to lock tenant by SID", "error", err, "sid", sid)
		return nil, fmt.Errorf("failed to lock tenant by SID: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *TenantRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	var model models.TenantModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("slug = ?", slug).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get tenant by slug", "error", err, "slug", slug)
		return nil, fmt.Errorf("failed to get tenant by slug: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *TenantRepositoryImpl) List(ctx context.Context, filter tenant.ListFilter) ([]*tenant.Tenant, int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Model(&models.TenantModel{})

	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.Tier != nil {
		query = query.Where("tier = ?", filter.Tier.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logger.Errorw("failed to count tenants", "error", err)
		return nil, 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	page, pageSize := utils.NormalizePagination(filter.Page, filter.PageSize)

	var tenantModels []*models.TenantModel
	if err := query.
		Order("id ASC").
		Limit(pageSize).
		Offset(utils.Offset(page, pageSize)).
		Find(&tenantModels).Error; err != nil {
		r.logger.Errorw("failed to list tenants", "error", err)
		return nil, 0, fmt.Errorf("failed to list tenants: %w", err)
	}

	entities, err := r.mapper.ToEntities(tenantModels)
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}

func (r *TenantRepositoryImpl) CountByActiveTarget(ctx context.Context, host string, port int, database string) (int64, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var count int64
	err := tx.Model(&models.TenantModel{}).
		Scopes(db.NotDeleted()).
		Where("active_host = ? AND active_port = ? AND active_database = ?", host, port, database).
		Where("status <> ?", tenant.StatusDecommissioned.String()).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to count tenants by active target", "error", err, "host", host, "database", database)
		return 0, fmt.Errorf("failed to count tenants by active target: %w", err)
	}

	return count, nil
}

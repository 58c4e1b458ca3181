package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"stratum/internal/domain/tenant"
	"stratum/internal/infrastructure/persistence/models"
)

// TenantMapper handles the conversion between domain entities and persistence models
type TenantMapper interface {
	// ToEntity converts a persistence model to a domain entity
	ToEntity(model *models.TenantModel) (*tenant.Tenant, error)

	// ToModel converts a domain entity to a persistence model
	ToModel(entity *tenant.Tenant) (*models.TenantModel, error)

	// ToEntities converts multiple persistence models to domain entities
	ToEntities(models []*models.TenantModel) ([]*tenant.Tenant, error)
}

// tenantMapper is the concrete implementation of TenantMapper
type tenantMapper struct{}

// NewTenantMapper creates a new tenant mapper
func NewTenantMapper() TenantMapper {
	return &tenantMapper{}
}

// ToEntity converts a persistence model to a domain entity
func (m *tenantMapper) ToEntity(model *models.TenantModel) (*tenant.Tenant, error) {
	if model == nil {
		return nil, nil
	}

	tier, err := tenant.ParseIsolationTier(model.Tier)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tier for tenant %s: %w", model.SID, err)
	}

	status, err := tenant.ParseTenantStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to parse status for tenant %s: %w", model.SID, err)
	}

	activeTarget, err := tenant.NewConnectionTarget(
		tier, model.ActiveHost, model.ActivePort, model.ActiveDatabase, model.ActiveSchema,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild active target for tenant %s: %w", model.SID, err)
	}

	var pendingTarget *tenant.ConnectionTarget
	if model.PendingTier != "" {
		pendingTier, err := tenant.ParseIsolationTier(model.PendingTier)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pending tier for tenant %s: %w", model.SID, err)
		}
		pt, err := tenant.NewConnectionTarget(
			pendingTier, model.PendingHost, model.PendingPort, model.PendingDatabase, model.PendingSchema,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild pending target for tenant %s: %w", model.SID, err)
		}
		pendingTarget = &pt
	}

	var complianceFlags []string
	if len(model.ComplianceFlags) > 0 {
		if err := json.Unmarshal(model.ComplianceFlags, &complianceFlags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal compliance flags: %w", err)
		}
	}

	entity := tenant.ReconstructTenant(
		model.ID,
		model.SID,
		model.Name,
		model.Slug,
		tier,
		status,
		activeTarget,
		pendingTarget,
		model.Plan,
		model.MaxUsers,
		model.MaxStorageBytes,
		complianceFlags,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *tenantMapper) ToModel(entity *tenant.Tenant) (*models.TenantModel, error) {
	if entity == nil {
		return nil, nil
	}

	var flagsJSON datatypes.JSON
	if flags := entity.ComplianceFlags(); len(flags) > 0 {
		data, err := json.Marshal(flags)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal compliance flags: %w", err)
		}
		flagsJSON = data
	}

	active := entity.ActiveTarget()
	model := &models.TenantModel{
		ID:              entity.ID(),
		SID:             entity.SID(),
		Name:            entity.Name(),
		Slug:            entity.Slug(),
		Tier:            entity.Tier().String(),
		Status:          entity.Status().String(),
		ActiveHost:      active.Host(),
		ActivePort:      active.Port(),
		ActiveDatabase:  active.Database(),
		ActiveSchema:    active.SchemaName(),
		Plan:            entity.Plan(),
		MaxUsers:        entity.MaxUsers(),
		MaxStorageBytes: entity.MaxStorageBytes(),
		ComplianceFlags: flagsJSON,
		Version:         entity.Version(),
		CreatedAt:       entity.CreatedAt(),
		UpdatedAt:       entity.UpdatedAt(),
	}

	if pending := entity.PendingTarget(); pending != nil {
		model.PendingTier = pending.Tier().String()
		model.PendingHost = pending.Host()
		model.PendingPort = pending.Port()
		model.PendingDatabase = pending.Database()
		model.PendingSchema = pending.SchemaName()
	}

	return model, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *tenantMapper) ToEntities(models []*models.TenantModel) ([]*tenant.Tenant, error) {
	entities := make([]*tenant.Tenant, 0, len(models))

	for i, model := range models {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map model at index %d (ID %d): %w", i, model.ID, err)
		}
		if entity != nil {
			entities = append(entities, entity)
		}
	}

	return entities, nil
}

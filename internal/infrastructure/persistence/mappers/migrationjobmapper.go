package mappers

import (
	"fmt"

	"github.com/google/uuid"

	"stratum/internal/domain/migration"
	"stratum/internal/domain/tenant"
	"stratum/internal/infrastructure/persistence/models"
)

// MigrationJobMapper handles the conversion between domain entities and persistence models
type MigrationJobMapper interface {
	// ToEntity converts a persistence model to a domain entity
	ToEntity(model *models.MigrationJobModel) (*migration.Job, error)

	// ToModel converts a domain entity to a persistence model
	ToModel(entity *migration.Job) (*models.MigrationJobModel, error)

	// ToEntities converts multiple persistence models to domain entities
	ToEntities(models []*models.MigrationJobModel) ([]*migration.Job, error)
}

type migrationJobMapper struct{}

// NewMigrationJobMapper creates a new migration job mapper
func NewMigrationJobMapper() MigrationJobMapper {
	return &migrationJobMapper{}
}

// ToEntity converts a persistence model to a domain entity
func (m *migrationJobMapper) ToEntity(model *models.MigrationJobModel) (*migration.Job, error) {
	if model == nil {
		return nil, nil
	}

	correlationID, err := uuid.Parse(model.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse correlation ID for job %s: %w", model.SID, err)
	}

	sourceTier, err := tenant.ParseIsolationTier(model.SourceTier)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source tier for job %s: %w", model.SID, err)
	}
	source, err := tenant.NewConnectionTarget(
		sourceTier, model.SourceHost, model.SourcePort, model.SourceDatabase, model.SourceSchema,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild source target for job %s: %w", model.SID, err)
	}

	destTier, err := tenant.ParseIsolationTier(model.DestTier)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination tier for job %s: %w", model.SID, err)
	}
	destination, err := tenant.NewConnectionTarget(
		destTier, model.DestHost, model.DestPort, model.DestDatabase, model.DestSchema,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild destination target for job %s: %w", model.SID, err)
	}

	state, err := migration.ParseJobState(model.State)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state for job %s: %w", model.SID, err)
	}

	entity := migration.ReconstructJob(
		model.ID,
		model.SID,
		correlationID,
		model.TenantSID,
		source,
		destination,
		state,
		model.FailureReason,
		model.RowsCopied,
		model.Attempt,
		model.StartedAt,
		model.CompletedAt,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *migrationJobMapper) ToModel(entity *migration.Job) (*models.MigrationJobModel, error) {
	if entity == nil {
		return nil, nil
	}

	source := entity.Source()
	dest := entity.Destination()

	model := &models.MigrationJobModel{
		ID:             entity.ID(),
		SID:            entity.SID(),
		CorrelationID:  entity.CorrelationID().String(),
		TenantSID:      entity.TenantSID(),
		SourceTier:     source.Tier().String(),
		SourceHost:     source.Host(),
		SourcePort:     source.Port(),
		SourceDatabase: source.Database(),
		SourceSchema:   source.SchemaName(),
		DestTier:       dest.Tier().String(),
		DestHost:       dest.Host(),
		DestPort:       dest.Port(),
		DestDatabase:   dest.Database(),
		DestSchema:     dest.SchemaName(),
		State:          entity.State().String(),
		FailureReason:  entity.FailureReason(),
		RowsCopied:     entity.RowsCopied(),
		Attempt:        entity.Attempt(),
		StartedAt:      entity.StartedAt(),
		CompletedAt:    entity.CompletedAt(),
		Version:        entity.Version(),
		CreatedAt:      entity.CreatedAt(),
		UpdatedAt:      entity.UpdatedAt(),
	}

	return model, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *migrationJobMapper) ToEntities(models []*models.MigrationJobModel) ([]*migration.Job, error) {
	entities := make([]*migration.Job, 0, len(models))

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

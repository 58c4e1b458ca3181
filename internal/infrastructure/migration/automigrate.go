package migration

import (
	"stratum/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.TenantModel{},
		&models.MigrationJobModel{},
	}
}

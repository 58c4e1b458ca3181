package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"stratum/internal/shared/constants"
)

// TenantModel represents the database persistence model for tenants.
// This is the anti-corruption layer between domain and database.
// Placement targets are flattened into columns so routing and pool
// bookkeeping can query them directly.
type TenantModel struct {
	ID     uint   `gorm:"primarykey"`
	SID    string `gorm:"column:sid;uniqueIndex;not null;size:32"`
	Name   string `gorm:"not null;size:200"`
	Slug   string `gorm:"uniqueIndex;not null;size:63"`
	Tier   string `gorm:"not null;size:20;index"`
	Status string `gorm:"not null;size:20;default:active;index"`

	ActiveHost     string `gorm:"not null;size:255;index:idx_tenants_active_target"`
	ActivePort     int    `gorm:"not null;index:idx_tenants_active_target"`
	ActiveDatabase string `gorm:"not null;size:64;index:idx_tenants_active_target"`
	ActiveSchema   string `gorm:"size:64"`

	PendingTier     string `gorm:"size:20"`
	PendingHost     string `gorm:"size:255"`
	PendingPort     int
	PendingDatabase string `gorm:"size:64"`
	PendingSchema   string `gorm:"size:64"`

	Plan            string `gorm:"size:50"`
	MaxUsers        int    `gorm:"default:0"`
	MaxStorageBytes int64  `gorm:"default:0"`
	ComplianceFlags datatypes.JSON

	Version   int `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (TenantModel) TableName() string {
	return constants.TableTenants
}

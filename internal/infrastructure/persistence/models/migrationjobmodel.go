package models

import (
	"time"

	"gorm.io/gorm"

	"stratum/internal/shared/constants"
)

// MigrationJobModel represents the database persistence model for tier
// migration jobs.
type MigrationJobModel struct {
	ID            uint   `gorm:"primarykey"`
	SID           string `gorm:"column:sid;uniqueIndex;not null;size:32"`
	CorrelationID string `gorm:"not null;size:36"`
	TenantSID     string `gorm:"column:tenant_sid;not null;size:32;index"`

	SourceTier     string `gorm:"not null;size:20"`
	SourceHost     string `gorm:"not null;size:255"`
	SourcePort     int    `gorm:"not null"`
	SourceDatabase string `gorm:"not null;size:64"`
	SourceSchema   string `gorm:"size:64"`

	DestTier     string `gorm:"not null;size:20"`
	DestHost     string `gorm:"not null;size:255"`
	DestPort     int    `gorm:"not null"`
	DestDatabase string `gorm:"not null;size:64"`
	DestSchema   string `gorm:"size:64"`

	State         string `gorm:"not null;size:20;default:pending;index"`
	FailureReason string `gorm:"size:500"`
	RowsCopied    int64  `gorm:"default:0"`
	Attempt       int    `gorm:"default:0"`

	StartedAt   *time.Time
	CompletedAt *time.Time `gorm:"index"`

	Version   int `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (MigrationJobModel) TableName() string {
	return constants.TableMigrationJobs
}

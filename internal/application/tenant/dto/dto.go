package dto

import (
	"time"
)

// TargetRequest is an explicit placement location supplied by the caller.
// Only dedicated-tier operations accept one; shared and schema placement
// comes from configuration.
type TargetRequest struct {
	Host     string `json:"host" binding:"required"`
	Port     int    `json:"port" binding:"required,min=1,max=65535"`
	Database string `json:"database" binding:"required"`
}

// RegisterTenantRequest represents the request to register a tenant.
type RegisterTenantRequest struct {
	Name            string         `json:"name" binding:"required,min=1,max=200"`
	Slug            string         `json:"slug" binding:"required,min=1,max=63"`
	Tier            string         `json:"tier" binding:"required,oneof=shared schema dedicated"`
	Plan            string         `json:"plan,omitempty"`
	MaxUsers        int            `json:"max_users,omitempty"`
	MaxStorageBytes int64          `json:"max_storage_bytes,omitempty"`
	ComplianceFlags []string       `json:"compliance_flags,omitempty"`
	Dedicated       *TargetRequest `json:"dedicated,omitempty"`
}

// UpdateTenantRequest represents the request to update a tenant's
// profile. Placement and status are changed through their own operations.
type UpdateTenantRequest struct {
	Name            *string   `json:"name,omitempty" binding:"omitempty,min=1,max=200"`
	Plan            *string   `json:"plan,omitempty"`
	MaxUsers        *int      `json:"max_users,omitempty"`
	MaxStorageBytes *int64    `json:"max_storage_bytes,omitempty"`
	ComplianceFlags *[]string `json:"compliance_flags,omitempty"`
}

// ListTenantsRequest represents the request to list tenants.
type ListTenantsRequest struct {
	Page     int    `json:"page" form:"page"`
	PageSize int    `json:"page_size" form:"page_size"`
	Status   string `json:"status,omitempty" form:"status" binding:"omitempty,oneof=active suspended migrating decommissioned"`
	Tier     string `json:"tier,omitempty" form:"tier" binding:"omitempty,oneof=shared schema dedicated"`
}

// StartMigrationRequest represents the request to move a tenant to a new
// isolation tier. Dedicated destinations carry an explicit target.
type StartMigrationRequest struct {
	TargetTier string         `json:"target_tier" binding:"required,oneof=shared schema dedicated"`
	Dedicated  *TargetRequest `json:"dedicated,omitempty"`
}

// TargetResponse describes one placement location.
type TargetResponse struct {
	Tier     string `json:"tier"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Schema   string `json:"schema,omitempty"`
}

// TenantResponse represents the response for a tenant.
type TenantResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Tier            string          `json:"tier"`
	Status          string          `json:"status"`
	ActiveTarget    TargetResponse  `json:"active_target"`
	PendingTarget   *TargetResponse `json:"pending_target,omitempty"`
	Plan            string          `json:"plan,omitempty"`
	MaxUsers        int             `json:"max_users,omitempty"`
	MaxStorageBytes int64           `json:"max_storage_bytes,omitempty"`
	ComplianceFlags []string        `json:"compliance_flags,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PaginationResponse represents pagination metadata.
type PaginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListTenantsResponse represents the response for listing tenants.
type ListTenantsResponse struct {
	Tenants    []*TenantResponse  `json:"tenants"`
	Pagination PaginationResponse `json:"pagination"`
}

// MigrationJobResponse represents the response for a migration job.
type MigrationJobResponse struct {
	ID            string         `json:"id"`
	CorrelationID string         `json:"correlation_id"`
	TenantID      string         `json:"tenant_id"`
	Source        TargetResponse `json:"source"`
	Destination   TargetResponse `json:"destination"`
	State         string         `json:"state"`
	FailureReason string         `json:"failure_reason,omitempty"`
	RowsCopied    int64          `json:"rows_copied"`
	Attempt       int            `json:"attempt"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ListMigrationJobsRequest represents the request to list migration jobs.
type ListMigrationJobsRequest struct {
	Page     int    `json:"page" form:"page"`
	PageSize int    `json:"page_size" form:"page_size"`
	TenantID string `json:"tenant_id,omitempty" form:"tenant_id"`
	State    string `json:"state,omitempty" form:"state" binding:"omitempty,oneof=pending copying verifying cutover complete failed"`
}

// ListMigrationJobsResponse represents the response for listing jobs.
type ListMigrationJobsResponse struct {
	Jobs       []*MigrationJobResponse `json:"jobs"`
	Pagination PaginationResponse      `json:"pagination"`
}

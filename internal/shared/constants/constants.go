// Package constants centralizes table names and shared defaults.
package constants

// Database table names
const (
	TableTenants       = "tenants"
	TableMigrationJobs = "migration_jobs"
)

// Routing defaults
const (
	// DefaultTenantHeader is the request header carrying an explicit
	// tenant hint.
	DefaultTenantHeader = "X-Tenant-ID"

	// DefaultRoutingCacheTTLSeconds bounds how stale a cached routing
	// decision may be.
	DefaultRoutingCacheTTLSeconds = 60
)

// Session claim key carrying the tenant binding in access tokens.
const SessionTenantClaim = "tenant_sid"

// Gin context keys
const (
	ContextKeySubjectSID    = "subject_sid"
	ContextKeySessionTenant = "session_tenant"
	ContextKeyRole          = "role"
	ContextKeyTenantHint    = "tenant_hint"
)

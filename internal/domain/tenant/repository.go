package tenant

import "context"

// ListFilter narrows tenant listings.
type ListFilter struct {
	Status   *TenantStatus
	Tier     *IsolationTier
	Page     int
	PageSize int
}

// Repository defines persistence for the tenant registry.
//
// Update implementations must enforce optimistic concurrency on the
// aggregate version: a stale version fails with a conflict instead of
// silently overwriting a concurrent placement change.
type Repository interface {
	// Create persists a new tenant and assigns its database ID.
	Create(ctx context.Context, t *Tenant) error

	// Update persists aggregate changes, guarded by the version the
	// aggregate was loaded with.
	Update(ctx context.Context, t *Tenant) error

	// GetByID retrieves a tenant by database ID.
	GetByID(ctx context.Context, dbID uint) (*Tenant, error)

	// GetBySID retrieves a tenant by its public short ID.
	GetBySID(ctx context.Context, sid string) (*Tenant, error)

	// GetBySlug retrieves a tenant by its routing slug.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// GetBySIDForUpdate retrieves a tenant by SID holding a row lock
	// for the remainder of the surrounding transaction. Serializes
	// lifecycle transitions racing on the same tenant.
	GetBySIDForUpdate(ctx context.Context, sid string) (*Tenant, error)

	// List returns tenants matching the filter with a total count.
	List(ctx context.Context, filter ListFilter) ([]*Tenant, int64, error)

	// CountByActiveTarget counts non-decommissioned tenants whose
	// active placement lives on the given server and database. Used to
	// decide when a connection pool can be retired.
	CountByActiveTarget(ctx context.Context, host string, port int, database string) (int64, error)
}

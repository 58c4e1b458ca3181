package tenant

import "errors"

var (
	// ErrEmptyName indicates a tenant was created without a display name.
	ErrEmptyName = errors.New("tenant name cannot be empty")

	// ErrEmptySlug indicates a tenant was created without a slug.
	ErrEmptySlug = errors.New("tenant slug cannot be empty")

	// ErrInvalidSlug indicates the slug is not a valid subdomain label.
	ErrInvalidSlug = errors.New("invalid tenant slug")

	// ErrInvalidTier indicates an unknown isolation tier.
	ErrInvalidTier = errors.New("invalid isolation tier")

	// ErrInvalidStatus indicates an unknown tenant status.
	ErrInvalidStatus = errors.New("invalid tenant status")

	// ErrInvalidTarget indicates a malformed connection target.
	ErrInvalidTarget = errors.New("invalid connection target")

	// ErrTierMismatch indicates a target whose tier disagrees with the
	// tier it is being assigned for.
	ErrTierMismatch = errors.New("connection target tier mismatch")

	// ErrAlreadyMigrating indicates a migration was requested while one
	// is already in flight.
	ErrAlreadyMigrating = errors.New("tenant is already migrating")

	// ErrNotMigrating indicates a cutover or abort was requested with no
	// migration in flight.
	ErrNotMigrating = errors.New("tenant is not migrating")

	// ErrNotActive indicates an operation that requires an active tenant.
	ErrNotActive = errors.New("tenant is not active")

	// ErrNotSuspended indicates a reactivation of a tenant that is not
	// suspended.
	ErrNotSuspended = errors.New("tenant is not suspended")

	// ErrDecommissioned indicates an operation on a retired tenant.
	ErrDecommissioned = errors.New("tenant is decommissioned")

	// ErrSameTarget indicates a migration to the placement the tenant
	// already occupies.
	ErrSameTarget = errors.New("migration target equals active target")
)

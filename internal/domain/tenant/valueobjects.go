package tenant

import (
	"fmt"
	"regexp"
)

// IsolationTier describes how strongly a tenant's data is separated from
// other tenants at the storage level.
type IsolationTier string

const (
	// TierShared places the tenant in a shared database where rows are
	// discriminated by tenant key.
	TierShared IsolationTier = "shared"

	// TierSchema gives the tenant a dedicated schema inside a shared
	// database server.
	TierSchema IsolationTier = "schema"

	// TierDedicated gives the tenant its own database.
	TierDedicated IsolationTier = "dedicated"
)

// IsValid checks whether the tier is one of the known isolation tiers.
func (t IsolationTier) IsValid() bool {
	switch t {
	case TierShared, TierSchema, TierDedicated:
		return true
	}
	return false
}

// IsolationRank orders tiers from weakest to strongest isolation.
// Useful when deciding whether a migration is an upgrade or a downgrade.
func (t IsolationTier) IsolationRank() int {
	switch t {
	case TierShared:
		return 0
	case TierSchema:
		return 1
	case TierDedicated:
		return 2
	}
	return -1
}

func (t IsolationTier) String() string {
	return string(t)
}

// ParseIsolationTier converts a string into an IsolationTier.
func ParseIsolationTier(s string) (IsolationTier, error) {
	tier := IsolationTier(s)
	if !tier.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidTier, s)
	}
	return tier, nil
}

// TenantStatus represents the lifecycle state of a tenant.
type TenantStatus string

const (
	// StatusActive means the tenant accepts traffic normally.
	StatusActive TenantStatus = "active"

	// StatusSuspended means the tenant is administratively blocked from
	// routing but its data remains in place.
	StatusSuspended TenantStatus = "suspended"

	// StatusMigrating means a tier migration is in flight. Routing keeps
	// targeting the active placement until cutover completes.
	StatusMigrating TenantStatus = "migrating"

	// StatusDecommissioned means the tenant is retired. Routing always
	// refuses decommissioned tenants.
	StatusDecommissioned TenantStatus = "decommissioned"
)

// IsValid checks whether the status is a known lifecycle state.
func (s TenantStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusMigrating, StatusDecommissioned:
		return true
	}
	return false
}

// Routable reports whether tenants in this state may be routed to a
// connection target at all.
func (s TenantStatus) Routable() bool {
	return s == StatusActive || s == StatusMigrating
}

func (s TenantStatus) String() string {
	return string(s)
}

// ParseTenantStatus converts a string into a TenantStatus.
func ParseTenantStatus(s string) (TenantStatus, error) {
	status := TenantStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, s)
	}
	return status, nil
}

// slugPattern accepts DNS-label style slugs so they can double as
// subdomains: lowercase alphanumerics and hyphens, no leading or
// trailing hyphen.
var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])?$`)

// ValidateSlug checks that a slug is usable as a routing subdomain.
func ValidateSlug(slug string) error {
	if slug == "" {
		return ErrEmptySlug
	}
	if len(slug) > 63 {
		return fmt.Errorf("%w: exceeds 63 characters", ErrInvalidSlug)
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: %s", ErrInvalidSlug, slug)
	}
	return nil
}

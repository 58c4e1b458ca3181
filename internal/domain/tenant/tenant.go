package tenant

import (
	"fmt"
	"strings"
	"time"

	"stratum/internal/shared/biztime"
	"stratum/internal/shared/id"
)

// Tenant is the registry aggregate. It owns the tenant's identity, its
// isolation placement, and the lifecycle transitions between placements.
// All mutation goes through methods so the invariants hold: exactly one
// active target at all times, and at most one pending target while a
// migration is in flight.
type Tenant struct {
	id              uint
	sid             string
	name            string
	slug            string
	tier            IsolationTier
	status          TenantStatus
	activeTarget    ConnectionTarget
	pendingTarget   *ConnectionTarget
	plan            string
	maxUsers        int
	maxStorageBytes int64
	complianceFlags []string
	version         int
	createdAt       time.Time
	updatedAt       time.Time
}

// NewTenant creates a tenant registered on the given placement. The
// tenant's tier always follows its active target's tier.
func NewTenant(name, slug string, target ConnectionTarget) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if target.IsZero() {
		return nil, fmt.Errorf("%w: active target is required", ErrInvalidTarget)
	}

	sid, err := id.NewTenantSID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate tenant SID: %w", err)
	}

	now := biztime.NowUTC()
	return &Tenant{
		sid:          sid,
		name:         name,
		slug:         slug,
		tier:         target.Tier(),
		status:       StatusActive,
		activeTarget: target,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructTenant rebuilds a tenant from persistence without running
// creation-time validation.
func ReconstructTenant(
	dbID uint,
	sid string,
	name string,
	slug string,
	tier IsolationTier,
	status TenantStatus,
	activeTarget ConnectionTarget,
	pendingTarget *ConnectionTarget,
	plan string,
	maxUsers int,
	maxStorageBytes int64,
	complianceFlags []string,
	version int,
	createdAt time.Time,
	updatedAt time.Time,
) *Tenant {
	return &Tenant{
		id:              dbID,
		sid:             sid,
		name:            name,
		slug:            slug,
		tier:            tier,
		status:          status,
		activeTarget:    activeTarget,
		pendingTarget:   pendingTarget,
		plan:            plan,
		maxUsers:        maxUsers,
		maxStorageBytes: maxStorageBytes,
		complianceFlags: complianceFlags,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (t *Tenant) ID() uint { return t.id }

func (t *Tenant) SID() string { return t.sid }

func (t *Tenant) Name() string { return t.name }

func (t *Tenant) Slug() string { return t.slug }

func (t *Tenant) Tier() IsolationTier { return t.tier }

func (t *Tenant) Status() TenantStatus { return t.status }

func (t *Tenant) Plan() string { return t.plan }

func (t *Tenant) MaxUsers() int { return t.maxUsers }

func (t *Tenant) MaxStorageBytes() int64 { return t.maxStorageBytes }

func (t *Tenant) Version() int { return t.version }

func (t *Tenant) CreatedAt() time.Time { return t.createdAt }

func (t *Tenant) UpdatedAt() time.Time { return t.updatedAt }

// ActiveTarget returns the placement the tenant currently routes to.
func (t *Tenant) ActiveTarget() ConnectionTarget { return t.activeTarget }

// PendingTarget returns the in-flight migration destination, nil when no
// migration is running.
func (t *Tenant) PendingTarget() *ConnectionTarget {
	if t.pendingTarget == nil {
		return nil
	}
	cp := *t.pendingTarget
	return &cp
}

// ComplianceFlags returns a copy of the tenant's compliance markers.
func (t *Tenant) ComplianceFlags() []string {
	if t.complianceFlags == nil {
		return nil
	}
	out := make([]string, len(t.complianceFlags))
	copy(out, t.complianceFlags)
	return out
}

// IsMigrating reports whether a tier migration is in flight.
func (t *Tenant) IsMigrating() bool {
	return t.status == StatusMigrating && t.pendingTarget != nil
}

// UpdateName changes the display name.
func (t *Tenant) UpdateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	t.name = name
	t.touch()
	return nil
}

// UpdatePlan sets the billing plan and its quota limits.
func (t *Tenant) UpdatePlan(plan string, maxUsers int, maxStorageBytes int64) {
	t.plan = strings.TrimSpace(plan)
	t.maxUsers = maxUsers
	t.maxStorageBytes = maxStorageBytes
	t.touch()
}

// SetComplianceFlags replaces the compliance markers.
func (t *Tenant) SetComplianceFlags(flags []string) {
	if flags == nil {
		t.complianceFlags = nil
	} else {
		t.complianceFlags = make([]string, len(flags))
		copy(t.complianceFlags, flags)
	}
	t.touch()
}

// Suspend blocks the tenant from routing. Suspending a migrating tenant
// is refused; the migration must finish or abort first.
func (t *Tenant) Suspend() error {
	switch t.status {
	case StatusSuspended:
		return nil
	case StatusDecommissioned:
		return ErrDecommissioned
	case StatusMigrating:
		return ErrAlreadyMigrating
	}
	t.status = StatusSuspended
	t.touch()
	return nil
}

// Reactivate restores routing for a suspended tenant.
func (t *Tenant) Reactivate() error {
	if t.status == StatusDecommissioned {
		return ErrDecommissioned
	}
	if t.status != StatusSuspended {
		return ErrNotSuspended
	}
	t.status = StatusActive
	t.touch()
	return nil
}

// Decommission retires the tenant permanently. In-flight migrations must
// be aborted before decommissioning.
func (t *Tenant) Decommission() error {
	if t.status == StatusDecommissioned {
		return nil
	}
	if t.status == StatusMigrating {
		return ErrAlreadyMigrating
	}
	t.status = StatusDecommissioned
	t.pendingTarget = nil
	t.touch()
	return nil
}

// BeginMigration records the destination placement and marks the tenant
// as migrating. The active target stays untouched so routing keeps
// flowing to the source until cutover.
func (t *Tenant) BeginMigration(target ConnectionTarget) error {
	if t.status == StatusDecommissioned {
		return ErrDecommissioned
	}
	if t.status == StatusMigrating || t.pendingTarget != nil {
		return ErrAlreadyMigrating
	}
	if t.status != StatusActive {
		return ErrNotActive
	}
	if target.IsZero() {
		return fmt.Errorf("%w: pending target is required", ErrInvalidTarget)
	}
	if target.Equal(t.activeTarget) {
		return ErrSameTarget
	}

	cp := target
	t.pendingTarget = &cp
	t.status = StatusMigrating
	t.touch()
	return nil
}

// CompleteCutover atomically swaps the pending target in as the active
// placement and clears the migration marker. The tenant's tier follows
// the new target.
func (t *Tenant) CompleteCutover() error {
	if !t.IsMigrating() {
		return ErrNotMigrating
	}
	t.activeTarget = *t.pendingTarget
	t.tier = t.activeTarget.Tier()
	t.pendingTarget = nil
	t.status = StatusActive
	t.touch()
	return nil
}

// AbortMigration discards the pending target and restores the tenant to
// active on its original placement.
func (t *Tenant) AbortMigration() error {
	if t.status != StatusMigrating && t.pendingTarget == nil {
		return ErrNotMigrating
	}
	t.pendingTarget = nil
	t.status = StatusActive
	t.touch()
	return nil
}

// SetID assigns the database ID after persistence.
func (t *Tenant) SetID(dbID uint) {
	t.id = dbID
}

// BumpVersion advances the optimistic-lock version to match what the
// repository just wrote, so the same aggregate can be updated again
// without a reload.
func (t *Tenant) BumpVersion() {
	t.version++
}

func (t *Tenant) touch() {
	t.updatedAt = biztime.NowUTC()
}

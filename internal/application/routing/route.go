package routing

import (
	"time"

	"stratum/internal/domain/tenant"
)

// Route is a resolved routing decision: which placement a tenant's
// traffic goes to right now. The flat shape keeps it cache-serializable;
// Target rebuilds the domain value when a pool handle is needed.
type Route struct {
	TenantSID  string    `json:"tenant_sid"`
	Slug       string    `json:"slug"`
	Status     string    `json:"status"`
	Tier       string    `json:"tier"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	Database   string    `json:"database"`
	Schema     string    `json:"schema,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// NewRoute builds a route from a tenant's current active placement.
// Migrating tenants deliberately resolve to the source placement; the
// pending target never leaks into routing until cutover completes.
func NewRoute(t *tenant.Tenant) *Route {
	target := t.ActiveTarget()
	return &Route{
		TenantSID:  t.SID(),
		Slug:       t.Slug(),
		Status:     t.Status().String(),
		Tier:       target.Tier().String(),
		Host:       target.Host(),
		Port:       target.Port(),
		Database:   target.Database(),
		Schema:     target.SchemaName(),
		ResolvedAt: time.Now().UTC(),
	}
}

// Target rebuilds the connection target this route points at.
func (r *Route) Target() (tenant.ConnectionTarget, error) {
	tier, err := tenant.ParseIsolationTier(r.Tier)
	if err != nil {
		return tenant.ConnectionTarget{}, err
	}
	return tenant.NewConnectionTarget(tier, r.Host, r.Port, r.Database, r.Schema)
}

// PoolKey identifies the connection pool serving this route.
func (r *Route) PoolKey() string {
	target, err := r.Target()
	if err != nil {
		return ""
	}
	return target.PoolKey()
}

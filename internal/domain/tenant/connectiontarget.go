package tenant

import (
	"fmt"
)

// ConnectionTarget is the immutable placement descriptor a resolved tenant
// routes to. Two tenants on the same shared database produce the same
// PoolKey even though their isolation scoping differs.
type ConnectionTarget struct {
	tier       IsolationTier
	host       string
	port       int
	database   string
	schemaName string
}

// NewConnectionTarget validates and builds a placement descriptor.
// Schema-tier targets must carry a schema name; the other tiers must not.
func NewConnectionTarget(tier IsolationTier, host string, port int, database, schemaName string) (ConnectionTarget, error) {
	if !tier.IsValid() {
		return ConnectionTarget{}, fmt.Errorf("%w: %s", ErrInvalidTier, tier)
	}
	if host == "" {
		return ConnectionTarget{}, fmt.Errorf("%w: host is required", ErrInvalidTarget)
	}
	if port <= 0 || port > 65535 {
		return ConnectionTarget{}, fmt.Errorf("%w: port %d out of range", ErrInvalidTarget, port)
	}
	if database == "" {
		return ConnectionTarget{}, fmt.Errorf("%w: database is required", ErrInvalidTarget)
	}

	switch tier {
	case TierSchema:
		if schemaName == "" {
			return ConnectionTarget{}, fmt.Errorf("%w: schema tier requires a schema name", ErrInvalidTarget)
		}
	default:
		if schemaName != "" {
			return ConnectionTarget{}, fmt.Errorf("%w: %s tier must not carry a schema name", ErrInvalidTarget, tier)
		}
	}

	return ConnectionTarget{
		tier:       tier,
		host:       host,
		port:       port,
		database:   database,
		schemaName: schemaName,
	}, nil
}

// Tier returns the isolation tier this target serves.
func (t ConnectionTarget) Tier() IsolationTier { return t.tier }

// Host returns the database server host.
func (t ConnectionTarget) Host() string { return t.host }

// Port returns the database server port.
func (t ConnectionTarget) Port() int { return t.port }

// Database returns the database name on the target server.
func (t ConnectionTarget) Database() string { return t.database }

// SchemaName returns the per-tenant schema for schema-tier targets,
// empty otherwise.
func (t ConnectionTarget) SchemaName() string { return t.schemaName }

// IsZero reports whether the target is the zero value.
func (t ConnectionTarget) IsZero() bool {
	return t == ConnectionTarget{}
}

// PoolKey identifies the physical connection pool this target maps to.
// Pools are keyed by server and database, never by tenant: schema-tier
// tenants on the same server share one pool.
func (t ConnectionTarget) PoolKey() string {
	return fmt.Sprintf("%s:%d/%s", t.host, t.port, t.database)
}

// Addr returns the host:port pair of the target server.
func (t ConnectionTarget) Addr() string {
	return fmt.Sprintf("%s:%d", t.host, t.port)
}

// Equal reports whether two targets describe the same placement.
func (t ConnectionTarget) Equal(other ConnectionTarget) bool {
	return t == other
}

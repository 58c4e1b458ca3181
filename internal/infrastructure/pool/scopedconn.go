package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"stratum/internal/domain/tenant"
)

// sessionTenantVar is the MySQL session variable carrying the tenant
// binding for shared-tier connections. Shared-tier schemas filter rows
// on it through views and triggers.
const sessionTenantVar = "@stratum_tenant"

// ScopedConn is a checked-out connection bound to a single tenant's
// scope. Callers must Release it; for shared-tier connections Release
// structurally clears the session binding before the connection returns
// to the pool, so a later checkout can never observe the previous
// tenant's scope.
type ScopedConn struct {
	conn      *sql.Conn
	tier      tenant.IsolationTier
	tenantSID string
	poolKey   string
	released  bool
}

// TenantSID returns the tenant this connection is scoped to.
func (c *ScopedConn) TenantSID() string { return c.tenantSID }

// Tier returns the isolation tier the scoping was applied for.
func (c *ScopedConn) Tier() tenant.IsolationTier { return c.tier }

// PoolKey returns the pool this connection belongs to.
func (c *ScopedConn) PoolKey() string { return c.poolKey }

// bind applies per-tier scoping on checkout.
func (c *ScopedConn) bind(ctx context.Context, target tenant.ConnectionTarget) error {
	switch c.tier {
	case tenant.TierShared:
		if _, err := c.conn.ExecContext(ctx, "SET "+sessionTenantVar+" = ?", c.tenantSID); err != nil {
			return fmt.Errorf("failed to bind session tenant: %w", err)
		}
	case tenant.TierSchema:
		// Schema names come from the registry, not from request input,
		// so identifier quoting is sufficient here.
		if _, err := c.conn.ExecContext(ctx, fmt.Sprintf("USE `%s`", target.SchemaName())); err != nil {
			return fmt.Errorf("failed to select tenant schema: %w", err)
		}
	case tenant.TierDedicated:
		// The pool already points at the tenant's own database.
	}
	return nil
}

// ExecContext executes a statement on the scoped connection.
func (c *ScopedConn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

// QueryContext runs a query on the scoped connection.
func (c *ScopedConn) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query on the scoped connection.
func (c *ScopedConn) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction on the scoped connection.
func (c *ScopedConn) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.conn.BeginTx(ctx, opts)
}

// Release returns the connection to its pool. Shared-tier connections
// have their session binding cleared first; if clearing fails the raw
// connection is discarded rather than returned with a stale binding.
func (c *ScopedConn) Release(ctx context.Context) error {
	if c.released {
		return nil
	}
	c.released = true

	if c.tier == tenant.TierShared {
		if _, err := c.conn.ExecContext(ctx, "SET "+sessionTenantVar+" = NULL"); err != nil {
			// Marking the driver connection bad drops it instead of
			// pooling it with the binding still set.
			_ = c.conn.Raw(func(driverConn interface{}) error {
				return driver.ErrBadConn
			})
			closeErr := c.conn.Close()
			return fmt.Errorf("failed to clear session tenant, connection discarded: %w (close: %v)", err, closeErr)
		}
	}

	return c.conn.Close()
}

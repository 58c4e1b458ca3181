package routing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"stratum/internal/domain/tenant"
	"stratum/internal/shared/errors"
	"stratum/internal/shared/id"
	"stratum/internal/shared/logger"
)

// RouteCache is the resolver's view of the routing cache.
type RouteCache interface {
	Get(ctx context.Context, identifier string) (*Route, error)
	Set(ctx context.Context, route *Route) error
	FrozenFor(ctx context.Context, tenantSID string) (time.Duration, error)
}

// Resolver turns request hints into routing decisions. Cache hits skip
// the catalog entirely; misses collapse through singleflight so a cold
// tenant causes one catalog lookup, not one per concurrent request.
type Resolver struct {
	tenants tenant.Repository
	cache   RouteCache
	group   singleflight.Group
	logger  logger.Interface
}

// NewResolver creates a routing resolver.
func NewResolver(tenants tenant.Repository, cache RouteCache, log logger.Interface) *Resolver {
	return &Resolver{
		tenants: tenants,
		cache:   cache,
		logger:  log,
	}
}

// Resolve maps a hint to the placement the tenant's traffic goes to.
//
// Migrating tenants resolve to their source placement: the active
// target is only swapped at cutover, so routing never sees the
// destination early. A tenant frozen for cutover resolves to a
// retryable unavailable error carrying the remaining freeze window.
func (r *Resolver) Resolve(ctx context.Context, hint Hint) (*Route, error) {
	identifier := hint.Identifier()
	if identifier == "" {
		return nil, errors.NewTenantNotIdentifiedError()
	}

	route, err := r.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}

	frozen, err := r.cache.FrozenFor(ctx, route.TenantSID)
	if err != nil {
		// Fail closed on freeze-state errors: routing through an
		// unknown freeze state could land writes mid-cutover.
		r.logger.Errorw("failed to check freeze state", "tenant_sid", route.TenantSID, "error", err)
		return nil, fmt.Errorf("failed to check freeze state: %w", err)
	}
	if frozen > 0 {
		return nil, errors.NewTenantUnavailableError("tenant is migrating", retrySeconds(frozen))
	}

	return route, nil
}

// Invalidate drops any cached decision for the tenant. Called from the
// placement-change event subscription.
func (r *Resolver) Invalidate(ctx context.Context, sid, slug string) {
	type invalidator interface {
		Invalidate(ctx context.Context, sid, slug string) error
	}
	if inv, ok := r.cache.(invalidator); ok {
		if err := inv.Invalidate(ctx, sid, slug); err != nil {
			r.logger.Warnw("failed to invalidate cached route", "sid", sid, "slug", slug, "error", err)
		}
	}
}

func (r *Resolver) lookup(ctx context.Context, identifier string) (*Route, error) {
	cached, err := r.cache.Get(ctx, identifier)
	if err != nil {
		// A broken cache degrades to catalog lookups.
		r.logger.Warnw("route cache read failed", "identifier", identifier, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	result, err, _ := r.group.Do(identifier, func() (interface{}, error) {
		return r.resolveFromCatalog(ctx, identifier)
	})
	if err != nil {
		return nil, err
	}

	return result.(*Route), nil
}

func (r *Resolver) resolveFromCatalog(ctx context.Context, identifier string) (*Route, error) {
	var (
		t   *tenant.Tenant
		err error
	)

	if id.IsTenantSID(identifier) {
		t, err = r.tenants.GetBySID(ctx, identifier)
	} else {
		t, err = r.tenants.GetBySlug(ctx, identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up tenant %s: %w", identifier, err)
	}
	if t == nil {
		return nil, errors.NewTenantNotFoundError(identifier)
	}

	switch t.Status() {
	case tenant.StatusDecommissioned:
		return nil, errors.NewTenantNotFoundError(identifier)
	case tenant.StatusSuspended:
		return nil, errors.NewTenantUnavailableError("tenant is suspended", 0)
	}

	route := NewRoute(t)
	if err := r.cache.Set(ctx, route); err != nil {
		// Serving is more important than caching.
		r.logger.Warnw("failed to cache route", "tenant_sid", t.SID(), "error", err)
	}

	r.logger.Debugw("route resolved from catalog",
		"tenant_sid", t.SID(),
		"slug", t.Slug(),
		"tier", t.Tier(),
		"pool_key", route.PoolKey(),
	)

	return route, nil
}

func retrySeconds(d time.Duration) int {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

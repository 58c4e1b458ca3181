package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stratum/internal/application/routing"
)

const (
	routeKeyPrefix  = "routing:route:"
	freezeKeyPrefix = "routing:freeze:"
)

// TenantRouteCache caches resolved routing decisions in Redis so the
// hot path can skip the catalog database. Entries are written under both
// the tenant's slug and SID, and the freeze keyspace carries the
// write-freeze marker set during migration cutover.
type TenantRouteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTenantRouteCache creates a route cache with the given entry TTL.
func NewTenantRouteCache(client *redis.Client, ttl time.Duration) *TenantRouteCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &TenantRouteCache{client: client, ttl: ttl}
}

// Get returns the cached route for a tenant identifier (slug or SID),
// or nil on a miss.
func (c *TenantRouteCache) Get(ctx context.Context, identifier string) (*routing.Route, error) {
	val, err := c.client.Get(ctx, routeKeyPrefix+identifier).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached route: %w", err)
	}

	var route routing.Route
	if err := json.Unmarshal([]byte(val), &route); err != nil {
		// A corrupt entry behaves like a miss; the resolver refreshes it.
		return nil, nil
	}

	return &route, nil
}

// Set caches a route under both the tenant's slug and SID.
func (c *TenantRouteCache) Set(ctx context.Context, route *routing.Route) error {
	data, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("failed to marshal route: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, routeKeyPrefix+route.Slug, data, c.ttl)
	pipe.Set(ctx, routeKeyPrefix+route.TenantSID, data, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache route: %w", err)
	}

	return nil
}

// Invalidate drops the cached route for a tenant under both identifiers.
func (c *TenantRouteCache) Invalidate(ctx context.Context, sid, slug string) error {
	keys := make([]string, 0, 2)
	if sid != "" {
		keys = append(keys, routeKeyPrefix+sid)
	}
	if slug != "" {
		keys = append(keys, routeKeyPrefix+slug)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached route: %w", err)
	}

	return nil
}

// Freeze marks the tenant's writes as frozen for at most ttl. The TTL
// bounds the freeze window even if the coordinator dies mid-cutover.
func (c *TenantRouteCache) Freeze(ctx context.Context, tenantSID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, freezeKeyPrefix+tenantSID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set freeze marker: %w", err)
	}
	return nil
}

// FrozenFor returns how long the tenant's freeze marker has left, zero
// when the tenant is not frozen.
func (c *TenantRouteCache) FrozenFor(ctx context.Context, tenantSID string) (time.Duration, error) {
	remaining, err := c.client.TTL(ctx, freezeKeyPrefix+tenantSID).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to check freeze marker: %w", err)
	}
	// TTL returns negative durations for missing keys and keys without
	// expiry; neither counts as frozen.
	if remaining <= 0 {
		return 0, nil
	}
	return remaining, nil
}

// Unfreeze clears the tenant's freeze marker.
func (c *TenantRouteCache) Unfreeze(ctx context.Context, tenantSID string) error {
	if err := c.client.Del(ctx, freezeKeyPrefix+tenantSID).Err(); err != nil {
		return fmt.Errorf("failed to clear freeze marker: %w", err)
	}
	return nil
}

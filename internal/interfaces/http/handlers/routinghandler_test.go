package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/application/routing"
	"stratum/internal/interfaces/http/handlers/testutil"
	"stratum/internal/shared/constants"
	"stratum/internal/shared/errors"
)

type mockResolver struct {
	route *routing.Route
	err   error
	hints []routing.Hint
}

func (m *mockResolver) Resolve(ctx context.Context, hint routing.Hint) (*routing.Route, error) {
	m.hints = append(m.hints, hint)
	return m.route, m.err
}

func testRoute() *routing.Route {
	return &routing.Route{
		TenantSID:  "tn_acme0001",
		Slug:       "acme",
		Status:     "active",
		Tier:       "shared",
		Host:       "db-shared-01",
		Port:       3306,
		Database:   "tenants_shared",
		ResolvedAt: time.Now().UTC(),
	}
}

func TestRoutingHandler_Resolve_Success(t *testing.T) {
	resolver := &mockResolver{route: testRoute()}
	handler := NewRoutingHandler(resolver, testutil.NewMockLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/routing/resolve", nil)
	c.Set(constants.ContextKeyTenantHint, routing.Hint{HeaderTenant: "acme"})

	handler.Resolve(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.True(t, resp.Success)

	var route routing.Route
	require.NoError(t, json.Unmarshal(resp.Data, &route))
	assert.Equal(t, "tn_acme0001", route.TenantSID)
	assert.Equal(t, "db-shared-01", route.Host)

	// The hint from the middleware must reach the resolver untouched.
	require.Len(t, resolver.hints, 1)
	assert.Equal(t, "acme", resolver.hints[0].HeaderTenant)
}

func TestRoutingHandler_Resolve_NoHint(t *testing.T) {
	resolver := &mockResolver{err: errors.NewTenantNotIdentifiedError()}
	handler := NewRoutingHandler(resolver, testutil.NewMockLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/routing/resolve", nil)

	handler.Resolve(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutingHandler_Resolve_UnknownTenant(t *testing.T) {
	resolver := &mockResolver{err: errors.NewTenantNotFoundError("ghost")}
	handler := NewRoutingHandler(resolver, testutil.NewMockLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/routing/resolve", nil)
	c.Set(constants.ContextKeyTenantHint, routing.Hint{HeaderTenant: "ghost"})

	handler.Resolve(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutingHandler_Resolve_FrozenTenant(t *testing.T) {
	resolver := &mockResolver{err: errors.NewTenantUnavailableError("tenant is migrating", 12)}
	handler := NewRoutingHandler(resolver, testutil.NewMockLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/routing/resolve", nil)
	c.Set(constants.ContextKeyTenantHint, routing.Hint{HeaderTenant: "acme"})

	handler.Resolve(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "12", w.Header().Get("Retry-After"))

	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, 12, resp.Error.RetryAfter)
}

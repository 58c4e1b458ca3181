package middleware

import (
	"github.com/gin-gonic/gin"

	"stratum/internal/application/routing"
	"stratum/internal/shared/constants"
)

// TenantHint extracts the tenant identity candidates from the request
// and stores them as a ranked hint: session claim first, then the
// explicit header, then the host subdomain. Resolution itself happens in
// the handler so identification failures surface as typed errors, not
// middleware aborts.
func TenantHint(tenantHeader, baseDomain string) gin.HandlerFunc {
	if tenantHeader == "" {
		tenantHeader = constants.DefaultTenantHeader
	}
	return func(c *gin.Context) {
		hint := routing.Hint{
			HeaderTenant:  c.GetHeader(tenantHeader),
			HostSubdomain: routing.SubdomainFromHost(c.Request.Host, baseDomain),
		}
		if session, ok := c.Get(constants.ContextKeySessionTenant); ok {
			if sid, ok := session.(string); ok {
				hint.SessionTenant = sid
			}
		}

		c.Set(constants.ContextKeyTenantHint, hint)
		c.Next()
	}
}

// HintFromContext returns the hint stored by TenantHint, zero when the
// middleware did not run.
func HintFromContext(c *gin.Context) routing.Hint {
	if v, ok := c.Get(constants.ContextKeyTenantHint); ok {
		if hint, ok := v.(routing.Hint); ok {
			return hint
		}
	}
	return routing.Hint{}
}

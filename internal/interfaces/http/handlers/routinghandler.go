package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stratum/internal/interfaces/http/middleware"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

// RoutingHandler serves the data-path resolve endpoint: given the
// request's tenant hints it returns the placement the tenant's traffic
// should go to.
type RoutingHandler struct {
	resolver routeResolver
	logger   logger.Interface
}

// NewRoutingHandler creates a routing handler.
func NewRoutingHandler(resolver routeResolver, logger logger.Interface) *RoutingHandler {
	return &RoutingHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// Resolve handles GET /api/v1/routing/resolve. Unidentifiable tenants
// get 401, unknown or decommissioned tenants 404, suspended or frozen
// tenants 503 with a Retry-After hint.
func (h *RoutingHandler) Resolve(c *gin.Context) {
	hint := middleware.HintFromContext(c)

	route, err := h.resolver.Resolve(c.Request.Context(), hint)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", route)
}

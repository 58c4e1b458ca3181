package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stratum/internal/application/tenant/dto"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

// TenantHandler serves the administrative tenant registry API.
type TenantHandler struct {
	registerUC       registerTenantUseCase
	getUC            getTenantUseCase
	listUC           listTenantsUseCase
	updateUC         updateTenantUseCase
	suspendUC        suspendTenantUseCase
	reactivateUC     reactivateTenantUseCase
	decommissionUC   decommissionTenantUseCase
	startMigrationUC startMigrationUseCase
	logger           logger.Interface
}

// NewTenantHandler creates a tenant handler.
func NewTenantHandler(
	registerUC registerTenantUseCase,
	getUC getTenantUseCase,
	listUC listTenantsUseCase,
	updateUC updateTenantUseCase,
	suspendUC suspendTenantUseCase,
	reactivateUC reactivateTenantUseCase,
	decommissionUC decommissionTenantUseCase,
	startMigrationUC startMigrationUseCase,
	logger logger.Interface,
) *TenantHandler {
	return &TenantHandler{
		registerUC:       registerUC,
		getUC:            getUC,
		listUC:           listUC,
		updateUC:         updateUC,
		suspendUC:        suspendUC,
		reactivateUC:     reactivateUC,
		decommissionUC:   decommissionUC,
		startMigrationUC: startMigrationUC,
		logger:           logger,
	}
}

// Register handles POST /api/v1/tenants.
func (h *TenantHandler) Register(c *gin.Context) {
	var request dto.RegisterTenantRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	response, err := h.registerUC.Execute(c.Request.Context(), request)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, response, "tenant registered")
}

// Get handles GET /api/v1/tenants/:id.
func (h *TenantHandler) Get(c *gin.Context) {
	response, err := h.getUC.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", response)
}

// List handles GET /api/v1/tenants.
func (h *TenantHandler) List(c *gin.Context) {
	var request dto.ListTenantsRequest
	if err := c.ShouldBindQuery(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	response, err := h.listUC.Execute(c.Request.Context(), request)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, response.Tenants, response.Pagination.Total,
		response.Pagination.Page, response.Pagination.PageSize)
}

// Update handles PATCH /api/v1/tenants/:id.
func (h *TenantHandler) Update(c *gin.Context) {
	var request dto.UpdateTenantRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	response, err := h.updateUC.Execute(c.Request.Context(), c.Param("id"), request)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "tenant updated", response)
}

// Suspend handles POST /api/v1/tenants/:id/suspend.
func (h *TenantHandler) Suspend(c *gin.Context) {
	response, err := h.suspendUC.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "tenant suspended", response)
}

// Reactivate handles POST /api/v1/tenants/:id/reactivate.
func (h *TenantHandler) Reactivate(c *gin.Context) {
	response, err := h.reactivateUC.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "tenant reactivated", response)
}

// Decommission handles DELETE /api/v1/tenants/:id.
func (h *TenantHandler) Decommission(c *gin.Context) {
	response, err := h.decommissionUC.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "tenant decommissioned", response)
}

// StartMigration handles POST /api/v1/tenants/:id/migrations.
func (h *TenantHandler) StartMigration(c *gin.Context) {
	var request dto.StartMigrationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	response, err := h.startMigrationUC.Execute(c.Request.Context(), c.Param("id"), request)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, response, "migration enqueued")
}

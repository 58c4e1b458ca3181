package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stratum/internal/application/tenant/dto"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

// MigrationHandler serves the migration job inspection API.
type MigrationHandler struct {
	getJobUC   getMigrationJobUseCase
	listJobsUC listMigrationJobsUseCase
	logger     logger.Interface
}

// NewMigrationHandler creates a migration handler.
func NewMigrationHandler(
	getJobUC getMigrationJobUseCase,
	listJobsUC listMigrationJobsUseCase,
	logger logger.Interface,
) *MigrationHandler {
	return &MigrationHandler{
		getJobUC:   getJobUC,
		listJobsUC: listJobsUC,
		logger:     logger,
	}
}

// Get handles GET /api/v1/migrations/:id.
func (h *MigrationHandler) Get(c *gin.Context) {
	response, err := h.getJobUC.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", response)
}

// List handles GET /api/v1/migrations.
func (h *MigrationHandler) List(c *gin.Context) {
	var request dto.ListMigrationJobsRequest
	if err := c.ShouldBindQuery(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	response, err := h.listJobsUC.Execute(c.Request.Context(), request)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, response.Jobs, response.Pagination.Total,
		response.Pagination.Page, response.Pagination.PageSize)
}

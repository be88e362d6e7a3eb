// internal/handler/sweep_handler.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"instrument-service/internal/model"
	"instrument-service/internal/repository"
	"instrument-service/internal/service"
	"instrument-service/internal/utils"
)

// SweepHandler exposes measurement sweeps over HTTP
type SweepHandler struct {
	sweepService *service.SweepService
	logger       *utils.ServiceLogger
}

// NewSweepHandler creates a new sweep handler
func NewSweepHandler(sweepService *service.SweepService, logger *zap.Logger) *SweepHandler {
	return &SweepHandler{
		sweepService: sweepService,
		logger:       utils.NewServiceLogger(logger, "sweep-handler"),
	}
}

// StartSweep starts an EVM-versus-power sweep
// @Summary Start a sweep
// @Description Validate the request against the connected bench and start the sweep in the background
// @Tags Sweeps
// @Accept json
// @Produce json
// @Param request body model.SweepRequest true "Sweep parameters"
// @Success 202 {object} utils.APIResponse "Sweep accepted"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /api/v1/sweeps [post]
func (h *SweepHandler) StartSweep(c *gin.Context) {
	var req model.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid sweep request", err)
		return
	}

	run, err := h.sweepService.StartSweep(c.Request.Context(), req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to start sweep", err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Sweep started", run)
}

// GetSweep returns a sweep run and its measured points
// @Summary Get a sweep
// @Description Get one sweep run with all stored measurement points
// @Tags Sweeps
// @Accept json
// @Produce json
// @Param sweep_id path string true "Sweep ID"
// @Success 200 {object} utils.APIResponse "Sweep with measurements"
// @Failure 404 {object} utils.APIResponse "Sweep not found"
// @Router /api/v1/sweeps/{sweep_id} [get]
func (h *SweepHandler) GetSweep(c *gin.Context) {
	id, err := uuid.Parse(c.Param("sweep_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid sweep ID", err)
		return
	}

	run, points, err := h.sweepService.GetSweep(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Sweep not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sweep retrieved", gin.H{
		"sweep":        run,
		"measurements": points,
	})
}

// ListSweeps lists sweep runs
// @Summary List sweeps
// @Description List sweep runs with filtering and pagination
// @Tags Sweeps
// @Accept json
// @Produce json
// @Param status query string false "Filter by status"
// @Param generator query string false "Filter by generator name"
// @Param analyzer query string false "Filter by analyzer name"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} utils.APIResponse "Sweep list"
// @Router /api/v1/sweeps [get]
func (h *SweepHandler) ListSweeps(c *gin.Context) {
	filter := &repository.SweepFilter{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if status := c.Query("status"); status != "" {
		s := model.SweepStatus(status)
		filter.Status = &s
	}
	if generator := c.Query("generator"); generator != "" {
		filter.Generator = &generator
	}
	if analyzer := c.Query("analyzer"); analyzer != "" {
		filter.Analyzer = &analyzer
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "50"))

	runs, total, err := h.sweepService.ListSweeps(c.Request.Context(), filter)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list sweeps", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sweeps retrieved", gin.H{
		"sweeps": runs,
		"total":  total,
		"page":   filter.Page,
	})
}

// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"instrument-service/internal/service"
	"instrument-service/internal/utils"
)

// DiscoveryHandler handles instrument discovery requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// ScanInstruments scans for reachable instruments
// @Summary Scan for instruments
// @Description Enumerate serial ports and USB devices and probe configured LAN hosts for instruments
// @Tags Discovery
// @Accept json
// @Produce json
// @Param type query string false "Scan type: all, serial, usb, tcp" default(all)
// @Success 200 {object} utils.APIResponse "Discovered candidates"
// @Failure 400 {object} utils.APIResponse "Unsupported scan type"
// @Router /api/v1/bench/scan [get]
func (h *DiscoveryHandler) ScanInstruments(c *gin.Context) {
	scanType := c.DefaultQuery("type", "all")

	candidates, err := h.discoveryService.Scan(c.Request.Context(), scanType)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Scan failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Scan completed", gin.H{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// ListScanners lists available scanner types
// @Summary List scanners
// @Description Get the discovery scanner types usable on this host
// @Tags Discovery
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Scanner list"
// @Router /api/v1/bench/scanners [get]
func (h *DiscoveryHandler) ListScanners(c *gin.Context) {
	scanners := h.discoveryService.Scanners()
	utils.SuccessResponse(c, http.StatusOK, "Available scanners", gin.H{
		"scanners": scanners,
		"count":    len(scanners),
	})
}

// internal/handler/bench_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"instrument-service/internal/service"
	"instrument-service/internal/utils"
)

// BenchHandler exposes bench instrument management over HTTP
type BenchHandler struct {
	benchService *service.BenchService
	logger       *utils.ServiceLogger
}

// NewBenchHandler creates a new bench handler
func NewBenchHandler(benchService *service.BenchService, logger *zap.Logger) *BenchHandler {
	return &BenchHandler{
		benchService: benchService,
		logger:       utils.NewServiceLogger(logger, "bench-handler"),
	}
}

// ListInstruments lists configured instruments with live state
// @Summary List bench instruments
// @Description Get every configured instrument with its connection state and identification
// @Tags Bench
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Instrument list"
// @Router /api/v1/bench/instruments [get]
func (h *BenchHandler) ListInstruments(c *gin.Context) {
	instruments := h.benchService.Status()
	utils.SuccessResponse(c, http.StatusOK, "Bench instruments", gin.H{
		"instruments": instruments,
		"count":       len(instruments),
	})
}

// ConnectAll connects every configured instrument
// @Summary Connect all instruments
// @Description Resolve and connect every configured bench instrument
// @Tags Bench
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Bench connected"
// @Failure 502 {object} utils.APIResponse "A connection failed"
// @Router /api/v1/bench/connect [post]
func (h *BenchHandler) ConnectAll(c *gin.Context) {
	if err := h.benchService.ConnectAll(c.Request.Context()); err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to connect bench", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Bench connected", h.benchService.Status())
}

// ConnectInstrument connects one instrument by name
// @Summary Connect an instrument
// @Description Resolve and connect one configured instrument
// @Tags Bench
// @Accept json
// @Produce json
// @Param name path string true "Instrument name"
// @Success 200 {object} utils.APIResponse "Instrument connected"
// @Failure 502 {object} utils.APIResponse "Connection failed"
// @Router /api/v1/bench/instruments/{name}/connect [post]
func (h *BenchHandler) ConnectInstrument(c *gin.Context) {
	name := c.Param("name")

	if err := h.benchService.Connect(c.Request.Context(), name); err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to connect instrument", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Instrument connected", gin.H{"name": name})
}

// DisconnectInstrument disconnects one instrument by name
// @Summary Disconnect an instrument
// @Description Close the session of one configured instrument
// @Tags Bench
// @Accept json
// @Produce json
// @Param name path string true "Instrument name"
// @Success 200 {object} utils.APIResponse "Instrument disconnected"
// @Failure 400 {object} utils.APIResponse "Unknown instrument"
// @Router /api/v1/bench/instruments/{name}/disconnect [post]
func (h *BenchHandler) DisconnectInstrument(c *gin.Context) {
	name := c.Param("name")

	if err := h.benchService.Disconnect(name); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to disconnect instrument", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Instrument disconnected", gin.H{"name": name})
}

// IdentifyInstrument runs a fresh identification query
// @Summary Identify an instrument
// @Description Query the instrument for its identification record
// @Tags Bench
// @Accept json
// @Produce json
// @Param name path string true "Instrument name"
// @Success 200 {object} utils.APIResponse "Identification record"
// @Failure 502 {object} utils.APIResponse "Identification failed"
// @Router /api/v1/bench/instruments/{name}/identify [get]
func (h *BenchHandler) IdentifyInstrument(c *gin.Context) {
	name := c.Param("name")

	ident, err := h.benchService.Identify(name)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to identify instrument", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Instrument identified", ident)
}

// ListAdapters lists registered adapter names
// @Summary List adapters
// @Description Get the registered instrument adapters in dispatch order
// @Tags Bench
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Adapter list"
// @Router /api/v1/bench/adapters [get]
func (h *BenchHandler) ListAdapters(c *gin.Context) {
	adapters := h.benchService.Adapters()
	utils.SuccessResponse(c, http.StatusOK, "Registered adapters", gin.H{
		"adapters": adapters,
		"count":    len(adapters),
	})
}

// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"instrument-service/internal/config"
	"instrument-service/internal/database"
	"instrument-service/internal/handler"
	"instrument-service/internal/middleware"
	"instrument-service/internal/service"
	"instrument-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	db               *database.DB
	benchService     *service.BenchService
	sweepService     *service.SweepService
	discoveryService *service.DiscoveryService
	eventBus         *handler.EventBus
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	benchService *service.BenchService,
	sweepService *service.SweepService,
	discoveryService *service.DiscoveryService,
	eventBus *handler.EventBus,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		db:               db,
		benchService:     benchService,
		sweepService:     sweepService,
		discoveryService: discoveryService,
		eventBus:         eventBus,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.config, r.logger)
	benchHandler := handler.NewBenchHandler(r.benchService, r.logger)
	sweepHandler := handler.NewSweepHandler(r.sweepService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.eventBus, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addBenchRoutes(apiV1, benchHandler)
	r.addDiscoveryRoutes(apiV1, discoveryHandler)
	r.addSweepRoutes(apiV1, sweepHandler)

	r.addWebSocketRoutes(router, wsHandler)
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/health/db", handler.DatabaseHealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addBenchRoutes sets up bench instrument routes
func (r *Router) addBenchRoutes(api *gin.RouterGroup, benchHandler *handler.BenchHandler) {
	bench := api.Group("/bench")
	{
		bench.GET("/instruments", benchHandler.ListInstruments)
		bench.GET("/adapters", benchHandler.ListAdapters)
		bench.POST("/connect", benchHandler.ConnectAll)

		instrument := bench.Group("/instruments/:name")
		{
			instrument.POST("/connect", benchHandler.ConnectInstrument)
			instrument.POST("/disconnect", benchHandler.DisconnectInstrument)
			instrument.GET("/identify", benchHandler.IdentifyInstrument)
		}
	}
}

// addDiscoveryRoutes sets up instrument discovery routes
func (r *Router) addDiscoveryRoutes(api *gin.RouterGroup, discoveryHandler *handler.DiscoveryHandler) {
	bench := api.Group("/bench")
	{
		bench.GET("/scan", discoveryHandler.ScanInstruments)
		bench.GET("/scanners", discoveryHandler.ListScanners)
	}
}

// addSweepRoutes sets up measurement sweep routes
func (r *Router) addSweepRoutes(api *gin.RouterGroup, sweepHandler *handler.SweepHandler) {
	sweeps := api.Group("/sweeps")
	{
		sweeps.POST("", sweepHandler.StartSweep)
		sweeps.GET("", sweepHandler.ListSweeps)
		sweeps.GET("/:sweep_id", sweepHandler.GetSweep)
	}
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	{
		ws.GET("/events", handler.HandleEventConnection)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}

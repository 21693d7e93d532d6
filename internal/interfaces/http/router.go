// Package http wires the dashboard JSON API: device listing, live status,
// release lookup, update triggers, and run history.
package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"tasmofleet/internal/application/update/usecases"
	"tasmofleet/internal/infrastructure/config"
	"tasmofleet/internal/infrastructure/devicestore"
	"tasmofleet/internal/infrastructure/githubrelease"
	"tasmofleet/internal/infrastructure/history"
	"tasmofleet/internal/infrastructure/tasmota"
	"tasmofleet/internal/interfaces/http/handlers"
	"tasmofleet/internal/interfaces/http/middleware"
	"tasmofleet/internal/shared/logger"
	"tasmofleet/internal/shared/services/markdown"
)

// Router represents the HTTP router configuration
type Router struct {
	engine *gin.Engine

	deviceHandler  *handlers.DeviceHandler
	releaseHandler *handlers.ReleaseHandler
	updateHandler  *handlers.UpdateHandler
	historyHandler *handlers.HistoryHandler
	systemHandler  *handlers.SystemHandler

	allowedOrigins []string
	logger         logger.Interface
}

// NewRouter creates a new HTTP router with all dependencies
func NewRouter(cfg *config.Config, historyStore *history.Store, log logger.Interface) *Router {
	engine := gin.New()

	probeTimeout := time.Duration(cfg.Updater.ProbeTimeoutSeconds) * time.Second
	recoveryTimeout := time.Duration(cfg.Updater.RecoveryTimeoutSeconds) * time.Second
	pollInterval := time.Duration(cfg.Updater.PollIntervalSeconds) * time.Second

	store := devicestore.NewStore(cfg.Updater.DevicesFile, log)
	gateway := tasmota.NewGateway(probeTimeout, log)
	resolver := githubrelease.NewResolver(&cfg.Release, log)

	reconcileUC := usecases.NewReconcileDeviceUseCase(gateway, usecases.SystemClock(), log)
	fleetUC := usecases.NewRunFleetUseCase(
		resolver,
		reconcileUC,
		cfg.Updater.Concurrency,
		recoveryTimeout,
		pollInterval,
		log,
	)

	return &Router{
		engine:         engine,
		deviceHandler:  handlers.NewDeviceHandler(store, gateway, log),
		releaseHandler: handlers.NewReleaseHandler(resolver, markdown.NewService(), log),
		updateHandler:  handlers.NewUpdateHandler(store, resolver, reconcileUC, fleetUC, historyStore, recoveryTimeout, pollInterval, log),
		historyHandler: handlers.NewHistoryHandler(historyStore, log),
		systemHandler:  handlers.NewSystemHandler(),
		allowedOrigins: cfg.Server.AllowedOrigins,
		logger:         log,
	}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.CORS(r.allowedOrigins))
	r.engine.Use(middleware.SecurityHeaders())

	r.engine.GET("/health", r.systemHandler.Health)
	r.engine.GET("/version", r.systemHandler.Version)

	api := r.engine.Group("/api")
	{
		api.GET("/devices", r.deviceHandler.List)
		api.GET("/devices/:address", r.deviceHandler.GetStatus)
		api.GET("/releases/latest", r.releaseHandler.GetLatest)
		api.POST("/update", r.updateHandler.UpdateDevice)
		api.POST("/update/all", r.updateHandler.UpdateFleet)
		api.GET("/history", r.historyHandler.ListRuns)
	}
}

// GetEngine returns the gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

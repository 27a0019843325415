package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/internal/api/handlers"
	"github.com/smartdash/energy-backend-go/internal/api/middleware"
	"github.com/smartdash/energy-backend-go/internal/config"
	"github.com/smartdash/energy-backend-go/internal/websocket"
)

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, h *handlers.Handlers, logger *logrus.Logger, wsHub *websocket.Hub) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())
	if cfg.Security.EnableCORS {
		router.Use(middleware.CORSMiddleware(cfg.Security.AllowedOrigins))
	}
	router.Use(middleware.ErrorResponseMiddleware(logger))

	// Public routes
	router.GET("/health", h.Health)
	if cfg.Monitoring.Enabled {
		router.GET(cfg.Monitoring.Path, gin.WrapH(promhttp.Handler()))
	}

	// WebSocket endpoint
	router.GET("/ws", h.WebSocketHandler(wsHub))

	// API v1 routes
	api := router.Group("/api/v1")
	{
		api.GET("/config", h.GetConfig)

		energy := api.Group("/energy")
		{
			energy.GET("/power", h.GetPowerData)
			energy.GET("/breakers", h.GetBreakerData)
			energy.GET("/stove", h.GetStoveData)
			energy.POST("/config", h.SaveEnergyConfig)
		}

		api.POST("/cameras/config", h.SaveCamerasConfig)

		tts := api.Group("/tts")
		{
			tts.POST("/send", h.SendTTS)
			tts.POST("/volume", h.SetVolume)
		}

		api.POST("/switches/toggle", h.ToggleSwitch)
		api.POST("/breakers/:id/test-trip", h.TestTripBreaker)

		ws := api.Group("/websocket")
		{
			ws.GET("/stats", h.GetWebSocketStats(wsHub))
		}
	}

	return router
}

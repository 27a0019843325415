package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smartdash/energy-backend-go/internal/adapters/homeassistant"
	"github.com/smartdash/energy-backend-go/internal/api"
	"github.com/smartdash/energy-backend-go/internal/api/handlers"
	"github.com/smartdash/energy-backend-go/internal/config"
	"github.com/smartdash/energy-backend-go/internal/core/monitor"
	"github.com/smartdash/energy-backend-go/internal/core/tts"
	"github.com/smartdash/energy-backend-go/internal/database"
	"github.com/smartdash/energy-backend-go/internal/websocket"
	"github.com/smartdash/energy-backend-go/pkg/logger"
	"github.com/smartdash/energy-backend-go/pkg/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level)
	log.Infof("energy-backend %s", version.GetFullVersion())

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	// Create repositories
	repos := database.NewRepositories(db)

	// Create WebSocket hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Home Assistant client
	haTimeout, err := time.ParseDuration(cfg.HomeAssistant.Timeout)
	if err != nil {
		haTimeout = 10 * time.Second
	}
	haRetryDelay, err := time.ParseDuration(cfg.HomeAssistant.RetryDelay)
	if err != nil {
		haRetryDelay = time.Second
	}
	haClient := homeassistant.NewRESTClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token, homeassistant.Options{
		Timeout:    haTimeout,
		MaxRetries: cfg.HomeAssistant.RetryAttempts,
		RetryDelay: haRetryDelay,
	}, log)

	// Verify connectivity before the monitor starts; a bad token should fail
	// loudly at boot, not one tick at a time
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	if haConfig, err := haClient.GetConfig(startCtx); err != nil {
		log.WithError(err).Warn("Home Assistant not reachable at startup, monitor will retry per tick")
	} else {
		log.WithField("version", haConfig.Version).Info("Connected to Home Assistant")
	}
	cancelStart()

	// Alerting and monitoring
	speaker := tts.NewHASpeaker(haClient, log)
	dispatcher := tts.NewDispatcher(speaker, cfg.Monitor.AlertCooldownDuration(), log)
	source := monitor.NewHASource(haClient)
	monitorSvc := monitor.NewService(cfg.Monitor, source, dispatcher, repos.Config, repos.Energy, log)

	monitorSvc.OnAlert(func(alert tts.Alert) {
		wsHub.BroadcastToAll(websocket.AlertMessage(string(alert.Kind), alert.Target, alert.Message, alert.SentAt))
	})
	monitorSvc.OnSnapshot(func(snap *monitor.Snapshot) {
		wsHub.BroadcastToAll(websocket.EnergyUpdateMessage(snap))
		wsHub.BroadcastToAll(websocket.BreakerUpdateMessage(snap.Breakers))
		wsHub.BroadcastToAll(websocket.StoveUpdateMessage(snap.Stove))
		for _, room := range snap.Rooms {
			wsHub.BroadcastToRoom(room.ID, websocket.RoomUpdateMessage(room.ID, room))
		}
	})

	if err := monitorSvc.Start(context.Background()); err != nil {
		log.Fatal("Failed to start energy monitor: ", err)
	}

	// Initialize router
	h := handlers.NewHandlers(cfg, monitorSvc, speaker, repos.Config, wsHub, log)
	router := api.NewRouter(cfg, h, log, wsHub)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Infof("Starting energy backend on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	monitorSvc.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Info("Server exited")
}

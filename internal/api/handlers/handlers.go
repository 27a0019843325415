package handlers

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/internal/config"
	"github.com/smartdash/energy-backend-go/internal/core/monitor"
	"github.com/smartdash/energy-backend-go/internal/core/tts"
	"github.com/smartdash/energy-backend-go/internal/database/repositories"
	"github.com/smartdash/energy-backend-go/internal/websocket"
)

// Handlers contains all HTTP handlers and their dependencies
type Handlers struct {
	cfg        *config.Config
	logger     *logrus.Logger
	monitor    *monitor.Service
	speaker    tts.Speaker
	configRepo repositories.ConfigRepository
	hub        *websocket.Hub
	startedAt  time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, monitorSvc *monitor.Service, speaker tts.Speaker, configRepo repositories.ConfigRepository, hub *websocket.Hub, logger *logrus.Logger) *Handlers {
	return &Handlers{
		cfg:        cfg,
		logger:     logger,
		monitor:    monitorSvc,
		speaker:    speaker,
		configRepo: configRepo,
		hub:        hub,
		startedAt:  time.Now(),
	}
}

package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartdash/energy-backend-go/pkg/utils"
	"github.com/smartdash/energy-backend-go/pkg/version"
)

// Health returns service health including the age of the last monitor tick.
func (h *Handlers) Health(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"service":   "energy-backend",
		"version":   version.GetVersion(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
		"websocket": gin.H{
			"connected_clients": h.hub.GetClientCount(),
		},
	}

	if snap := h.monitor.Snapshot(); snap != nil {
		age := time.Since(snap.TakenAt)
		health["monitor"] = gin.H{
			"last_tick":     snap.TakenAt.UTC(),
			"last_tick_age": age.Round(time.Millisecond).String(),
		}
		// A stalled tick loop is a degraded service even when HTTP still answers
		if age > 3*h.cfg.Monitor.PollIntervalDuration() {
			health["status"] = "degraded"
		}
	} else {
		health["monitor"] = gin.H{"last_tick": nil}
	}

	utils.SendSuccess(c, health)
}

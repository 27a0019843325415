package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smartdash/energy-backend-go/internal/core/energy"
	"github.com/smartdash/energy-backend-go/internal/websocket"
	"github.com/smartdash/energy-backend-go/pkg/utils"
)

// GetPowerData returns the latest full tick snapshot.
func (h *Handlers) GetPowerData(c *gin.Context) {
	snap := h.monitor.Snapshot()
	if snap == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "No monitor data available yet")
		return
	}
	utils.SendSuccess(c, snap)
}

// GetBreakerData returns the breaker view of the latest snapshot.
func (h *Handlers) GetBreakerData(c *gin.Context) {
	snap := h.monitor.Snapshot()
	if snap == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "No monitor data available yet")
		return
	}
	utils.SendSuccess(c, gin.H{
		"taken_at":      snap.TakenAt,
		"breaker_lines": snap.Breakers,
	})
}

// GetStoveData returns the stove watchdog view of the latest snapshot.
func (h *Handlers) GetStoveData(c *gin.Context) {
	snap := h.monitor.Snapshot()
	if snap == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "No monitor data available yet")
		return
	}
	utils.SendSuccess(c, snap.Stove)
}

// SaveEnergyConfig validates and applies a new energy configuration. The
// prior configuration stays active when validation fails.
func (h *Handlers) SaveEnergyConfig(c *gin.Context) {
	var doc energy.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid energy configuration payload: "+err.Error())
		return
	}

	energy.Normalize(&doc)
	if err := energy.Validate(&doc); err != nil {
		var verr *energy.ValidationError
		if errors.As(err, &verr) {
			utils.SendErrorWithDetails(c, http.StatusUnprocessableEntity, "Energy configuration rejected", verr.Problems)
			return
		}
		utils.SendError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.monitor.ApplyDocument(c.Request.Context(), &doc); err != nil {
		h.logger.WithError(err).Error("Failed to apply energy configuration")
		utils.SendError(c, http.StatusInternalServerError, "Failed to save energy configuration")
		return
	}

	h.hub.BroadcastToAll(websocket.ConfigUpdatedMessage("energy"))
	utils.SendSuccess(c, &doc)
}

// TestTripBreaker toggles every relay on a breaker line for an installation
// check: all off when any is on, all on otherwise.
func (h *Handlers) TestTripBreaker(c *gin.Context) {
	breakerID := c.Param("id")
	if h.monitor.Document().BreakerByID(breakerID) == nil {
		utils.SendError(c, http.StatusNotFound, "Breaker not found")
		return
	}

	action, err := h.monitor.TestTripBreaker(c.Request.Context(), breakerID)
	if err != nil {
		h.logger.WithError(err).WithField("breaker", breakerID).Warn("Breaker test trip failed")
		utils.SendError(c, http.StatusBadGateway, err.Error())
		return
	}

	utils.SendSuccess(c, gin.H{
		"breaker_id": breakerID,
		"action":     action,
	})
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smartdash/energy-backend-go/pkg/utils"
)

type toggleSwitchRequest struct {
	EntityID string `json:"entity_id" binding:"required"`
	On       *bool  `json:"on"`
}

// ToggleSwitch drives a relay. Omitting "on" flips the relay from its
// current state.
func (h *Handlers) ToggleSwitch(c *gin.Context) {
	var req toggleSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "entity_id is required")
		return
	}
	if !strings.HasPrefix(req.EntityID, "switch.") {
		utils.SendError(c, http.StatusBadRequest, "entity_id must be a switch entity")
		return
	}

	on, err := h.monitor.ToggleSwitch(c.Request.Context(), req.EntityID, req.On)
	if err != nil {
		h.logger.WithError(err).WithField("entity_id", req.EntityID).Error("Switch toggle failed")
		utils.SendError(c, http.StatusBadGateway, "Failed to toggle switch")
		return
	}

	utils.SendSuccess(c, gin.H{
		"entity_id": req.EntityID,
		"on":        on,
	})
}

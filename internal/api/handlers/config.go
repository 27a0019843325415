package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smartdash/energy-backend-go/internal/database/models"
	"github.com/smartdash/energy-backend-go/internal/database/sqlite"
	"github.com/smartdash/energy-backend-go/internal/websocket"
	"github.com/smartdash/energy-backend-go/pkg/utils"
)

// GetConfig returns the full persisted configuration: the active energy
// document plus the cameras document.
func (h *Handlers) GetConfig(c *gin.Context) {
	cameras := json.RawMessage("[]")

	stored, err := h.configRepo.Get(c.Request.Context(), models.DocumentKeyCameras)
	if err != nil && !errors.Is(err, sqlite.ErrDocumentNotFound) {
		h.logger.WithError(err).Error("Failed to load cameras configuration")
		utils.SendError(c, http.StatusInternalServerError, "Failed to load configuration")
		return
	}
	if stored != nil {
		cameras = json.RawMessage(stored.Value)
	}

	utils.SendSuccess(c, gin.H{
		"energy":  h.monitor.Document(),
		"cameras": cameras,
	})
}

// SaveCamerasConfig persists the cameras document as-is. The camera
// subsystem itself lives in the dashboard frontend; the backend only stores
// the document and notifies connected clients.
func (h *Handlers) SaveCamerasConfig(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if !json.Valid(raw) {
		utils.SendError(c, http.StatusBadRequest, "Cameras configuration must be valid JSON")
		return
	}

	if err := h.configRepo.Set(c.Request.Context(), &models.ConfigDocument{
		Key:   models.DocumentKeyCameras,
		Value: string(raw),
	}); err != nil {
		h.logger.WithError(err).Error("Failed to persist cameras configuration")
		utils.SendError(c, http.StatusInternalServerError, "Failed to save cameras configuration")
		return
	}

	h.hub.BroadcastToAll(websocket.ConfigUpdatedMessage("cameras"))
	utils.SendSuccess(c, gin.H{"saved": true})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smartdash/energy-backend-go/pkg/utils"
)

type sendTTSRequest struct {
	MediaPlayer string  `json:"media_player" binding:"required"`
	Message     string  `json:"message" binding:"required"`
	Language    string  `json:"language"`
	Volume      float64 `json:"volume"`
}

// SendTTS speaks an arbitrary message on a media player.
func (h *Handlers) SendTTS(c *gin.Context) {
	var req sendTTSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "media_player and message are required")
		return
	}

	settings := h.monitor.Document().TTSSettings
	if req.Language == "" {
		req.Language = settings.Language
	}
	if req.Volume <= 0 {
		req.Volume = settings.Volume
	}

	if err := h.speaker.SendTTS(c.Request.Context(), req.MediaPlayer, req.Message, req.Language, req.Volume); err != nil {
		h.logger.WithError(err).WithField("media_player", req.MediaPlayer).Error("TTS send failed")
		utils.SendError(c, http.StatusBadGateway, "Failed to send TTS message")
		return
	}

	utils.SendSuccess(c, gin.H{"sent": true})
}

type setVolumeRequest struct {
	MediaPlayer string   `json:"media_player" binding:"required"`
	Volume      *float64 `json:"volume" binding:"required"`
}

// SetVolume sets a media player volume.
func (h *Handlers) SetVolume(c *gin.Context) {
	var req setVolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "media_player and volume are required")
		return
	}
	if *req.Volume < 0 || *req.Volume > 1 {
		utils.SendError(c, http.StatusBadRequest, "volume must be between 0 and 1")
		return
	}

	if err := h.speaker.SetVolume(c.Request.Context(), req.MediaPlayer, *req.Volume); err != nil {
		h.logger.WithError(err).WithField("media_player", req.MediaPlayer).Error("Volume set failed")
		utils.SendError(c, http.StatusBadGateway, "Failed to set volume")
		return
	}

	utils.SendSuccess(c, gin.H{"volume": *req.Volume})
}

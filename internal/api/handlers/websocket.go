package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/smartdash/energy-backend-go/internal/websocket"
	"github.com/smartdash/energy-backend-go/pkg/utils"
)

// WebSocketHandler upgrades the connection and attaches it to the hub.
func (h *Handlers) WebSocketHandler(hub *websocket.Hub) gin.HandlerFunc {
	return websocket.HandleWebSocketGin(hub)
}

// GetWebSocketStats returns hub statistics.
func (h *Handlers) GetWebSocketStats(hub *websocket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.SendSuccess(c, hub.GetStats())
	}
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project_agent/internal/entities"
)

// SendToChannel is the generic outbound endpoint: pick a channel, a
// destination and a message, and the processor routes it.
func (h *Handler) SendToChannel(c *gin.Context) {
	var payload struct {
		Channel     string `json:"channel" binding:"required"`
		Destination string `json:"destination" binding:"required"`
		Message     string `json:"message" binding:"required"`
		ChatID      int64  `json:"chatId"`
		SessionID   string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel, destination and message are required"})
		return
	}

	delivered, err := h.processor.SendToChannel(
		c.Request.Context(),
		entities.Channel(payload.Channel),
		payload.Destination,
		payload.Message,
		entities.Metadata{ChatID: payload.ChatID, SessionID: payload.SessionID},
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

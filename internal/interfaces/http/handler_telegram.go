package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"project_agent/internal/entities"
	"project_agent/internal/infrastructure"
)

// SendTelegramMessage delivers an arbitrary message to a Telegram chat.
func (h *Handler) SendTelegramMessage(c *gin.Context) {
	var payload struct {
		ChatID  int64  `json:"chatId" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatId and message are required"})
		return
	}

	delivered, err := h.processor.SendToChannel(
		c.Request.Context(),
		entities.ChannelTelegram,
		strconv.FormatInt(payload.ChatID, 10),
		payload.Message,
		entities.Metadata{ChatID: payload.ChatID},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

// ProcessTelegramMessage pushes a synthetic inbound Telegram message through
// the full pipeline. Diagnostic endpoint; the reply also goes to the chat
// when a chat ID is given and the real bot is connected.
func (h *Handler) ProcessTelegramMessage(c *gin.Context) {
	var payload struct {
		Message string `json:"message" binding:"required"`
		UserID  string `json:"userId"`
		ChatID  int64  `json:"chatId"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if payload.UserID == "" {
		payload.UserID = "api_test_user"
	}

	msg := entities.Message{
		UserID:    payload.UserID,
		Channel:   entities.ChannelTelegram,
		Content:   payload.Message,
		Timestamp: time.Now().UTC(),
		Direction: entities.DirectionInbound,
		Metadata:  entities.Metadata{ChatID: payload.ChatID},
	}

	response, err := h.processor.HandleInbound(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": response})
}

func (h *Handler) GetTelegramStatus(c *gin.Context) {
	status := gin.H{
		"initialized": infrastructure.TelegramInitialized(),
		"configured":  h.cfg.HasTelegram(),
	}

	if svc, ok := h.processor.Channel(entities.ChannelTelegram); ok {
		status["service"] = svc.GetServiceName()
		if real, ok := svc.(*infrastructure.TelegramService); ok {
			if username, err := real.GetBotInfo(); err == nil {
				status["bot"] = username
			}
		}
	}
	c.JSON(http.StatusOK, status)
}

// ResetTelegram tears down the current Telegram service and builds a fresh
// one, which restarts polling. Used to recover from a stuck long-poll.
func (h *Handler) ResetTelegram(c *gin.Context) {
	infrastructure.ResetTelegramService(c.Request.Context())

	svc := infrastructure.GetTelegramService(h.cfg)
	h.processor.ReplaceChannel(entities.ChannelTelegram, svc)

	c.JSON(http.StatusOK, gin.H{"status": "reset", "service": svc.GetServiceName()})
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project_agent/internal/entities"
	"project_agent/internal/infrastructure"
)

// CreateWebChatSession opens a new chat session for a (possibly anonymous)
// web visitor.
func (h *Handler) CreateWebChatSession(c *gin.Context) {
	var payload struct {
		UserID string `json:"userId"`
	}
	// body is optional; an empty one means anonymous
	_ = c.ShouldBindJSON(&payload)
	if payload.UserID == "" {
		payload.UserID = "anonymous"
	}

	sessionID := h.webchat.CreateSession(payload.UserID)
	c.JSON(http.StatusCreated, gin.H{"sessionId": sessionID, "userId": payload.UserID})
}

// HandleWebChatMessage runs a web message through the processor and returns
// the AI reply synchronously, which is what the web widget expects.
func (h *Handler) HandleWebChatMessage(c *gin.Context) {
	var payload struct {
		SessionID string `json:"sessionId" binding:"required"`
		Message   string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId and message are required"})
		return
	}

	user := h.webchat.ValidateSession(payload.SessionID)
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	msg, err := h.webchat.ReceiveMessage(infrastructure.WebChatInbound{
		SessionID: payload.SessionID,
		Content:   payload.Message,
		UserID:    user.ID,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.processor.HandleInbound(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": payload.SessionID,
		"response":  response,
	})
}

func (h *Handler) ValidateWebChatSession(c *gin.Context) {
	var payload struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId is required"})
		return
	}

	user := h.webchat.ValidateSession(payload.SessionID)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "user": user})
}

func (h *Handler) GetWebChatHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if h.webchat.ValidateSession(sessionID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	history := h.webchat.GetSessionHistory(sessionID)
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "messages": history})
}

func (h *Handler) ClearWebChatHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if h.webchat.ValidateSession(sessionID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	h.webchat.ClearSession(sessionID)
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "messages": []entities.Message{}})
}

func (h *Handler) GetWebChatStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.webchat.Stats())
}

package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"project_agent/internal/entities"
	"project_agent/internal/infrastructure"
)

// ProcessWithAI runs text through the active engine without touching any
// channel. Diagnostic endpoint.
func (h *Handler) ProcessWithAI(c *gin.Context) {
	var payload struct {
		Message string `json:"message" binding:"required"`
		UserID  string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if payload.UserID == "" {
		payload.UserID = "api_test_user"
	}

	now := time.Now().UTC()
	user := &entities.User{
		ID:          payload.UserID,
		Name:        "Usuário " + payload.UserID,
		Preferences: entities.DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	response := h.factory.Engine().ProcessMessage(c.Request.Context(), payload.Message, user, []entities.Message{})
	c.JSON(http.StatusOK, gin.H{"response": response, "engine": h.factory.Engine().EngineName()})
}

func (h *Handler) AnalyzeSentiment(c *gin.Context) {
	var payload struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	score := h.processor.AnalyzeSentiment(c.Request.Context(), payload.Text)
	c.JSON(http.StatusOK, gin.H{"sentiment": score})
}

func (h *Handler) ExtractIntent(c *gin.Context) {
	var payload struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	intent := h.processor.ExtractIntent(c.Request.Context(), payload.Text)
	entitiesFound := h.processor.ExtractEntities(c.Request.Context(), payload.Text)
	c.JSON(http.StatusOK, gin.H{"intent": intent, "entities": entitiesFound})
}

// SearchKnowledge queries the curated profile knowledge base directly,
// regardless of which engine is active.
func (h *Handler) SearchKnowledge(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	results := infrastructure.SearchKnowledge(query)
	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

// AddKnowledge appends a question/answer pair to the knowledge base for the
// lifetime of the process.
func (h *Handler) AddKnowledge(c *gin.Context) {
	var entry infrastructure.KnowledgeEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid knowledge entry"})
		return
	}
	if err := infrastructure.AddKnowledge(entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "added", "question": entry.Question})
}

func (h *Handler) GetEngineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.factory.EngineInfo())
}

// ResetEngine discards the cached engine so the next message re-runs
// provider selection. Useful after changing provider credentials.
func (h *Handler) ResetEngine(c *gin.Context) {
	h.factory.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset", "engine": h.factory.Engine().EngineName()})
}

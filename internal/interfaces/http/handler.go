package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"project_agent/internal/config"
	"project_agent/internal/infrastructure"
	"project_agent/internal/usecases"
)

type Handler struct {
	cfg       *config.Config
	processor *usecases.MultiChannelProcessor
	factory   *infrastructure.AIFactory
	webchat   *infrastructure.WebChatService
	whatsapp  *infrastructure.WhatsAppBusinessService
	device    *infrastructure.WhatsAppDeviceService // nil unless device pairing is enabled
	started   time.Time
}

func NewHandler(
	cfg *config.Config,
	processor *usecases.MultiChannelProcessor,
	factory *infrastructure.AIFactory,
	webchat *infrastructure.WebChatService,
	whatsapp *infrastructure.WhatsAppBusinessService,
	device *infrastructure.WhatsAppDeviceService,
) *Handler {
	return &Handler{
		cfg:       cfg,
		processor: processor,
		factory:   factory,
		webchat:   webchat,
		whatsapp:  whatsapp,
		device:    device,
		started:   time.Now().UTC(),
	}
}

func SetupRoutes(r *gin.Engine, h *Handler) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(CORSMiddleware())

	r.GET("/health", h.Health)
	r.GET("/health/ready", h.HealthReady)
	r.GET("/health/live", h.HealthLive)

	web := r.Group("/webchat")
	{
		web.POST("/session", h.CreateWebChatSession)
		web.POST("/message", h.HandleWebChatMessage)
		web.POST("/validate", h.ValidateWebChatSession)
		web.GET("/history/:sessionId", h.GetWebChatHistory)
		web.DELETE("/history/:sessionId", h.ClearWebChatHistory)
		web.GET("/stats", h.GetWebChatStats)
	}

	tg := r.Group("/telegram")
	{
		tg.POST("/send", h.SendTelegramMessage)
		tg.POST("/process", h.ProcessTelegramMessage)
		tg.GET("/status", h.GetTelegramStatus)
		tg.POST("/reset", h.ResetTelegram)
	}

	messaging := r.Group("/messaging")
	{
		messaging.POST("/send", h.SendToChannel)
		messaging.POST("/whatsapp/send", h.SendWhatsAppMessage)
	}

	ai := r.Group("/ai")
	{
		ai.POST("/process", h.ProcessWithAI)
		ai.POST("/sentiment", h.AnalyzeSentiment)
		ai.POST("/intent", h.ExtractIntent)
		ai.GET("/engine", h.GetEngineInfo)
		ai.POST("/reset", h.ResetEngine)
		ai.GET("/knowledge/search", h.SearchKnowledge)
		ai.POST("/knowledge/add", h.AddKnowledge)
	}

	wa := r.Group("/whatsapp")
	{
		wa.GET("/qr", h.GetWhatsAppQR)
		wa.GET("/status", h.GetWhatsAppStatus)
		wa.POST("/logout", h.LogoutWhatsApp)
	}

	r.GET("/webhook/whatsapp", h.VerifyWhatsAppWebhook)
	r.POST("/webhook/whatsapp", h.HandleWhatsAppWebhook)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(h.started).Seconds()),
		"engine":        h.processor.EngineName(),
	})
}

// HealthReady reports whether the service can answer messages: an engine is
// selectable and the channels are registered.
func (h *Handler) HealthReady(c *gin.Context) {
	if h.processor.EngineName() == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) HealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

package http

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"project_agent/internal/entities"
)

// VerifyWhatsAppWebhook answers the Cloud API subscription handshake.
func (h *Handler) VerifyWhatsAppWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if echo, ok := h.whatsapp.VerifyWebhook(mode, token, challenge); ok {
		c.String(http.StatusOK, echo)
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

// HandleWhatsAppWebhook accepts an inbound Cloud API event. Processing is
// asynchronous; the webhook must acknowledge quickly or Meta retries.
func (h *Handler) HandleWhatsAppWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	msg, err := h.whatsapp.ReceiveMessage(body)
	if err != nil {
		// delivery/status callbacks carry no message and are acknowledged
		if bytes.Contains(body, []byte(`"statuses"`)) {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go func() {
		if _, err := h.processor.HandleInbound(context.Background(), msg); err != nil {
			// HandleInbound logs its own failures; nothing else to do here
			_ = err
		}
	}()
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// GetWhatsAppQR returns the device-pairing QR code as PNG.
func (h *Handler) GetWhatsAppQR(c *gin.Context) {
	if h.device == nil {
		c.String(http.StatusServiceUnavailable, "WhatsApp device pairing not enabled")
		return
	}

	png, err := h.device.QRPNG()
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	if png == nil {
		if h.device.Status().LoggedIn {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// LogoutWhatsApp clears the device pairing and starts a new QR flow so a
// different phone can be paired without restarting the process.
func (h *Handler) LogoutWhatsApp(c *gin.Context) {
	if h.device == nil {
		c.String(http.StatusServiceUnavailable, "WhatsApp device pairing not enabled")
		return
	}
	if err := h.device.Logout(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

func (h *Handler) GetWhatsAppStatus(c *gin.Context) {
	status := gin.H{
		"webhookConfigured": h.cfg.HasWhatsApp(),
		"deviceEnabled":     h.device != nil,
	}
	if h.device != nil {
		status["device"] = h.device.Status()
	}
	c.JSON(http.StatusOK, status)
}

// SendWhatsAppMessage sends a text to a phone number, preferring the paired
// device when it is connected.
func (h *Handler) SendWhatsAppMessage(c *gin.Context) {
	var payload struct {
		To      string `json:"to" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to and message are required"})
		return
	}

	var delivered bool
	via := "cloud_api"
	if h.device != nil && h.device.Status().Connected {
		delivered = h.device.SendMessage(c.Request.Context(), payload.To, payload.Message, entities.Metadata{})
		via = "device"
	} else {
		delivered = h.whatsapp.SendMessage(c.Request.Context(), payload.To, payload.Message, entities.Metadata{})
	}

	c.JSON(http.StatusOK, gin.H{"delivered": delivered, "via": via})
}

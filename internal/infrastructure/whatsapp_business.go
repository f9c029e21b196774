package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"project_agent/internal/config"
	"project_agent/internal/entities"
	"project_agent/internal/interfaces"
)

const whatsappGraphBase = "https://graph.facebook.com/v17.0"

// whatsappWebhookPayload mirrors the Cloud API webhook envelope. Only the
// text-message path is unwrapped; everything else is ignored.
type whatsappWebhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					ID   string `json:"id"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type whatsappSendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsappText `json:"text"`
}

type whatsappText struct {
	Body string `json:"body"`
}

// WhatsAppBusinessService talks to the WhatsApp Cloud API: outbound sends go
// through the Graph endpoint, inbound arrives via webhook. The webhook handler
// routes inbound messages itself, so this service carries no notifier. Without
// a real token the service runs in simulated mode and logs instead of sending.
type WhatsAppBusinessService struct {
	token         string
	phoneNumberID string
	verifyToken   string
	simulated     bool
	http          *http.Client
}

func NewWhatsAppBusinessService(cfg *config.Config) *WhatsAppBusinessService {
	simulated := !cfg.HasWhatsApp()
	if simulated {
		slog.Info("whatsapp business service in simulated mode (no token)")
	} else {
		slog.Info("whatsapp business service initialized", "phone_number_id", cfg.WhatsAppPhoneNumberID)
	}
	return &WhatsAppBusinessService{
		token:         cfg.WhatsAppToken,
		phoneNumberID: cfg.WhatsAppPhoneNumberID,
		verifyToken:   cfg.WhatsAppVerifyToken,
		simulated:     simulated,
		http:          &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *WhatsAppBusinessService) GetServiceName() string { return "WhatsAppService" }

// VerifyWebhook answers the Cloud API subscription handshake. Returns the
// challenge to echo and whether the request is legitimate.
func (s *WhatsAppBusinessService) VerifyWebhook(mode, token, challenge string) (string, bool) {
	if mode == "subscribe" && token == s.verifyToken {
		return challenge, true
	}
	return "", false
}

// SendMessage posts a text message to the Graph API. In simulated mode the
// send is logged and reported as delivered.
func (s *WhatsAppBusinessService) SendMessage(ctx context.Context, destination string, content string, _ entities.Metadata) bool {
	if s.simulated {
		slog.Info("whatsapp simulated send", "to", destination, "length", len(content))
		return true
	}

	body, err := json.Marshal(whatsappSendRequest{
		MessagingProduct: "whatsapp",
		To:               destination,
		Type:             "text",
		Text:             whatsappText{Body: content},
	})
	if err != nil {
		slog.Error("whatsapp send: marshal failed", "error", err)
		return false
	}

	url := fmt.Sprintf("%s/%s/messages", whatsappGraphBase, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		slog.Error("whatsapp send: request build failed", "error", err)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		slog.Error("whatsapp send failed", "to", destination, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		slog.Error("whatsapp send rejected", "status", resp.StatusCode, "body", string(detail))
		return false
	}
	return true
}

// ReceiveMessage unwraps a webhook envelope (raw JSON bytes) into a message.
// Envelopes without a text message are malformed from the channel's point of
// view; status updates are filtered before this call.
func (s *WhatsAppBusinessService) ReceiveMessage(raw any) (entities.Message, error) {
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return entities.Message{}, interfaces.ErrMalformedPayload
	}

	var payload whatsappWebhookPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}

	value := payload.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}
	incoming := value.Messages[0]
	if incoming.Text.Body == "" {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}

	senderName := ""
	if len(value.Contacts) > 0 {
		senderName = value.Contacts[0].Profile.Name
	}

	msg := entities.Message{
		ID:        "msg_" + uuid.NewString(),
		UserID:    incoming.From,
		Channel:   entities.ChannelWhatsApp,
		Content:   incoming.Text.Body,
		Timestamp: time.Now().UTC(),
		Direction: entities.DirectionInbound,
		Metadata: entities.Metadata{
			SenderName: senderName,
			Raw:        map[string]any{"wa_message_id": incoming.ID},
		},
	}

	return msg, nil
}

package infrastructure

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"project_agent/internal/entities"
	"project_agent/internal/interfaces"
)

// SentRecord is a delivery captured by a mock channel, kept for diagnostics
// and tests.
type SentRecord struct {
	Destination string
	Content     string
	SentAt      time.Time
}

// MockTelegramService stands in for the real bot when no token is
// configured. Sends always succeed and are recorded.
type MockTelegramService struct {
	mu       sync.Mutex
	sent     []SentRecord
	handlers []interfaces.MessageHandler
}

func NewMockTelegramService() *MockTelegramService {
	return &MockTelegramService{}
}

func (s *MockTelegramService) GetServiceName() string { return "Telegram Mock" }

func (s *MockTelegramService) SendMessage(_ context.Context, destination, content string, _ entities.Metadata) bool {
	s.mu.Lock()
	s.sent = append(s.sent, SentRecord{Destination: destination, Content: content, SentAt: time.Now().UTC()})
	// Keep a bounded tail.
	if len(s.sent) > 100 {
		s.sent = s.sent[len(s.sent)-100:]
	}
	s.mu.Unlock()

	slog.Info("mock telegram message sent", "destination", destination)
	return true
}

func (s *MockTelegramService) ReceiveMessage(raw any) (entities.Message, error) {
	payload, ok := raw.(map[string]any)
	if !ok {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}
	content, _ := payload["text"].(string)
	if content == "" {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}
	userID, _ := payload["from"].(string)
	if userID == "" {
		userID = "mock_user_id"
	}

	msg := entities.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Channel:   entities.ChannelTelegram,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Direction: entities.DirectionInbound,
	}

	s.mu.Lock()
	handlers := make([]interfaces.MessageHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("mock telegram handler panicked", "panic", r)
				}
			}()
			h(msg)
		}()
	}

	return msg, nil
}

func (s *MockTelegramService) OnMessage(handler interfaces.MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

func (s *MockTelegramService) Stop(context.Context) error {
	slog.Info("mock telegram service stopped")
	return nil
}

// Sent returns a copy of the recorded deliveries.
func (s *MockTelegramService) Sent() []SentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentRecord, len(s.sent))
	copy(out, s.sent)
	return out
}

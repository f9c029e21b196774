package interfaces

import (
	"context"
	"errors"

	"project_agent/internal/entities"
)

// ErrMalformedPayload marks an inbound channel event that lacks the minimum
// required fields (no message body, no sender). Such events are rejected at
// the channel boundary and never reach the routing core.
var ErrMalformedPayload = errors.New("malformed inbound payload")

// AIEngine is the uniform contract every AI backend satisfies. ProcessMessage
// never returns an error for ordinary provider failures: remote errors are
// classified and converted into a degraded AIResponse so a channel always has
// text to relay back.
type AIEngine interface {
	ProcessMessage(ctx context.Context, text string, user *entities.User, history []entities.Message) entities.AIResponse
	AnalyzeSentiment(ctx context.Context, text string) float64
	ExtractIntent(ctx context.Context, text string) string
	ExtractEntities(ctx context.Context, text string) map[string]any
	EngineName() string
}

// ChannelService is the per-transport send/receive contract.
type ChannelService interface {
	// SendMessage attempts delivery and reports success; it does not return
	// an error for ordinary delivery failure. Destination semantics are
	// channel-specific (chat ID for Telegram, user ID for WebChat).
	SendMessage(ctx context.Context, destination, content string, meta entities.Metadata) bool
	// ReceiveMessage normalizes a channel-native event into a Message.
	// Returns ErrMalformedPayload when the event is not worth routing.
	ReceiveMessage(raw any) (entities.Message, error)
	GetServiceName() string
}

// MessageHandler is invoked once per normalized inbound message.
type MessageHandler func(msg entities.Message)

// MessageNotifier is the optional inbound-notification capability. Handlers
// run in registration order; a panic in one handler must not prevent the
// others from running.
type MessageNotifier interface {
	OnMessage(handler MessageHandler)
}

// Stopper is the optional resource-release capability. Stop is idempotent.
type Stopper interface {
	Stop(ctx context.Context) error
}

// SessionResolver is the optional capability of channels that keep their own
// session-scoped users (web chat). Nil means the session is unknown.
type SessionResolver interface {
	ValidateSession(sessionID string) *entities.User
}

// UserRepository persists users. Lookup misses return (nil, nil).
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) (*entities.User, error)
	FindByID(ctx context.Context, id string) (*entities.User, error)
	FindByPhone(ctx context.Context, phone string) (*entities.User, error)
	FindByTelegramID(ctx context.Context, telegramID string) (*entities.User, error)
	FindByWhatsappID(ctx context.Context, whatsappID string) (*entities.User, error)
	Update(ctx context.Context, id string, user *entities.User) (*entities.User, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// MessageRepository persists messages. Queries return empty slices, never nil.
type MessageRepository interface {
	Create(ctx context.Context, msg *entities.Message) (*entities.Message, error)
	FindByID(ctx context.Context, id string) (*entities.Message, error)
	FindByUserID(ctx context.Context, userID string, limit int) ([]entities.Message, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ConversationRepository persists conversations. Queries return empty slices,
// never nil.
type ConversationRepository interface {
	Create(ctx context.Context, conv *entities.Conversation) (*entities.Conversation, error)
	FindByID(ctx context.Context, id string) (*entities.Conversation, error)
	FindByUserID(ctx context.Context, userID string) ([]entities.Conversation, error)
	FindByStatus(ctx context.Context, status entities.ConversationStatus) ([]entities.Conversation, error)
	Update(ctx context.Context, id string, conv *entities.Conversation) (*entities.Conversation, error)
	Delete(ctx context.Context, id string) (bool, error)
}

package entities

import "time"

type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationClosed    ConversationStatus = "closed"
	ConversationEscalated ConversationStatus = "escalated"
)

type Conversation struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Channel   Channel            `json:"channel"`
	Status    ConversationStatus `json:"status"`
	Messages  []Message          `json:"messages"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

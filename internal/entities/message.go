package entities

import "time"

// Channel identifies the transport a message arrived on or departs through.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelWebChat  Channel = "webchat"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWeb      Channel = "web"
)

// Direction of a message relative to the system.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Metadata carries the channel-specific routing data a channel service needs
// to deliver a reply. The field a channel routes on (ChatID for Telegram,
// SessionID for WebChat) must be set before the message reaches the processor.
type Metadata struct {
	ChatID     int64          `json:"chat_id,omitempty"`    // Telegram chat
	SessionID  string         `json:"session_id,omitempty"` // WebChat session
	MessageID  int            `json:"message_id,omitempty"` // provider-side message id
	SenderName string         `json:"sender_name,omitempty"`
	Raw        map[string]any `json:"raw,omitempty"` // unparsed provider payload fragments
}

// Message is the canonical, channel-agnostic representation of a chat message.
// Created once per inbound event or outbound send; never mutated afterwards.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Channel   Channel   `json:"channel"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	Metadata  Metadata  `json:"metadata"`
}

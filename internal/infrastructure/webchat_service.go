package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"project_agent/internal/entities"
	"project_agent/internal/interfaces"
)

const (
	webSessionPrefix = "web_"
	// Sessions idle longer than this are removed by the cleanup sweep.
	defaultSessionMaxAge = 24 * time.Hour
	// Sessions active within this window count as active in stats. This is
	// an independent knob from the cleanup age.
	activeSessionWindow = 30 * time.Minute
)

// ChatSession is one web conversation: a synthesized user plus an
// append-only, chronological message history.
type ChatSession struct {
	SessionID    string
	UserID       string
	User         entities.User
	Messages     []entities.Message
	CreatedAt    time.Time
	LastActivity time.Time
}

// WebChatInbound is the raw event shape the web chat endpoint hands to
// ReceiveMessage.
type WebChatInbound struct {
	SessionID string
	Content   string
	UserID    string
}

// WebChatStats is the session-count summary exposed by the stats endpoint.
type WebChatStats struct {
	TotalSessions  int `json:"totalSessions"`
	ActiveSessions int `json:"activeSessions"`
}

// WebChatService keeps chat sessions in memory, keyed by opaque session ID.
// No cross-restart durability. The web endpoint routes inbound messages
// itself, so this service carries no notifier.
type WebChatService struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

func NewWebChatService() *WebChatService {
	slog.Info("webchat service initialized")
	return &WebChatService{sessions: make(map[string]*ChatSession)}
}

func (s *WebChatService) GetServiceName() string { return "WebChatService" }

// CreateSession allocates a session with a synthesized user and empty
// history.
func (s *WebChatService) CreateSession(userID string) string {
	sessionID := webSessionPrefix + uuid.NewString()
	now := time.Now().UTC()

	prefs := entities.DefaultPreferences()
	prefs.NotificationSettings = entities.NotificationSettings{}

	session := &ChatSession{
		SessionID: sessionID,
		UserID:    userID,
		User: entities.User{
			ID:          userID,
			Name:        "Usuário Web " + userID,
			Preferences: prefs,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Messages:     []entities.Message{},
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()

	slog.Info("webchat session created", "session_id", sessionID, "user_id", userID)
	return sessionID
}

// ValidateSession looks the session up and touches its activity time.
// Returns nil when the session does not exist.
func (s *WebChatService) ValidateSession(sessionID string) *entities.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	session.LastActivity = time.Now().UTC()
	user := session.User
	return &user
}

// GetSessionHistory returns the session's messages in insertion order.
// Unknown sessions yield an empty slice.
func (s *WebChatService) GetSessionHistory(sessionID string) []entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return []entities.Message{}
	}
	session.LastActivity = time.Now().UTC()
	out := make([]entities.Message, len(session.Messages))
	copy(out, session.Messages)
	return out
}

// ClearSession empties the session's history; the session itself survives.
func (s *WebChatService) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[sessionID]; ok {
		session.Messages = []entities.Message{}
		session.LastActivity = time.Now().UTC()
		slog.Info("webchat session history cleared", "session_id", sessionID)
	}
}

// SendMessage appends an outbound message to the session named by
// metadata. Missing session means delivery failure, not an error.
func (s *WebChatService) SendMessage(_ context.Context, _ string, content string, meta entities.Metadata) bool {
	if meta.SessionID == "" {
		slog.Error("webchat send: no session id in metadata")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[meta.SessionID]
	if !ok {
		slog.Error("webchat send: session not found", "session_id", meta.SessionID)
		return false
	}

	now := time.Now().UTC()
	session.Messages = append(session.Messages, entities.Message{
		ID:        "msg_" + uuid.NewString(),
		UserID:    session.UserID,
		Channel:   entities.ChannelWebChat,
		Content:   content,
		Timestamp: now,
		Direction: entities.DirectionOutbound,
		Metadata:  entities.Metadata{SessionID: meta.SessionID},
	})
	session.LastActivity = now
	return true
}

// ReceiveMessage normalizes a web chat submission and appends it to the
// session.
func (s *WebChatService) ReceiveMessage(raw any) (entities.Message, error) {
	inbound, ok := raw.(WebChatInbound)
	if !ok {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}
	if inbound.Content == "" || inbound.SessionID == "" {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}

	s.mu.Lock()
	session, ok := s.sessions[inbound.SessionID]
	if !ok {
		s.mu.Unlock()
		return entities.Message{}, fmt.Errorf("session not found: %s", inbound.SessionID)
	}

	now := time.Now().UTC()
	msg := entities.Message{
		ID:        "msg_" + uuid.NewString(),
		UserID:    session.UserID,
		Channel:   entities.ChannelWebChat,
		Content:   inbound.Content,
		Timestamp: now,
		Direction: entities.DirectionInbound,
		Metadata:  entities.Metadata{SessionID: inbound.SessionID},
	}
	session.Messages = append(session.Messages, msg)
	session.LastActivity = now
	s.mu.Unlock()

	return msg, nil
}

// CleanupOldSessions removes sessions idle past maxAge (zero means the 24h
// default). Operator-invoked; there is no automatic sweep.
func (s *WebChatService) CleanupOldSessions(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
			slog.Info("cleaned up old webchat session", "session_id", id)
		}
	}
	return removed
}

func (s *WebChatService) Stats() WebChatStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := 0
	threshold := time.Now().UTC().Add(-activeSessionWindow)
	for _, session := range s.sessions {
		if session.LastActivity.After(threshold) {
			active++
		}
	}
	return WebChatStats{TotalSessions: len(s.sessions), ActiveSessions: active}
}

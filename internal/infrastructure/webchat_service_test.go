package infrastructure

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"project_agent/internal/entities"
	"project_agent/internal/interfaces"
)

func TestWebChatSessionLifecycle(t *testing.T) {
	t.Parallel()

	svc := NewWebChatService()
	sessionID := svc.CreateSession("visitor1")

	if !strings.HasPrefix(sessionID, "web_") {
		t.Errorf("session id %q missing web_ prefix", sessionID)
	}

	user := svc.ValidateSession(sessionID)
	if user == nil {
		t.Fatal("ValidateSession returned nil for fresh session")
	}
	if user.ID != "visitor1" {
		t.Errorf("user.ID = %q, want visitor1", user.ID)
	}
	if user.Preferences.Language != "pt-BR" {
		t.Errorf("language = %q, want pt-BR", user.Preferences.Language)
	}

	if svc.ValidateSession("web_nope") != nil {
		t.Error("ValidateSession must return nil for unknown session")
	}
}

func TestWebChatMessageRoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewWebChatService()
	sessionID := svc.CreateSession("visitor1")

	inbound, err := svc.ReceiveMessage(WebChatInbound{SessionID: sessionID, Content: "Olá", UserID: "visitor1"})
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if inbound.Direction != entities.DirectionInbound || inbound.Channel != entities.ChannelWebChat {
		t.Errorf("inbound = %+v", inbound)
	}

	if !svc.SendMessage(context.Background(), "visitor1", "Oi! Como posso ajudar?", entities.Metadata{SessionID: sessionID}) {
		t.Fatal("SendMessage failed for existing session")
	}

	history := svc.GetSessionHistory(sessionID)
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].Direction != entities.DirectionInbound || history[1].Direction != entities.DirectionOutbound {
		t.Errorf("history order wrong: %v, %v", history[0].Direction, history[1].Direction)
	}

	svc.ClearSession(sessionID)
	if got := svc.GetSessionHistory(sessionID); len(got) != 0 {
		t.Errorf("history after clear = %d messages", len(got))
	}
	if svc.ValidateSession(sessionID) == nil {
		t.Error("session must survive a history clear")
	}
}

func TestWebChatReceiveMessageErrors(t *testing.T) {
	t.Parallel()

	svc := NewWebChatService()
	sessionID := svc.CreateSession("visitor1")

	tests := []struct {
		name          string
		raw           any
		wantMalformed bool
	}{
		{"wrong type", "not a struct", true},
		{"empty content", WebChatInbound{SessionID: sessionID}, true},
		{"missing session id", WebChatInbound{Content: "oi"}, true},
		{"unknown session", WebChatInbound{SessionID: "web_missing", Content: "oi"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.ReceiveMessage(tc.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, interfaces.ErrMalformedPayload); got != tc.wantMalformed {
				t.Errorf("ErrMalformedPayload = %v, want %v (err: %v)", got, tc.wantMalformed, err)
			}
		})
	}
}

func TestWebChatSendToMissingSession(t *testing.T) {
	t.Parallel()

	svc := NewWebChatService()
	if svc.SendMessage(context.Background(), "x", "oi", entities.Metadata{SessionID: "web_missing"}) {
		t.Error("SendMessage must report failure for unknown session")
	}
	if svc.SendMessage(context.Background(), "x", "oi", entities.Metadata{}) {
		t.Error("SendMessage must report failure without a session id")
	}
}

func TestWebChatReceiveAppendsToSession(t *testing.T) {
	t.Parallel()

	svc := NewWebChatService()
	sessionID := svc.CreateSession("visitor1")

	msg, err := svc.ReceiveMessage(WebChatInbound{SessionID: sessionID, Content: "oi"})
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if msg.Metadata.SessionID != sessionID {
		t.Errorf("Metadata.SessionID = %q", msg.Metadata.SessionID)
	}

	history := svc.GetSessionHistory(sessionID)
	if len(history) != 1 || history[0].Content != "oi" {
		t.Errorf("history = %+v, want the inbound message", history)
	}
}

func TestWebChatCleanupAndStats(t *testing.T) {
	t.Parallel()

	svc := NewWebChatService()
	fresh := svc.CreateSession("a")
	idle := svc.CreateSession("b")
	stale := svc.CreateSession("c")

	svc.mu.Lock()
	svc.sessions[idle].LastActivity = time.Now().UTC().Add(-time.Hour)
	svc.sessions[stale].LastActivity = time.Now().UTC().Add(-25 * time.Hour)
	svc.mu.Unlock()

	stats := svc.Stats()
	if stats.TotalSessions != 3 {
		t.Errorf("TotalSessions = %d, want 3", stats.TotalSessions)
	}
	// only the fresh session is inside the 30 minute activity window
	if stats.ActiveSessions != 1 {
		t.Errorf("ActiveSessions = %d, want 1", stats.ActiveSessions)
	}

	if removed := svc.CleanupOldSessions(0); removed != 1 {
		t.Errorf("CleanupOldSessions = %d, want 1", removed)
	}
	if svc.ValidateSession(stale) != nil {
		t.Error("stale session must be gone")
	}
	if svc.ValidateSession(fresh) == nil || svc.ValidateSession(idle) == nil {
		t.Error("sessions inside the age limit must survive")
	}
}

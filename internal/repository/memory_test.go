package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"project_agent/internal/entities"
)

func TestMemoryUserRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryUserRepository()

	created, err := repo.Create(ctx, &entities.User{
		Name:       "Maria",
		TelegramID: "tg1",
		WhatsappID: "wa1",
		Phone:      "5511999990000",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(created.ID, "user_") {
		t.Errorf("generated id = %q", created.ID)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps must be set on create")
	}

	t.Run("lookups", func(t *testing.T) {
		byID, _ := repo.FindByID(ctx, created.ID)
		byTg, _ := repo.FindByTelegramID(ctx, "tg1")
		byWa, _ := repo.FindByWhatsappID(ctx, "wa1")
		byPhone, _ := repo.FindByPhone(ctx, "5511999990000")
		for name, u := range map[string]*entities.User{"id": byID, "telegram": byTg, "whatsapp": byWa, "phone": byPhone} {
			if u == nil || u.ID != created.ID {
				t.Errorf("lookup by %s failed: %+v", name, u)
			}
		}
	})

	t.Run("miss is nil nil", func(t *testing.T) {
		u, err := repo.FindByID(ctx, "nope")
		if err != nil || u != nil {
			t.Errorf("FindByID miss = (%v, %v), want (nil, nil)", u, err)
		}
		u, err = repo.FindByTelegramID(ctx, "")
		if err != nil || u != nil {
			t.Errorf("empty telegram id = (%v, %v), want (nil, nil)", u, err)
		}
	})

	t.Run("update", func(t *testing.T) {
		updated, err := repo.Update(ctx, created.ID, &entities.User{Name: "Maria Silva"})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Name != "Maria Silva" {
			t.Errorf("Name = %q", updated.Name)
		}
		if !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Error("Update must preserve CreatedAt")
		}

		missing, err := repo.Update(ctx, "nope", &entities.User{})
		if err != nil || missing != nil {
			t.Errorf("Update miss = (%v, %v), want (nil, nil)", missing, err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		ok, _ := repo.Delete(ctx, created.ID)
		if !ok {
			t.Error("Delete existing = false")
		}
		ok, _ = repo.Delete(ctx, created.ID)
		if ok {
			t.Error("Delete twice = true")
		}
	})
}

func TestMemoryMessageRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryMessageRepository()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, &entities.Message{
			UserID:    "u1",
			Channel:   entities.ChannelWebChat,
			Content:   string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Direction: entities.DirectionInbound,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	repo.Create(ctx, &entities.Message{UserID: "u2", Content: "other"})

	t.Run("chronological with limit", func(t *testing.T) {
		got, err := repo.FindByUserID(ctx, "u1", 3)
		if err != nil {
			t.Fatalf("FindByUserID: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		// most recent three, oldest first
		if got[0].Content != "c" || got[2].Content != "e" {
			t.Errorf("window = %q, %q, %q", got[0].Content, got[1].Content, got[2].Content)
		}
	})

	t.Run("no limit", func(t *testing.T) {
		got, _ := repo.FindByUserID(ctx, "u1", 0)
		if len(got) != 5 {
			t.Errorf("len = %d, want 5", len(got))
		}
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		got, err := repo.FindByUserID(ctx, "ghost", 10)
		if err != nil {
			t.Fatalf("FindByUserID: %v", err)
		}
		if got == nil {
			t.Error("queries must return empty slices, never nil")
		}
		if len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}
	})
}

func TestMemoryConversationRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryConversationRepository()

	created, err := repo.Create(ctx, &entities.Conversation{UserID: "u1", Channel: entities.ChannelTelegram})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != entities.ConversationActive {
		t.Errorf("default status = %q, want active", created.Status)
	}
	if created.Messages == nil {
		t.Error("Messages must default to an empty slice")
	}

	repo.Create(ctx, &entities.Conversation{UserID: "u1", Channel: entities.ChannelWebChat, Status: entities.ConversationClosed})

	t.Run("by status", func(t *testing.T) {
		active, _ := repo.FindByStatus(ctx, entities.ConversationActive)
		if len(active) != 1 {
			t.Errorf("active = %d, want 1", len(active))
		}
		escalated, _ := repo.FindByStatus(ctx, entities.ConversationEscalated)
		if escalated == nil || len(escalated) != 0 {
			t.Errorf("escalated = %v, want empty non-nil", escalated)
		}
	})

	t.Run("by user", func(t *testing.T) {
		convs, _ := repo.FindByUserID(ctx, "u1")
		if len(convs) != 2 {
			t.Errorf("len = %d, want 2", len(convs))
		}
	})

	t.Run("update status", func(t *testing.T) {
		updated, err := repo.Update(ctx, created.ID, &entities.Conversation{
			UserID:  "u1",
			Channel: entities.ChannelTelegram,
			Status:  entities.ConversationEscalated,
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Status != entities.ConversationEscalated {
			t.Errorf("Status = %q", updated.Status)
		}
	})
}

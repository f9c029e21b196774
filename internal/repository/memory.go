package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"project_agent/internal/entities"
)

// In-memory repositories. Default storage when no database is configured;
// contents vanish on restart.

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]entities.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]entities.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *entities.User) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *user
	if stored.ID == "" {
		stored.ID = "user_" + uuid.NewString()
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.users[stored.ID] = stored
	out := stored
	return &out, nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.users[id]; ok {
		out := u
		return &out, nil
	}
	return nil, nil
}

func (r *MemoryUserRepository) FindByPhone(_ context.Context, phone string) (*entities.User, error) {
	return r.findBy(func(u entities.User) bool { return phone != "" && u.Phone == phone })
}

func (r *MemoryUserRepository) FindByTelegramID(_ context.Context, telegramID string) (*entities.User, error) {
	return r.findBy(func(u entities.User) bool { return telegramID != "" && u.TelegramID == telegramID })
}

func (r *MemoryUserRepository) FindByWhatsappID(_ context.Context, whatsappID string) (*entities.User, error) {
	return r.findBy(func(u entities.User) bool { return whatsappID != "" && u.WhatsappID == whatsappID })
}

func (r *MemoryUserRepository) findBy(match func(entities.User) bool) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id string, user *entities.User) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[id]
	if !ok {
		return nil, nil
	}

	updated := *user
	updated.ID = id
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.users[id] = updated
	out := updated
	return &out, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]entities.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[string]entities.Message)}
}

func (r *MemoryMessageRepository) Create(_ context.Context, msg *entities.Message) (*entities.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *msg
	if stored.ID == "" {
		stored.ID = "msg_" + uuid.NewString()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	r.messages[stored.ID] = stored
	out := stored
	return &out, nil
}

func (r *MemoryMessageRepository) FindByID(_ context.Context, id string) (*entities.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.messages[id]; ok {
		out := m
		return &out, nil
	}
	return nil, nil
}

// FindByUserID returns the user's messages in chronological order. A positive
// limit keeps only the most recent ones.
func (r *MemoryMessageRepository) FindByUserID(_ context.Context, userID string, limit int) ([]entities.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []entities.Message{}
	for _, m := range r.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *MemoryMessageRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.messages[id]; !ok {
		return false, nil
	}
	delete(r.messages, id)
	return true, nil
}

type MemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]entities.Conversation
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{conversations: make(map[string]entities.Conversation)}
}

func (r *MemoryConversationRepository) Create(_ context.Context, conv *entities.Conversation) (*entities.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *conv
	if stored.ID == "" {
		stored.ID = "conv_" + uuid.NewString()
	}
	if stored.Status == "" {
		stored.Status = entities.ConversationActive
	}
	if stored.Messages == nil {
		stored.Messages = []entities.Message{}
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.conversations[stored.ID] = stored
	out := stored
	return &out, nil
}

func (r *MemoryConversationRepository) FindByID(_ context.Context, id string) (*entities.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.conversations[id]; ok {
		out := c
		return &out, nil
	}
	return nil, nil
}

func (r *MemoryConversationRepository) FindByUserID(_ context.Context, userID string) ([]entities.Conversation, error) {
	return r.filter(func(c entities.Conversation) bool { return c.UserID == userID })
}

func (r *MemoryConversationRepository) FindByStatus(_ context.Context, status entities.ConversationStatus) ([]entities.Conversation, error) {
	return r.filter(func(c entities.Conversation) bool { return c.Status == status })
}

func (r *MemoryConversationRepository) filter(match func(entities.Conversation) bool) ([]entities.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []entities.Conversation{}
	for _, c := range r.conversations {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryConversationRepository) Update(_ context.Context, id string, conv *entities.Conversation) (*entities.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.conversations[id]
	if !ok {
		return nil, nil
	}

	updated := *conv
	updated.ID = id
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	if updated.Messages == nil {
		updated.Messages = []entities.Message{}
	}

	r.conversations[id] = updated
	out := updated
	return &out, nil
}

func (r *MemoryConversationRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[id]; !ok {
		return false, nil
	}
	delete(r.conversations, id)
	return true, nil
}

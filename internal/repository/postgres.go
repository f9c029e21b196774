package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"project_agent/internal/entities"
)

// Postgres-backed repositories. Preferences, metadata and embedded message
// lists are stored as JSONB so the schema stays flat.

type PostgresUserRepository struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *entities.User) (*entities.User, error) {
	stored := *user
	if stored.ID == "" {
		stored.ID = "user_" + uuid.NewString()
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	prefs, err := json.Marshal(stored.Preferences)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO users (id, name, phone, telegram_id, whatsapp_id, preferences, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		stored.ID, stored.Name, stored.Phone, stored.TelegramID, stored.WhatsappID, prefs, stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *PostgresUserRepository) FindByPhone(ctx context.Context, phone string) (*entities.User, error) {
	if phone == "" {
		return nil, nil
	}
	return r.findOne(ctx, "phone = $1", phone)
}

func (r *PostgresUserRepository) FindByTelegramID(ctx context.Context, telegramID string) (*entities.User, error) {
	if telegramID == "" {
		return nil, nil
	}
	return r.findOne(ctx, "telegram_id = $1", telegramID)
}

func (r *PostgresUserRepository) FindByWhatsappID(ctx context.Context, whatsappID string) (*entities.User, error) {
	if whatsappID == "" {
		return nil, nil
	}
	return r.findOne(ctx, "whatsapp_id = $1", whatsappID)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, arg any) (*entities.User, error) {
	var (
		user  entities.User
		prefs []byte
	)
	err := r.db.QueryRow(ctx,
		"SELECT id, name, phone, telegram_id, whatsapp_id, preferences, created_at, updated_at FROM users WHERE "+where,
		arg).Scan(&user.ID, &user.Name, &user.Phone, &user.TelegramID, &user.WhatsappID, &prefs, &user.CreatedAt, &user.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &user.Preferences); err != nil {
			return nil, fmt.Errorf("unmarshal preferences: %w", err)
		}
	}
	return &user, nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, id string, user *entities.User) (*entities.User, error) {
	prefs, err := json.Marshal(user.Preferences)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET name = $2, phone = $3, telegram_id = $4, whatsapp_id = $5, preferences = $6, updated_at = $7
		 WHERE id = $1`,
		id, user.Name, user.Phone, user.TelegramID, user.WhatsappID, prefs, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.findOne(ctx, "id = $1", id)
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type PostgresMessageRepository struct {
	db *pgxpool.Pool
}

func NewPostgresMessageRepository(db *pgxpool.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, msg *entities.Message) (*entities.Message, error) {
	stored := *msg
	if stored.ID == "" {
		stored.ID = "msg_" + uuid.NewString()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	meta, err := json.Marshal(stored.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO messages (id, user_id, channel, content, direction, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		stored.ID, stored.UserID, string(stored.Channel), stored.Content, string(stored.Direction), meta, stored.Timestamp)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *PostgresMessageRepository) FindByID(ctx context.Context, id string) (*entities.Message, error) {
	var (
		msg  entities.Message
		meta []byte
	)
	err := r.db.QueryRow(ctx,
		"SELECT id, user_id, channel, content, direction, metadata, created_at FROM messages WHERE id = $1",
		id).Scan(&msg.ID, &msg.UserID, &msg.Channel, &msg.Content, &msg.Direction, &meta, &msg.Timestamp)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &msg.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &msg, nil
}

func (r *PostgresMessageRepository) FindByUserID(ctx context.Context, userID string, limit int) ([]entities.Message, error) {
	query := `SELECT id, user_id, channel, content, direction, metadata, created_at
	          FROM messages WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.Message{}
	for rows.Next() {
		var (
			msg  entities.Message
			meta []byte
		)
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Channel, &msg.Content, &msg.Direction, &meta, &msg.Timestamp); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// rows arrive newest first; flip to chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *PostgresMessageRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type PostgresConversationRepository struct {
	db *pgxpool.Pool
}

func NewPostgresConversationRepository(db *pgxpool.Pool) *PostgresConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, conv *entities.Conversation) (*entities.Conversation, error) {
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

	msgs, err := json.Marshal(stored.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO conversations (id, user_id, channel, status, messages, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		stored.ID, stored.UserID, string(stored.Channel), string(stored.Status), msgs, stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *PostgresConversationRepository) FindByID(ctx context.Context, id string) (*entities.Conversation, error) {
	var (
		conv entities.Conversation
		msgs []byte
	)
	err := r.db.QueryRow(ctx,
		"SELECT id, user_id, channel, status, messages, created_at, updated_at FROM conversations WHERE id = $1",
		id).Scan(&conv.ID, &conv.UserID, &conv.Channel, &conv.Status, &msgs, &conv.CreatedAt, &conv.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalMessages(msgs, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *PostgresConversationRepository) FindByUserID(ctx context.Context, userID string) ([]entities.Conversation, error) {
	return r.findAll(ctx, "user_id = $1", userID)
}

func (r *PostgresConversationRepository) FindByStatus(ctx context.Context, status entities.ConversationStatus) ([]entities.Conversation, error) {
	return r.findAll(ctx, "status = $1", string(status))
}

func (r *PostgresConversationRepository) findAll(ctx context.Context, where string, arg any) ([]entities.Conversation, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, user_id, channel, status, messages, created_at, updated_at FROM conversations WHERE "+where+" ORDER BY created_at",
		arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.Conversation{}
	for rows.Next() {
		var (
			conv entities.Conversation
			msgs []byte
		)
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Channel, &conv.Status, &msgs, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalMessages(msgs, &conv); err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresConversationRepository) Update(ctx context.Context, id string, conv *entities.Conversation) (*entities.Conversation, error) {
	messages := conv.Messages
	if messages == nil {
		messages = []entities.Message{}
	}
	msgs, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE conversations SET channel = $2, status = $3, messages = $4, updated_at = $5 WHERE id = $1`,
		id, string(conv.Channel), string(conv.Status), msgs, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *PostgresConversationRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM conversations WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func unmarshalMessages(data []byte, conv *entities.Conversation) error {
	conv.Messages = []entities.Message{}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &conv.Messages); err != nil {
		return fmt.Errorf("unmarshal messages: %w", err)
	}
	if conv.Messages == nil {
		conv.Messages = []entities.Message{}
	}
	return nil
}

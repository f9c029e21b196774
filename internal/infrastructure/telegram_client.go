package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"project_agent/internal/entities"
	"project_agent/internal/interfaces"
)

const (
	telegramPollTimeout = 10
	conflictRetryDelay  = 5 * time.Second
	telegramSendsPerSec = 30 // Telegram global bot send limit
	telegramSendBurst   = 5
)

const telegramWelcome = "🤖 Olá! Sou o Agente IA da Michael Lourenço. Como posso ajudá-lo hoje?"

const telegramHelp = `🤖 *Comandos Disponíveis:*

/start - Iniciar conversa
/help - Mostrar esta ajuda

Você também pode simplesmente digitar suas perguntas e eu responderei!`

// TelegramService polls the Bot API for updates and relays normalized
// messages to registered handlers. One polling loop per process; the
// singleton accessor enforces that.
type TelegramService struct {
	bot      *tgbotapi.BotAPI
	limiter  *rate.Limiter
	stopOnce sync.Once
	stopChan chan struct{}

	mu       sync.Mutex
	handlers []interfaces.MessageHandler
}

// NewTelegramService fails fast when no real token is configured; the
// channel factory catches that and substitutes the mock service.
func NewTelegramService(token string) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	s := &TelegramService{
		bot:      bot,
		limiter:  rate.NewLimiter(rate.Limit(telegramSendsPerSec), telegramSendBurst),
		stopChan: make(chan struct{}),
	}

	if err := s.startPolling(); err != nil {
		return nil, err
	}

	slog.Info("telegram service started", "bot", bot.Self.UserName)
	return s, nil
}

func (s *TelegramService) GetServiceName() string { return "Telegram Real" }

// startPolling probes the update endpoint first so a 409 conflict (another
// instance polling with the same token) is detected synchronously. On
// conflict it backs off once and retries before giving up.
func (s *TelegramService) startPolling() error {
	probe := tgbotapi.NewUpdate(0)
	probe.Timeout = 0
	probe.Limit = 1

	if _, err := s.bot.GetUpdates(probe); err != nil {
		if !isConflictError(err) {
			return fmt.Errorf("telegram poll probe: %w", err)
		}
		slog.Warn("telegram polling conflict, retrying once", "delay", conflictRetryDelay)
		time.Sleep(conflictRetryDelay)
		if _, err := s.bot.GetUpdates(probe); err != nil {
			return fmt.Errorf("telegram poll retry: %w", err)
		}
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = telegramPollTimeout
	updates := s.bot.GetUpdatesChan(u)

	go s.pollLoop(updates)
	return nil
}

func (s *TelegramService) pollLoop(updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-s.stopChan:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			s.handleUpdate(update.Message)
		}
	}
}

func (s *TelegramService) handleUpdate(msg *tgbotapi.Message) {
	// Command replies bypass AI routing entirely.
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			s.sendRaw(msg.Chat.ID, telegramWelcome)
		case "help":
			s.sendRaw(msg.Chat.ID, telegramHelp)
		}
		return
	}

	normalized, err := s.ReceiveMessage(msg)
	if err != nil {
		slog.Warn("telegram update dropped", "error", err)
		return
	}
	s.notifyHandlers(normalized)
}

// ReceiveMessage normalizes a Telegram message. Events with no text are
// rejected as malformed rather than routed.
func (s *TelegramService) ReceiveMessage(raw any) (entities.Message, error) {
	msg, ok := raw.(*tgbotapi.Message)
	if !ok || msg == nil {
		return entities.Message{}, fmt.Errorf("telegram event: %w", interfaces.ErrMalformedPayload)
	}
	if msg.Text == "" {
		return entities.Message{}, fmt.Errorf("telegram message without text: %w", interfaces.ErrMalformedPayload)
	}

	userID := "unknown_user"
	senderName := ""
	if msg.From != nil {
		userID = strconv.FormatInt(msg.From.ID, 10)
		senderName = msg.From.FirstName
	}

	return entities.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Channel:   entities.ChannelTelegram,
		Content:   msg.Text,
		Timestamp: msg.Time().UTC(),
		Direction: entities.DirectionInbound,
		Metadata: entities.Metadata{
			ChatID:     msg.Chat.ID,
			MessageID:  msg.MessageID,
			SenderName: senderName,
		},
	}, nil
}

// SendMessage delivers to the chat in metadata, falling back to the numeric
// destination. Sends are paced against the Bot API limit.
func (s *TelegramService) SendMessage(ctx context.Context, destination, content string, meta entities.Metadata) bool {
	chatID := meta.ChatID
	if chatID == 0 {
		parsed, err := strconv.ParseInt(destination, 10, 64)
		if err != nil {
			slog.Error("telegram send: bad destination", "destination", destination)
			return false
		}
		chatID = parsed
	}

	if err := s.limiter.Wait(ctx); err != nil {
		slog.Error("telegram send canceled", "error", err)
		return false
	}

	if !s.sendRaw(chatID, content) {
		return false
	}
	slog.Debug("telegram message sent", "chat_id", chatID)
	return true
}

func (s *TelegramService) sendRaw(chatID int64, content string) bool {
	msg := tgbotapi.NewMessage(chatID, content)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.bot.Send(msg); err != nil {
		slog.Error("telegram send failed", "chat_id", chatID, "error", err)
		return false
	}
	return true
}

func (s *TelegramService) OnMessage(handler interfaces.MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// notifyHandlers runs handlers in registration order; a panic in one does
// not stop the rest.
func (s *TelegramService) notifyHandlers(msg entities.Message) {
	s.mu.Lock()
	handlers := make([]interfaces.MessageHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("telegram message handler panicked", "panic", r)
				}
			}()
			h(msg)
		}()
	}
}

// Stop halts the polling loop. Safe to call more than once.
func (s *TelegramService) Stop(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.bot.StopReceivingUpdates()
		slog.Info("telegram polling stopped")
	})
	return nil
}

// GetBotInfo reports the authenticated bot account.
func (s *TelegramService) GetBotInfo() (string, error) {
	me, err := s.bot.GetMe()
	if err != nil {
		return "", fmt.Errorf("telegram getMe: %w", err)
	}
	return me.UserName, nil
}

func isConflictError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "conflict")
}

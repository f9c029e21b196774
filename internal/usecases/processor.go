package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"project_agent/internal/entities"
	"project_agent/internal/interfaces"
)

const (
	historyLimit = 10

	// Shown when the engine itself blows up, as opposed to a provider
	// failure the engine already degraded into an apology.
	processingFallback = "Desculpe, ocorreu um erro ao processar sua mensagem. Tente novamente."
)

// EngineSource yields the currently selected AI engine. Resolved per message
// so an engine reset takes effect without restarting the processor.
type EngineSource interface {
	Engine() interfaces.AIEngine
}

// ProcessorStats is the routing counters snapshot for the stats endpoints.
type ProcessorStats struct {
	TotalProcessed   int            `json:"totalProcessed"`
	ByChannel        map[string]int `json:"byChannel"`
	FailedDeliveries int            `json:"failedDeliveries"`
	UptimeSeconds    int64          `json:"uptimeSeconds"`
}

// MultiChannelProcessor is the routing core: it receives normalized inbound
// messages from any registered channel, resolves the sending user, asks the
// AI engine for a reply and delivers it back through the same channel.
type MultiChannelProcessor struct {
	engines  EngineSource
	channels map[entities.Channel]interfaces.ChannelService

	users         interfaces.UserRepository
	messages      interfaces.MessageRepository
	conversations interfaces.ConversationRepository

	mu        sync.Mutex
	processed int
	byChannel map[string]int
	failed    int
	started   time.Time
}

func NewMultiChannelProcessor(
	engines EngineSource,
	channels map[entities.Channel]interfaces.ChannelService,
	users interfaces.UserRepository,
	messages interfaces.MessageRepository,
	conversations interfaces.ConversationRepository,
) *MultiChannelProcessor {
	return &MultiChannelProcessor{
		engines:       engines,
		channels:      channels,
		users:         users,
		messages:      messages,
		conversations: conversations,
		byChannel:     make(map[string]int),
		started:       time.Now().UTC(),
	}
}

// Start subscribes to every channel that pushes inbound messages. Channels
// without a notifier (webhook-style) call HandleInbound through their HTTP
// handler instead.
func (p *MultiChannelProcessor) Start() {
	for ch, svc := range p.snapshotChannels() {
		p.subscribe(ch, svc)
	}
}

func (p *MultiChannelProcessor) subscribe(ch entities.Channel, svc interfaces.ChannelService) {
	notifier, ok := svc.(interfaces.MessageNotifier)
	if !ok {
		return
	}
	notifier.OnMessage(func(msg entities.Message) {
		if _, err := p.HandleInbound(context.Background(), msg); err != nil {
			slog.Error("inbound processing failed", "channel", msg.Channel, "error", err)
		}
	})
	slog.Info("processor subscribed to channel", "channel", ch, "service", svc.GetServiceName())
}

// ReplaceChannel swaps the service behind a channel (used after a Telegram
// reset) and wires the replacement into the inbound flow.
func (p *MultiChannelProcessor) ReplaceChannel(ch entities.Channel, svc interfaces.ChannelService) {
	p.mu.Lock()
	p.channels[ch] = svc
	p.mu.Unlock()
	p.subscribe(ch, svc)
}

func (p *MultiChannelProcessor) channel(ch entities.Channel) (interfaces.ChannelService, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	svc, ok := p.channels[ch]
	return svc, ok
}

func (p *MultiChannelProcessor) snapshotChannels() map[entities.Channel]interfaces.ChannelService {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[entities.Channel]interfaces.ChannelService, len(p.channels))
	for k, v := range p.channels {
		out[k] = v
	}
	return out
}

// HandleInbound runs one message through the full pipeline and returns the
// AI response that was (or would have been) delivered. Persistence is best
// effort; a repository failure never blocks the reply.
func (p *MultiChannelProcessor) HandleInbound(ctx context.Context, msg entities.Message) (entities.AIResponse, error) {
	svc, ok := p.channel(msg.Channel)
	if !ok {
		return entities.AIResponse{}, fmt.Errorf("no service registered for channel %q", msg.Channel)
	}

	user := p.resolveUser(ctx, msg)
	history := p.loadHistory(ctx, user.ID)
	p.saveMessage(ctx, msg)

	response := p.runEngine(ctx, msg.Content, user, history)

	delivered := svc.SendMessage(ctx, p.destinationFor(msg), response.Content, msg.Metadata)

	p.mu.Lock()
	p.processed++
	p.byChannel[string(msg.Channel)]++
	if !delivered {
		p.failed++
	}
	p.mu.Unlock()

	if !delivered {
		slog.Error("reply delivery failed", "channel", msg.Channel, "user_id", user.ID)
	}

	outbound := entities.Message{
		UserID:    user.ID,
		Channel:   msg.Channel,
		Content:   response.Content,
		Timestamp: time.Now().UTC(),
		Direction: entities.DirectionOutbound,
		Metadata:  msg.Metadata,
	}
	p.saveMessage(ctx, outbound)

	return response, nil
}

// runEngine calls the engine with panic isolation: a panicking engine yields
// the generic fallback reply instead of taking the processor down.
func (p *MultiChannelProcessor) runEngine(ctx context.Context, text string, user *entities.User, history []entities.Message) (resp entities.AIResponse) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ai engine panicked", "panic", r)
			resp = entities.AIResponse{
				Content:          processingFallback,
				Confidence:       0.5,
				Intent:           "error",
				Entities:         map[string]any{},
				SuggestedActions: []string{"contact_support"},
			}
		}
	}()
	return p.engines.Engine().ProcessMessage(ctx, text, user, history)
}

// resolveUser finds the sender by their channel identity, creating a record
// on first contact. When the repository misbehaves the message is still
// answered with a synthesized, unpersisted user.
func (p *MultiChannelProcessor) resolveUser(ctx context.Context, msg entities.Message) *entities.User {
	var (
		found *entities.User
		err   error
	)
	switch msg.Channel {
	case entities.ChannelTelegram:
		found, err = p.users.FindByTelegramID(ctx, msg.UserID)
	case entities.ChannelWhatsApp:
		found, err = p.users.FindByWhatsappID(ctx, msg.UserID)
	case entities.ChannelWebChat:
		// The session already holds the user the visitor chats as.
		if user := p.sessionUser(msg); user != nil {
			return user
		}
		found, err = p.users.FindByID(ctx, msg.UserID)
	default:
		found, err = p.users.FindByID(ctx, msg.UserID)
	}
	if err != nil {
		slog.Error("user lookup failed", "user_id", msg.UserID, "error", err)
		return p.synthesizeUser(msg)
	}
	if found != nil {
		return found
	}

	fresh := p.synthesizeUser(msg)
	created, err := p.users.Create(ctx, fresh)
	if err != nil || created == nil {
		slog.Error("user create failed", "user_id", msg.UserID, "error", err)
		return fresh
	}
	return created
}

// sessionUser resolves the message's session against the registered channel,
// when the channel keeps session-scoped users.
func (p *MultiChannelProcessor) sessionUser(msg entities.Message) *entities.User {
	if msg.Metadata.SessionID == "" {
		return nil
	}
	svc, ok := p.channel(msg.Channel)
	if !ok {
		return nil
	}
	resolver, ok := svc.(interfaces.SessionResolver)
	if !ok {
		return nil
	}
	return resolver.ValidateSession(msg.Metadata.SessionID)
}

func (p *MultiChannelProcessor) synthesizeUser(msg entities.Message) *entities.User {
	name := msg.Metadata.SenderName
	if name == "" {
		name = "Usuário " + msg.UserID
	}
	now := time.Now().UTC()
	user := &entities.User{
		ID:          msg.UserID,
		Name:        name,
		Preferences: entities.DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	switch msg.Channel {
	case entities.ChannelTelegram:
		user.TelegramID = msg.UserID
	case entities.ChannelWhatsApp:
		user.WhatsappID = msg.UserID
		user.Phone = msg.UserID
	}
	return user
}

func (p *MultiChannelProcessor) loadHistory(ctx context.Context, userID string) []entities.Message {
	history, err := p.messages.FindByUserID(ctx, userID, historyLimit)
	if err != nil {
		slog.Error("history lookup failed", "user_id", userID, "error", err)
		return []entities.Message{}
	}
	return history
}

func (p *MultiChannelProcessor) saveMessage(ctx context.Context, msg entities.Message) {
	if _, err := p.messages.Create(ctx, &msg); err != nil {
		slog.Error("message persist failed", "channel", msg.Channel, "error", err)
	}
}

// destinationFor picks the channel-specific delivery address.
func (p *MultiChannelProcessor) destinationFor(msg entities.Message) string {
	if msg.Channel == entities.ChannelTelegram && msg.Metadata.ChatID != 0 {
		return strconv.FormatInt(msg.Metadata.ChatID, 10)
	}
	return msg.UserID
}

// SendToChannel delivers an arbitrary outbound message, bypassing the AI.
func (p *MultiChannelProcessor) SendToChannel(ctx context.Context, channel entities.Channel, destination, content string, meta entities.Metadata) (bool, error) {
	svc, ok := p.channel(channel)
	if !ok {
		return false, fmt.Errorf("no service registered for channel %q", channel)
	}
	return svc.SendMessage(ctx, destination, content, meta), nil
}

func (p *MultiChannelProcessor) Channel(channel entities.Channel) (interfaces.ChannelService, bool) {
	return p.channel(channel)
}

// Pass-throughs to the current engine, used by the analysis endpoints.

func (p *MultiChannelProcessor) AnalyzeSentiment(ctx context.Context, text string) float64 {
	return p.engines.Engine().AnalyzeSentiment(ctx, text)
}

func (p *MultiChannelProcessor) ExtractIntent(ctx context.Context, text string) string {
	return p.engines.Engine().ExtractIntent(ctx, text)
}

func (p *MultiChannelProcessor) ExtractEntities(ctx context.Context, text string) map[string]any {
	return p.engines.Engine().ExtractEntities(ctx, text)
}

func (p *MultiChannelProcessor) EngineName() string {
	return p.engines.Engine().EngineName()
}

func (p *MultiChannelProcessor) GetStats() ProcessorStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	byChannel := make(map[string]int, len(p.byChannel))
	for k, v := range p.byChannel {
		byChannel[k] = v
	}
	return ProcessorStats{
		TotalProcessed:   p.processed,
		ByChannel:        byChannel,
		FailedDeliveries: p.failed,
		UptimeSeconds:    int64(time.Since(p.started).Seconds()),
	}
}

// Stop shuts down every channel that holds resources. All failures are
// collected; one bad channel does not stop the others from closing.
func (p *MultiChannelProcessor) Stop(ctx context.Context) error {
	var errs []error
	for ch, svc := range p.snapshotChannels() {
		stopper, ok := svc.(interfaces.Stopper)
		if !ok {
			continue
		}
		if err := stopper.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

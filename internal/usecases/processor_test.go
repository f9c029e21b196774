package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"

	"project_agent/internal/entities"
	"project_agent/internal/infrastructure"
	"project_agent/internal/interfaces"
	"project_agent/internal/repository"
)

type stubEngine struct {
	mu          sync.Mutex
	reply       string
	panics      bool
	lastHistory []entities.Message
	lastUser    *entities.User
}

func (e *stubEngine) ProcessMessage(_ context.Context, text string, user *entities.User, history []entities.Message) entities.AIResponse {
	e.mu.Lock()
	e.lastHistory = history
	e.lastUser = user
	e.mu.Unlock()
	if e.panics {
		panic("engine down")
	}
	return entities.AIResponse{
		Content:    e.reply,
		Confidence: 0.9,
		Intent:     "greeting",
		Entities:   map[string]any{},
	}
}

func (e *stubEngine) AnalyzeSentiment(context.Context, string) float64 { return 0.4 }
func (e *stubEngine) ExtractIntent(context.Context, string) string     { return "pricing" }
func (e *stubEngine) ExtractEntities(context.Context, string) map[string]any {
	return map[string]any{"k": "v"}
}
func (e *stubEngine) EngineName() string { return "Stub" }

type stubSource struct{ engine interfaces.AIEngine }

func (s stubSource) Engine() interfaces.AIEngine { return s.engine }

type sentMsg struct {
	destination string
	content     string
	meta        entities.Metadata
}

type stubChannel struct {
	mu       sync.Mutex
	name     string
	fail     bool
	sent     []sentMsg
	handlers []interfaces.MessageHandler
	stopErr  error
	stopped  bool
}

func (c *stubChannel) SendMessage(_ context.Context, destination, content string, meta entities.Metadata) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return false
	}
	c.sent = append(c.sent, sentMsg{destination: destination, content: content, meta: meta})
	return true
}

func (c *stubChannel) ReceiveMessage(any) (entities.Message, error) {
	return entities.Message{}, interfaces.ErrMalformedPayload
}

func (c *stubChannel) GetServiceName() string { return c.name }

func (c *stubChannel) OnMessage(h interfaces.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

func (c *stubChannel) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	return c.stopErr
}

func (c *stubChannel) sentMessages() []sentMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentMsg, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *stubChannel) push(msg entities.Message) {
	c.mu.Lock()
	handlers := make([]interfaces.MessageHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

func newTestProcessor(engine interfaces.AIEngine, channels map[entities.Channel]interfaces.ChannelService) *MultiChannelProcessor {
	return NewMultiChannelProcessor(
		stubSource{engine: engine},
		channels,
		repository.NewMemoryUserRepository(),
		repository.NewMemoryMessageRepository(),
		repository.NewMemoryConversationRepository(),
	)
}

func TestHandleInboundRepliesOnSameChannel(t *testing.T) {
	t.Parallel()

	telegram := &stubChannel{name: "tg"}
	web := &stubChannel{name: "web"}
	engine := &stubEngine{reply: "Olá!"}
	p := newTestProcessor(engine, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelTelegram: telegram,
		entities.ChannelWebChat:  web,
	})

	resp, err := p.HandleInbound(context.Background(), entities.Message{
		UserID:    "42",
		Channel:   entities.ChannelTelegram,
		Content:   "oi",
		Direction: entities.DirectionInbound,
		Metadata:  entities.Metadata{ChatID: 9000},
	})
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if resp.Content != "Olá!" {
		t.Errorf("Content = %q", resp.Content)
	}

	sent := telegram.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("telegram sends = %d, want 1", len(sent))
	}
	// telegram replies address the chat, not the user
	if sent[0].destination != "9000" {
		t.Errorf("destination = %q, want 9000", sent[0].destination)
	}
	if len(web.sentMessages()) != 0 {
		t.Error("web channel must not receive the reply")
	}

	if engine.lastUser == nil || engine.lastUser.TelegramID != "42" {
		t.Errorf("engine user = %+v, want telegram identity 42", engine.lastUser)
	}
}

func TestHandleInboundWebChatUsesSessionUser(t *testing.T) {
	t.Parallel()

	web := infrastructure.NewWebChatService()
	sessionID := web.CreateSession("u1")
	engine := &stubEngine{reply: "ok"}
	p := newTestProcessor(engine, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelWebChat: web,
	})

	msg, err := web.ReceiveMessage(infrastructure.WebChatInbound{
		SessionID: sessionID,
		Content:   "quais tecnologias?",
		UserID:    "u1",
	})
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if _, err := p.HandleInbound(context.Background(), msg); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	if engine.lastUser == nil || engine.lastUser.Name != "Usuário Web u1" {
		t.Errorf("engine user = %+v, want the session's user", engine.lastUser)
	}
}

func TestHandleInboundWebChatUnknownSessionFallsBack(t *testing.T) {
	t.Parallel()

	web := infrastructure.NewWebChatService()
	engine := &stubEngine{reply: "ok"}
	p := newTestProcessor(engine, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelWebChat: web,
	})

	// a stale session id must not break resolution
	msg := entities.Message{
		UserID:   "u1",
		Channel:  entities.ChannelWebChat,
		Content:  "oi",
		Metadata: entities.Metadata{SessionID: "web_gone"},
	}
	if _, err := p.HandleInbound(context.Background(), msg); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	if engine.lastUser == nil || engine.lastUser.Name != "Usuário u1" {
		t.Errorf("engine user = %+v, want the synthesized fallback", engine.lastUser)
	}
}

func TestHandleInboundUnknownChannel(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(&stubEngine{reply: "x"}, map[entities.Channel]interfaces.ChannelService{})
	if _, err := p.HandleInbound(context.Background(), entities.Message{Channel: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unregistered channel")
	}
}

func TestHandleInboundEnginePanicFallsBack(t *testing.T) {
	t.Parallel()

	ch := &stubChannel{name: "web"}
	p := newTestProcessor(&stubEngine{panics: true}, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelWebChat: ch,
	})

	resp, err := p.HandleInbound(context.Background(), entities.Message{
		UserID:  "v1",
		Channel: entities.ChannelWebChat,
		Content: "oi",
	})
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if resp.Content != processingFallback {
		t.Errorf("Content = %q, want the fallback apology", resp.Content)
	}
	if resp.Intent != "error" {
		t.Errorf("Intent = %q, want error", resp.Intent)
	}

	sent := ch.sentMessages()
	if len(sent) != 1 || sent[0].content != processingFallback {
		t.Errorf("sent = %+v, the apology must still be delivered", sent)
	}
}

func TestHandleInboundHistoryExcludesCurrentMessage(t *testing.T) {
	t.Parallel()

	ch := &stubChannel{name: "web"}
	engine := &stubEngine{reply: "ok"}
	p := newTestProcessor(engine, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelWebChat: ch,
	})

	first := entities.Message{UserID: "v1", Channel: entities.ChannelWebChat, Content: "primeira"}
	if _, err := p.HandleInbound(context.Background(), first); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if len(engine.lastHistory) != 0 {
		t.Errorf("first message history = %d entries, want 0", len(engine.lastHistory))
	}

	second := entities.Message{UserID: "v1", Channel: entities.ChannelWebChat, Content: "segunda"}
	if _, err := p.HandleInbound(context.Background(), second); err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	// first inbound plus the reply to it
	if len(engine.lastHistory) != 2 {
		t.Errorf("second message history = %d entries, want 2", len(engine.lastHistory))
	}
}

func TestProcessorSubscribesToNotifiers(t *testing.T) {
	t.Parallel()

	ch := &stubChannel{name: "tg"}
	p := newTestProcessor(&stubEngine{reply: "oi!"}, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelTelegram: ch,
	})
	p.Start()

	ch.push(entities.Message{
		UserID:   "42",
		Channel:  entities.ChannelTelegram,
		Content:  "olá",
		Metadata: entities.Metadata{ChatID: 7},
	})

	if sent := ch.sentMessages(); len(sent) != 1 {
		t.Fatalf("pushed message produced %d sends, want 1", len(sent))
	}
}

func TestProcessorStats(t *testing.T) {
	t.Parallel()

	good := &stubChannel{name: "web"}
	bad := &stubChannel{name: "tg", fail: true}
	p := newTestProcessor(&stubEngine{reply: "oi"}, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelWebChat:  good,
		entities.ChannelTelegram: bad,
	})

	p.HandleInbound(context.Background(), entities.Message{UserID: "a", Channel: entities.ChannelWebChat, Content: "1"})
	p.HandleInbound(context.Background(), entities.Message{UserID: "a", Channel: entities.ChannelWebChat, Content: "2"})
	p.HandleInbound(context.Background(), entities.Message{UserID: "b", Channel: entities.ChannelTelegram, Content: "3"})

	stats := p.GetStats()
	if stats.TotalProcessed != 3 {
		t.Errorf("TotalProcessed = %d, want 3", stats.TotalProcessed)
	}
	if stats.ByChannel["webchat"] != 2 || stats.ByChannel["telegram"] != 1 {
		t.Errorf("ByChannel = %v", stats.ByChannel)
	}
	if stats.FailedDeliveries != 1 {
		t.Errorf("FailedDeliveries = %d, want 1", stats.FailedDeliveries)
	}
}

func TestProcessorStopCollectsFailures(t *testing.T) {
	t.Parallel()

	okCh := &stubChannel{name: "web"}
	badCh := &stubChannel{name: "tg", stopErr: errors.New("poll hang")}
	p := newTestProcessor(&stubEngine{}, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelWebChat:  okCh,
		entities.ChannelTelegram: badCh,
	})

	err := p.Stop(context.Background())
	if err == nil {
		t.Fatal("Stop must surface channel failures")
	}
	if !okCh.stopped || !badCh.stopped {
		t.Error("one failing channel must not prevent stopping the others")
	}
}

func TestReplaceChannel(t *testing.T) {
	t.Parallel()

	old := &stubChannel{name: "tg-old"}
	p := newTestProcessor(&stubEngine{reply: "oi"}, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelTelegram: old,
	})
	p.Start()

	fresh := &stubChannel{name: "tg-new"}
	p.ReplaceChannel(entities.ChannelTelegram, fresh)

	p.HandleInbound(context.Background(), entities.Message{UserID: "42", Channel: entities.ChannelTelegram, Content: "oi"})

	if len(fresh.sentMessages()) != 1 {
		t.Error("reply must go through the replacement service")
	}
	if len(old.sentMessages()) != 0 {
		t.Error("old service must be out of the loop")
	}
}

func TestSendToChannel(t *testing.T) {
	t.Parallel()

	ch := &stubChannel{name: "web"}
	p := newTestProcessor(&stubEngine{}, map[entities.Channel]interfaces.ChannelService{
		entities.ChannelWebChat: ch,
	})

	ok, err := p.SendToChannel(context.Background(), entities.ChannelWebChat, "v1", "aviso", entities.Metadata{SessionID: "web_s"})
	if err != nil || !ok {
		t.Fatalf("SendToChannel = (%v, %v)", ok, err)
	}
	if sent := ch.sentMessages(); len(sent) != 1 || sent[0].meta.SessionID != "web_s" {
		t.Errorf("sent = %+v", sent)
	}

	if _, err := p.SendToChannel(context.Background(), "nope", "d", "m", entities.Metadata{}); err == nil {
		t.Error("unknown channel must error")
	}
}

func TestEnginePassThroughs(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(&stubEngine{}, map[entities.Channel]interfaces.ChannelService{})
	ctx := context.Background()

	if got := p.AnalyzeSentiment(ctx, "x"); got != 0.4 {
		t.Errorf("AnalyzeSentiment = %v", got)
	}
	if got := p.ExtractIntent(ctx, "x"); got != "pricing" {
		t.Errorf("ExtractIntent = %q", got)
	}
	if got := p.ExtractEntities(ctx, "x"); got["k"] != "v" {
		t.Errorf("ExtractEntities = %v", got)
	}
	if got := p.EngineName(); got != "Stub" {
		t.Errorf("EngineName = %q", got)
	}
}

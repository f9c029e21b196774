package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite" // pure Go sqlite driver for the device store

	"project_agent/internal/config"
	"project_agent/internal/entities"
	"project_agent/internal/interfaces"
)

// WhatsAppDeviceStatus summarizes the pairing state for the status endpoint.
type WhatsAppDeviceStatus struct {
	Connected bool   `json:"connected"`
	LoggedIn  bool   `json:"loggedIn"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
	HasQR     bool   `json:"hasQr"`
}

// WhatsAppDeviceService is a device-paired WhatsApp client. Unlike the Cloud
// API service it acts as a regular phone: the session lives in a local sqlite
// store and pairing happens by scanning a QR code.
type WhatsAppDeviceService struct {
	client *whatsmeow.Client

	mu       sync.RWMutex
	qrCode   string
	handlers []interfaces.MessageHandler
}

// NewWhatsAppDeviceService opens (or creates) the device store under the
// configured directory and builds the client. It does not connect.
func NewWhatsAppDeviceService(cfg *config.Config) (*WhatsAppDeviceService, error) {
	if err := os.MkdirAll(cfg.WhatsAppDeviceDir, 0o755); err != nil {
		return nil, fmt.Errorf("create device directory: %w", err)
	}

	dbPath := filepath.Join(cfg.WhatsAppDeviceDir, "device.db")
	dbLog := waLog.Stdout("Database", "INFO", false)
	container, err := sqlstore.New(context.Background(), "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", dbLog)
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	clientLog := waLog.Stdout("Client", "INFO", false)
	s := &WhatsAppDeviceService{client: whatsmeow.NewClient(deviceStore, clientLog)}
	s.client.AddEventHandler(s.handleEvent)
	return s, nil
}

func (s *WhatsAppDeviceService) GetServiceName() string { return "WhatsAppDeviceService" }

// Connect establishes the session. A device without a stored ID starts the
// QR pairing flow; the latest code is kept for the QR endpoint.
func (s *WhatsAppDeviceService) Connect() error {
	if s.client.Store.ID == nil {
		qrChan, _ := s.client.GetQRChannel(context.Background())
		if err := s.client.Connect(); err != nil {
			return err
		}
		go s.watchQR(qrChan)
		return nil
	}

	if err := s.client.Connect(); err != nil {
		return err
	}
	slog.Info("whatsapp device connected with existing session")
	return nil
}

func (s *WhatsAppDeviceService) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == "code" {
			s.mu.Lock()
			s.qrCode = evt.Code
			s.mu.Unlock()
			slog.Info("whatsapp pairing code available")
		} else {
			slog.Info("whatsapp pairing event", "event", evt.Event)
		}
	}
}

// QRPNG renders the current pairing code as a PNG. Empty result means there
// is no pending code (already paired, or not yet generated).
func (s *WhatsAppDeviceService) QRPNG() ([]byte, error) {
	s.mu.RLock()
	code := s.qrCode
	s.mu.RUnlock()

	if code == "" {
		return nil, nil
	}
	return qrcode.Encode(code, qrcode.Medium, 256)
}

func (s *WhatsAppDeviceService) Status() WhatsAppDeviceStatus {
	s.mu.RLock()
	hasQR := s.qrCode != ""
	s.mu.RUnlock()

	st := WhatsAppDeviceStatus{
		Connected: s.client.IsConnected(),
		LoggedIn:  s.client.Store.ID != nil,
		HasQR:     hasQR,
	}
	if s.client.Store.ID != nil {
		st.Phone = s.client.Store.ID.User
		st.Name = s.client.Store.PushName
	}
	return st
}

// Logout clears the pairing and immediately starts a new QR flow so the
// device can be re-paired without a restart.
func (s *WhatsAppDeviceService) Logout() error {
	s.mu.Lock()
	s.qrCode = ""
	s.mu.Unlock()

	if err := s.client.Logout(context.Background()); err != nil {
		return err
	}
	s.client.Disconnect()

	qrChan, _ := s.client.GetQRChannel(context.Background())
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("reconnect after logout: %w", err)
	}
	go s.watchQR(qrChan)
	return nil
}

func (s *WhatsAppDeviceService) Stop(_ context.Context) error {
	s.client.Disconnect()
	return nil
}

// SendMessage delivers a text to a phone number (digits only; the JID suffix
// is added here).
func (s *WhatsAppDeviceService) SendMessage(ctx context.Context, destination string, content string, _ entities.Metadata) bool {
	jid, err := types.ParseJID(destination + "@s.whatsapp.net")
	if err != nil {
		slog.Error("whatsapp device send: bad destination", "to", destination, "error", err)
		return false
	}

	s.sendComposing(jid)

	_, err = s.client.SendMessage(ctx, jid, &waProto.Message{Conversation: &content})
	if err != nil {
		slog.Error("whatsapp device send failed", "to", destination, "error", err)
		return false
	}
	return true
}

// ReceiveMessage converts a whatsmeow message event into a domain message.
func (s *WhatsAppDeviceService) ReceiveMessage(raw any) (entities.Message, error) {
	evt, ok := raw.(*events.Message)
	if !ok || evt.Message == nil {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}

	var content string
	if evt.Message.Conversation != nil {
		content = *evt.Message.Conversation
	} else if evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil {
		content = *evt.Message.ExtendedTextMessage.Text
	}
	if content == "" {
		return entities.Message{}, interfaces.ErrMalformedPayload
	}

	return entities.Message{
		ID:        "msg_" + uuid.NewString(),
		UserID:    evt.Info.Sender.User,
		Channel:   entities.ChannelWhatsApp,
		Content:   content,
		Timestamp: evt.Info.Timestamp.UTC(),
		Direction: entities.DirectionInbound,
		Metadata: entities.Metadata{
			SenderName: evt.Info.PushName,
			Raw:        map[string]any{"wa_message_id": evt.Info.ID},
		},
	}, nil
}

func (s *WhatsAppDeviceService) OnMessage(handler interfaces.MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// handleEvent feeds inbound device messages to registered handlers. Own
// messages and non-text events are skipped.
func (s *WhatsAppDeviceService) handleEvent(raw interface{}) {
	evt, ok := raw.(*events.Message)
	if !ok || evt.Info.IsFromMe {
		return
	}

	msg, err := s.ReceiveMessage(evt)
	if err != nil {
		return
	}

	s.mu.RLock()
	handlers := make([]interfaces.MessageHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("whatsapp device handler panicked", "panic", r)
				}
			}()
			h(msg)
		}()
	}
}

// sendComposing marks the bot as typing in the chat before a reply lands.
// Best effort.
func (s *WhatsAppDeviceService) sendComposing(jid types.JID) {
	_ = s.client.SendPresence(context.Background(), types.PresenceAvailable)
	_ = s.client.SendChatPresence(context.Background(), jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
	// give the composing state a moment before the reply lands
	time.Sleep(200 * time.Millisecond)
}

package infrastructure

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"project_agent/internal/config"
	"project_agent/internal/interfaces"
)

// The Bot API rejects two concurrent pollers on one token, so the real
// Telegram connection is a process-wide single instance behind this
// accessor. Construction happens outside the lock (a conflict retry alone
// takes seconds); a busy flag makes a second concurrent caller wait and
// retry instead of double-constructing.
var (
	telegramMu       sync.Mutex
	telegramInstance interfaces.ChannelService
	telegramBusy     bool
)

// newTelegramChannel builds the real service, substituting the mock when no
// usable token is configured or construction fails. It never returns nil.
func newTelegramChannel(cfg *config.Config) interfaces.ChannelService {
	if !cfg.HasTelegram() {
		slog.Info("using mock telegram service (no real token configured)")
		return NewMockTelegramService()
	}

	svc, err := NewTelegramService(cfg.TelegramToken)
	if err != nil {
		slog.Warn("real telegram service unavailable, falling back to mock", "error", err)
		return NewMockTelegramService()
	}
	return svc
}

// GetTelegramService returns the process-wide Telegram channel, constructing
// it on first use.
func GetTelegramService(cfg *config.Config) interfaces.ChannelService {
	for {
		telegramMu.Lock()
		if telegramInstance != nil {
			svc := telegramInstance
			telegramMu.Unlock()
			return svc
		}
		if telegramBusy {
			telegramMu.Unlock()
			time.Sleep(100 * time.Millisecond)
			continue
		}
		telegramBusy = true
		telegramMu.Unlock()

		svc := newTelegramChannel(cfg)

		telegramMu.Lock()
		telegramInstance = svc
		telegramBusy = false
		telegramMu.Unlock()
		return svc
	}
}

// ResetTelegramService stops and discards the singleton so the next access
// reconstructs it. Used operationally to clear polling conflicts.
func ResetTelegramService(ctx context.Context) {
	telegramMu.Lock()
	svc := telegramInstance
	telegramInstance = nil
	telegramBusy = false
	telegramMu.Unlock()

	if svc == nil {
		return
	}
	if stopper, ok := svc.(interfaces.Stopper); ok {
		if err := stopper.Stop(ctx); err != nil {
			slog.Error("error stopping telegram service", "error", err)
		}
	}
	slog.Info("telegram service singleton reset")
}

// TelegramInitialized reports whether the singleton currently exists.
func TelegramInitialized() bool {
	telegramMu.Lock()
	defer telegramMu.Unlock()
	return telegramInstance != nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"project_agent/internal/config"
	"project_agent/internal/entities"
	"project_agent/internal/infrastructure"
	"project_agent/internal/interfaces"
	httpapi "project_agent/internal/interfaces/http"
	"project_agent/internal/logging"
	"project_agent/internal/repository"
	"project_agent/internal/usecases"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	// Repositories: Postgres when a real URL is configured, memory otherwise.
	var (
		users         interfaces.UserRepository
		messages      interfaces.MessageRepository
		conversations interfaces.ConversationRepository
	)
	if cfg.HasDatabase() {
		pg, err := infrastructure.NewPostgresClient(cfg.DatabaseURL)
		if err != nil {
			slog.Error("database unavailable, falling back to memory repositories", "error", err)
			users = repository.NewMemoryUserRepository()
			messages = repository.NewMemoryMessageRepository()
			conversations = repository.NewMemoryConversationRepository()
		} else {
			defer pg.Close()
			users = repository.NewPostgresUserRepository(pg.Pool)
			messages = repository.NewPostgresMessageRepository(pg.Pool)
			conversations = repository.NewPostgresConversationRepository(pg.Pool)
			slog.Info("using postgres repositories")
		}
	} else {
		users = repository.NewMemoryUserRepository()
		messages = repository.NewMemoryMessageRepository()
		conversations = repository.NewMemoryConversationRepository()
		slog.Info("using in-memory repositories")
	}

	factory := infrastructure.NewAIFactory(cfg)
	slog.Info("ai engine selected", "engine", factory.Engine().EngineName())

	telegram := infrastructure.GetTelegramService(cfg)
	webchat := infrastructure.NewWebChatService()
	whatsapp := infrastructure.NewWhatsAppBusinessService(cfg)

	var device *infrastructure.WhatsAppDeviceService
	if cfg.WhatsAppDeviceEnabled {
		var err error
		device, err = infrastructure.NewWhatsAppDeviceService(cfg)
		if err != nil {
			slog.Error("whatsapp device client unavailable", "error", err)
		} else if err := device.Connect(); err != nil {
			slog.Error("whatsapp device connect failed", "error", err)
			device = nil
		}
	}

	channels := map[entities.Channel]interfaces.ChannelService{
		entities.ChannelTelegram: telegram,
		entities.ChannelWebChat:  webchat,
		entities.ChannelWhatsApp: whatsapp,
	}
	if device != nil {
		// a paired device replaces the Cloud API for inbound/outbound routing
		channels[entities.ChannelWhatsApp] = device
	}

	processor := usecases.NewMultiChannelProcessor(factory, channels, users, messages, conversations)
	processor.Start()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	handler := httpapi.NewHandler(cfg, processor, factory, webchat, whatsapp, device)
	httpapi.SetupRoutes(r, handler)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := r.Run(addr); err != nil {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	slog.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := processor.Stop(ctx); err != nil {
		slog.Error("shutdown incomplete", "error", err)
	}
}

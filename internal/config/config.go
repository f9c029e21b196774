package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Sentinel values that disable a provider even when the variable is set.
const (
	MockOpenAIKey      = "mock_openai_key"
	MockTelegramToken  = "mock_telegram_token"
	MockWhatsAppToken  = "mock_whatsapp_token"
	MockDatabaseScheme = "mock"
)

type Config struct {
	Port     int
	LogLevel string

	DatabaseURL string

	OpenAIKey   string
	OpenAIModel string

	HuggingFaceKey   string
	HuggingFaceModel string

	OllamaBaseURL string
	OllamaModel   string

	TelegramToken string

	WhatsAppToken         string
	WhatsAppPhoneNumberID string
	WhatsAppVerifyToken   string
	WhatsAppDeviceDir     string
	WhatsAppDeviceEnabled bool
}

// Load reads .env (if present) and builds the configuration from the
// environment. Missing variables fall back to mock/local defaults so the
// process always starts.
func Load() *Config {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	return &Config{
		Port:     envInt("PORT", 3000),
		LogLevel: envOr("LOG_LEVEL", "info"),

		DatabaseURL: envOr("DATABASE_URL", "mock://localhost:5432/agent_db"),

		OpenAIKey:   envOr("OPENAI_API_KEY", MockOpenAIKey),
		OpenAIModel: envOr("OPENAI_MODEL", "gpt-3.5-turbo"),

		HuggingFaceKey:   os.Getenv("HUGGINGFACE_API_KEY"),
		HuggingFaceModel: envOr("HUGGINGFACE_MODEL", "google/flan-t5-small"),

		OllamaBaseURL: os.Getenv("OLLAMA_BASE_URL"),
		OllamaModel:   os.Getenv("OLLAMA_MODEL"),

		TelegramToken: envOr("TELEGRAM_BOT_TOKEN", MockTelegramToken),

		WhatsAppToken:         envOr("WHATSAPP_TOKEN", MockWhatsAppToken),
		WhatsAppPhoneNumberID: envOr("WHATSAPP_PHONE_NUMBER_ID", "mock_phone_number_id"),
		WhatsAppVerifyToken:   envOr("WHATSAPP_VERIFY_TOKEN", "verify_token"),
		WhatsAppDeviceDir:     envOr("WHATSAPP_DEVICE_DIR", "devices"),
		WhatsAppDeviceEnabled: envBool("WHATSAPP_DEVICE_ENABLED", false),
	}
}

// HasOpenAI reports whether a real (non-sentinel) OpenAI key is configured.
func (c *Config) HasOpenAI() bool {
	return c.OpenAIKey != "" && c.OpenAIKey != MockOpenAIKey
}

func (c *Config) HasHuggingFace() bool {
	return c.HuggingFaceKey != ""
}

func (c *Config) HasOllama() bool {
	return c.OllamaBaseURL != "" && c.OllamaModel != ""
}

func (c *Config) HasTelegram() bool {
	return c.TelegramToken != "" && c.TelegramToken != MockTelegramToken
}

func (c *Config) HasWhatsApp() bool {
	return c.WhatsAppToken != "" && c.WhatsAppToken != MockWhatsAppToken
}

// HasDatabase reports whether a real Postgres URL is configured; the
// mock:// scheme selects the in-memory repositories.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != "" && !hasScheme(c.DatabaseURL, MockDatabaseScheme)
}

func hasScheme(url, scheme string) bool {
	prefix := scheme + "://"
	return len(url) >= len(prefix) && url[:len(prefix)] == prefix
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

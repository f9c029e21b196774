package infrastructure

import (
	"log/slog"
	"sync"

	"project_agent/internal/config"
	"project_agent/internal/interfaces"
)

// AIFactory picks the active AI engine from configuration. The choice is
// made lazily on first use and cached until Reset. Construction failures are
// logged and the chain falls through; the Mock terminal never fails, so
// Engine always returns a usable engine.
type AIFactory struct {
	cfg    *config.Config
	mu     sync.Mutex
	engine interfaces.AIEngine
}

func NewAIFactory(cfg *config.Config) *AIFactory {
	return &AIFactory{cfg: cfg}
}

func (f *AIFactory) Engine() interfaces.AIEngine {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.engine == nil {
		f.engine = f.createEngine()
	}
	return f.engine
}

// Reset clears the cached engine so the next Engine call re-evaluates the
// configuration. Used for reconfiguration without a restart, mostly in tests.
func (f *AIFactory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.engine = nil
	slog.Info("ai factory reset")
}

// EngineInfo reports which engine is currently active.
func (f *AIFactory) EngineInfo() map[string]string {
	name := f.Engine().EngineName()
	status := "Real AI"
	if name == "Mock" {
		status = "Mock AI"
	}
	return map[string]string{"type": name, "status": status}
}

func (f *AIFactory) createEngine() interfaces.AIEngine {
	if f.cfg.HasHuggingFace() {
		engine, err := NewHuggingFaceEngine(f.cfg.HuggingFaceKey, f.cfg.HuggingFaceModel)
		if err == nil {
			slog.Info("ai engine selected", "engine", "huggingface")
			return engine
		}
		slog.Error("huggingface engine init failed", "error", err)
	}

	if f.cfg.HasOpenAI() {
		slog.Info("ai engine selected", "engine", "openai", "model", f.cfg.OpenAIModel)
		return NewOpenAIEngine(f.cfg.OpenAIKey, f.cfg.OpenAIModel)
	}

	if f.cfg.HasOllama() {
		slog.Info("ai engine selected", "engine", "ollama", "model", f.cfg.OllamaModel)
		return NewOllamaEngine(f.cfg.OllamaBaseURL, f.cfg.OllamaModel)
	}

	slog.Info("ai engine selected", "engine", "mock")
	return NewMockEngine()
}

package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"project_agent/internal/entities"
)

// OllamaEngine runs prompts against a local inference server.
type OllamaEngine struct {
	baseURL string
	model   string
	http    *http.Client
}

func NewOllamaEngine(baseURL, model string) *OllamaEngine {
	return &OllamaEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// Local models can be slow to load on first call.
		http: &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *OllamaEngine) EngineName() string { return "Ollama" }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (e *OllamaEngine) ProcessMessage(ctx context.Context, text string, user *entities.User, history []entities.Message) entities.AIResponse {
	slog.Debug("ollama processing message", "user", user.ID, "model", e.model)

	content, err := e.generate(ctx, e.buildFullPrompt(text, history))
	if err != nil {
		slog.Error("ollama call failed", "error", err)
		return degradedResponse(apologyFor(err))
	}

	intent := e.ExtractIntent(ctx, text)
	return entities.AIResponse{
		Content:          content,
		Confidence:       0.8,
		Intent:           intent,
		Entities:         e.ExtractEntities(ctx, text),
		SuggestedActions: suggestedActions(intent),
	}
}

func (e *OllamaEngine) AnalyzeSentiment(ctx context.Context, text string) float64 {
	prompt := fmt.Sprintf("%s\n\nTexto: %q\n\nResposta (apenas o número):", sentimentPrompt, text)
	reply, err := e.generate(ctx, prompt)
	if err != nil {
		slog.Error("ollama sentiment failed", "error", err)
		return 0
	}
	return parseSentimentReply(reply)
}

func (e *OllamaEngine) ExtractIntent(ctx context.Context, text string) string {
	prompt := fmt.Sprintf("%s\n\nTexto: %q\n\nResposta (apenas a intenção):", intentPrompt, text)
	reply, err := e.generate(ctx, prompt)
	if err != nil {
		slog.Error("ollama intent failed", "error", err)
		return "default"
	}
	return parseIntentReply(reply)
}

func (e *OllamaEngine) ExtractEntities(ctx context.Context, text string) map[string]any {
	prompt := fmt.Sprintf("%s\n\nTexto: %q\n\nResposta (apenas o JSON):", entitiesPrompt, text)
	reply, err := e.generate(ctx, prompt)
	if err != nil {
		slog.Error("ollama entities failed", "error", err)
		return map[string]any{}
	}
	return parseEntitiesReply(reply)
}

func (e *OllamaEngine) buildFullPrompt(text string, history []entities.Message) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n")
	for _, turn := range buildHistory(history) {
		if turn.Role == "user" {
			sb.WriteString("Cliente: ")
		} else {
			sb.WriteString("Assistente: ")
		}
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("Cliente: ")
	sb.WriteString(text)
	sb.WriteString("\nAssistente:")
	return sb.String()
}

func (e *OllamaEngine) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  e.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &providerError{Status: resp.StatusCode, Msg: string(raw)}
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("ollama decode: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return strings.TrimSpace(out.Response), nil
}

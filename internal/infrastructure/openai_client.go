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

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIEngine talks to the chat-completions API. All provider failures are
// converted into degraded responses inside ProcessMessage.
type OpenAIEngine struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	http        *http.Client
}

func NewOpenAIEngine(apiKey, model string) *OpenAIEngine {
	return &OpenAIEngine{
		baseURL:     defaultOpenAIBaseURL,
		apiKey:      apiKey,
		model:       model,
		maxTokens:   500,
		temperature: 0.7,
		http:        &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *OpenAIEngine) EngineName() string { return "OpenAI" }

type chatCompletionRequest struct {
	Model       string     `json:"model"`
	Messages    []chatTurn `json:"messages"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Temperature float64    `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (e *OpenAIEngine) ProcessMessage(ctx context.Context, text string, user *entities.User, history []entities.Message) entities.AIResponse {
	slog.Debug("openai processing message", "user", user.ID)

	messages := make([]chatTurn, 0, historyWindow+2)
	messages = append(messages, chatTurn{Role: "system", Content: systemPrompt})
	messages = append(messages, buildHistory(history)...)
	messages = append(messages, chatTurn{Role: "user", Content: text})

	content, err := e.chatCompletion(ctx, messages, e.maxTokens, e.temperature)
	if err != nil {
		slog.Error("openai call failed", "error", err)
		return degradedResponse(apologyFor(err))
	}

	intent := e.ExtractIntent(ctx, text)
	return entities.AIResponse{
		Content:          content,
		Confidence:       0.9,
		Intent:           intent,
		Entities:         e.ExtractEntities(ctx, text),
		SuggestedActions: suggestedActions(intent),
	}
}

func (e *OpenAIEngine) AnalyzeSentiment(ctx context.Context, text string) float64 {
	reply, err := e.aux(ctx, sentimentPrompt, text, 10)
	if err != nil {
		slog.Error("openai sentiment failed", "error", err)
		return 0
	}
	return parseSentimentReply(reply)
}

func (e *OpenAIEngine) ExtractIntent(ctx context.Context, text string) string {
	reply, err := e.aux(ctx, intentPrompt, text, 20)
	if err != nil {
		slog.Error("openai intent failed", "error", err)
		return "default"
	}
	return parseIntentReply(reply)
}

func (e *OpenAIEngine) ExtractEntities(ctx context.Context, text string) map[string]any {
	reply, err := e.aux(ctx, entitiesPrompt, text, 100)
	if err != nil {
		slog.Error("openai entities failed", "error", err)
		return map[string]any{}
	}
	return parseEntitiesReply(reply)
}

// aux runs a single low-temperature extraction call.
func (e *OpenAIEngine) aux(ctx context.Context, instruction, text string, maxTokens int) (string, error) {
	return e.chatCompletion(ctx, []chatTurn{
		{Role: "system", Content: instruction},
		{Role: "user", Content: text},
	}, maxTokens, 0.1)
}

func (e *OpenAIEngine) chatCompletion(ctx context.Context, messages []chatTurn, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       e.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &providerError{Status: resp.StatusCode, Msg: string(raw)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(raw)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", &providerError{Status: resp.StatusCode, Msg: msg}
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

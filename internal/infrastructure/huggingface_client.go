package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"project_agent/internal/entities"
)

// HuggingFaceEngine answers from the curated profile knowledge base.
// Construction fails when no API key is configured so the factory can fall
// through to the next provider.
type HuggingFaceEngine struct {
	apiKey string
	model  string
}

func NewHuggingFaceEngine(apiKey, model string) (*HuggingFaceEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("HUGGINGFACE_API_KEY não configurada")
	}
	slog.Info("huggingface engine initialized", "model", model)
	return &HuggingFaceEngine{apiKey: apiKey, model: model}, nil
}

func (e *HuggingFaceEngine) EngineName() string { return "HuggingFace" }

func (e *HuggingFaceEngine) ProcessMessage(_ context.Context, text string, user *entities.User, _ []entities.Message) entities.AIResponse {
	slog.Debug("huggingface processing message", "user", user.ID)

	relevant := SearchKnowledge(text)
	if len(relevant) == 0 {
		return entities.AIResponse{
			Content:          "Desculpe, não tenho informações sobre esse assunto. Posso responder sobre a experiência profissional, tecnologias, projetos, formação acadêmica e contatos do Michael Lourenço.",
			Confidence:       0.3,
			Intent:           "no_info",
			Entities:         map[string]any{},
			SuggestedActions: []string{"ask_about_professional_info", "ask_about_technologies", "ask_about_projects"},
		}
	}

	content := relevant[0].Answer
	if len(relevant) > 1 {
		extra := make([]string, 0, len(relevant)-1)
		for _, r := range relevant[1:] {
			extra = append(extra, r.Answer)
		}
		content = content + " " + strings.Join(extra, " ")
	}

	return entities.AIResponse{
		Content:          content,
		Confidence:       0.9,
		Intent:           "information_request",
		Entities:         map[string]any{},
		SuggestedActions: []string{"ask_follow_up", "request_more_info"},
	}
}

// Sentiment, intent and entity extraction are not backed by a model in this
// engine; neutral defaults keep the contract intact.
func (e *HuggingFaceEngine) AnalyzeSentiment(context.Context, string) float64 { return 0 }

func (e *HuggingFaceEngine) ExtractIntent(context.Context, string) string { return "default" }

func (e *HuggingFaceEngine) ExtractEntities(context.Context, string) map[string]any {
	return map[string]any{}
}


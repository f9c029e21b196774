package infrastructure

import (
	"context"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"

	"project_agent/internal/entities"
)

// The intent checks run in a fixed priority order; when a message matches
// keywords from more than one category, the earlier category wins. This
// ordering is a behavioral contract, not an accident.
var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{"greeting", []string{"olá", "ola", "oi", "bom dia", "boa tarde", "boa noite"}},
	{"product_info", []string{"produto", "serviço", "servico", "o que vocês fazem", "o que voces fazem"}},
	{"pricing", []string{"preço", "preco", "valor", "quanto custa"}},
	{"contact", []string{"contato", "telefone", "email", "falar"}},
}

var (
	positiveWords = []string{"bom", "ótimo", "excelente", "gosto", "legal", "interessante", "obrigado"}
	negativeWords = []string{"ruim", "péssimo", "não gosto", "problema", "difícil", "caro"}
)

var (
	phonePattern = regexp.MustCompile(`(\+55\s?)?\(?(\d{2})\)?\s?(\d{4,5})-?(\d{4})`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	moneyPattern = regexp.MustCompile(`R?\$\s*(\d+[.,]\d{2}|\d+)|\d+[.,]\d{2}`)
)

var mockResponses = map[string][]string{
	"greeting": {
		"Olá! Como posso ajudá-lo hoje?",
		"Oi! Seja bem-vindo. Em que posso ser útil?",
		"Olá! Estou aqui para ajudá-lo com suas dúvidas sobre nossos produtos e serviços.",
	},
	"product_info": {
		"Temos uma ampla variedade de produtos de alta qualidade. Pode me dizer qual área específica te interessa?",
		"Nossos produtos são conhecidos pela excelência e durabilidade. Qual categoria você gostaria de conhecer?",
		"Oferecemos soluções personalizadas para diferentes necessidades. Que tipo de produto você está procurando?",
	},
	"pricing": {
		"Nossos preços variam conforme o produto e quantidade. Posso te ajudar a encontrar a melhor opção para seu orçamento.",
		"Temos diferentes faixas de preço para atender diversos perfis. Qual é o seu orçamento aproximado?",
		"Oferecemos condições especiais para compras em quantidade. Gostaria de saber mais sobre nossos preços?",
	},
	"contact": {
		"Para falar com nosso time comercial, você pode ligar para (11) 99999-9999 ou enviar um email para contato@michaellourenco.com",
		"Nossa equipe está disponível de segunda a sexta, das 8h às 18h. Como prefere entrar em contato?",
		"Posso te conectar com um de nossos especialistas. Qual é a melhor forma de contato para você?",
	},
	"default": {
		"Desculpe, não entendi completamente sua pergunta. Pode reformular ou me dar mais detalhes?",
		"Vou te ajudar a encontrar a informação que precisa. Pode ser mais específico?",
		"Não tenho certeza sobre o que você está perguntando. Pode explicar melhor?",
	},
}

// MockEngine answers from keyword heuristics alone. It is the terminal
// fallback of the provider chain and must never fail.
type MockEngine struct{}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

func (e *MockEngine) EngineName() string { return "Mock" }

func (e *MockEngine) ProcessMessage(ctx context.Context, text string, user *entities.User, history []entities.Message) entities.AIResponse {
	slog.Debug("mock engine processing message", "user", user.ID, "content", text)

	intent := e.ExtractIntent(ctx, text)
	entitiesFound := e.ExtractEntities(ctx, text)

	responses, ok := mockResponses[intent]
	if !ok {
		responses = mockResponses["default"]
	}
	content := responses[rand.Intn(len(responses))]

	return entities.AIResponse{
		Content:          content,
		Confidence:       0.7 + rand.Float64()*0.3,
		Intent:           intent,
		Entities:         entitiesFound,
		SuggestedActions: suggestedActions(intent),
	}
}

func (e *MockEngine) AnalyzeSentiment(_ context.Context, text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score += 0.2
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score -= 0.2
		}
	}
	return clampSentiment(score)
}

func (e *MockEngine) ExtractIntent(_ context.Context, text string) string {
	lower := strings.ToLower(text)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.intent
			}
		}
	}
	return "default"
}

func (e *MockEngine) ExtractEntities(_ context.Context, text string) map[string]any {
	found := map[string]any{}
	if m := phonePattern.FindString(text); m != "" {
		found["phone"] = m
	}
	if m := emailPattern.FindString(text); m != "" {
		found["email"] = m
	}
	if m := moneyPattern.FindString(text); m != "" {
		found["money"] = m
	}
	return found
}

func suggestedActions(intent string) []string {
	switch intent {
	case "greeting":
		return []string{"ask_about_products", "ask_about_services", "provide_contact"}
	case "product_info":
		return []string{"provide_pricing", "schedule_consultation", "send_catalog"}
	case "pricing":
		return []string{"schedule_consultation", "provide_quote", "discuss_options"}
	case "contact":
		return []string{"provide_phone", "provide_email", "schedule_call"}
	case "support":
		return []string{"escalate_to_support", "provide_contact", "create_ticket"}
	case "complaint":
		return []string{"apologize", "escalate_to_support", "provide_contact"}
	case "feedback":
		return []string{"thank_user", "escalate_to_management", "request_details"}
	default:
		return []string{"ask_clarification", "provide_contact", "suggest_alternatives"}
	}
}

func clampSentiment(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

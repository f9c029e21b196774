package infrastructure

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"project_agent/internal/entities"
)

// systemPrompt frames every remote provider call. The agent answers questions
// about the professional profile it fronts.
const systemPrompt = `Você é um assistente virtual especializado da Michael Lourenço, uma empresa de tecnologia e consultoria.

SEU PAPEL:
- Responder perguntas sobre produtos e serviços da empresa
- Fornecer informações sobre preços e condições
- Conectar clientes com o time comercial quando necessário
- Manter um tom profissional mas amigável

INFORMAÇÕES DA EMPRESA:
- Nome: Michael Lourenço
- Área: Tecnologia e Consultoria
- Contato: (11) 99999-9999 / contato@michaellourenco.com
- Horário: Segunda a sexta, 8h às 18h

DIRETRIZES:
- Sempre seja cordial e profissional
- Se não souber algo específico, sugira falar com o time comercial
- Mantenha respostas concisas mas informativas

Lembre-se: Você é o primeiro contato do cliente com a empresa, então seja sempre útil e profissional.`

const (
	sentimentPrompt = "Analise o sentimento do texto e retorne apenas um número entre -1 (muito negativo) e 1 (muito positivo)."
	intentPrompt    = "Analise a intenção do usuário e retorne apenas uma das seguintes opções: greeting, product_info, pricing, contact, support, complaint, feedback, default"
	entitiesPrompt  = `Extraia entidades do texto e retorne apenas um JSON com as entidades encontradas. Exemplo: {"phone": "11999999999", "email": "user@example.com", "product": "software"}`
)

// historyWindow bounds how much conversation context is sent to a provider.
const historyWindow = 10

var validIntents = map[string]bool{
	"greeting": true, "product_info": true, "pricing": true, "contact": true,
	"support": true, "complaint": true, "feedback": true, "default": true,
}

// providerError is a remote AI failure carrying the HTTP status, used to pick
// the user-facing apology.
type providerError struct {
	Status int
	Msg    string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("provider http %d: %s", e.Status, e.Msg)
}

// apologyFor maps a provider failure to the text the end user sees. The user
// always receives readable text, never a raw error.
func apologyFor(err error) string {
	var pe *providerError
	if errors.As(err, &pe) {
		switch {
		case pe.Status == 429:
			return "Desculpe, atingi meu limite de uso por hoje. Pode tentar novamente amanhã ou entrar em contato diretamente pelo telefone (11) 99999-9999."
		case pe.Status == 401:
			return "Desculpe, há um problema com minha configuração. Entre em contato com o suporte técnico."
		case pe.Status >= 500:
			return "Desculpe, o serviço de IA está temporariamente indisponível. Tente novamente em alguns minutos."
		}
	}
	return "Desculpe, estou enfrentando dificuldades técnicas no momento."
}

// degradedResponse is the hard-contract fallback: a channel must always get
// some text to relay back.
func degradedResponse(content string) entities.AIResponse {
	return entities.AIResponse{
		Content:          content,
		Confidence:       0.5,
		Intent:           "error",
		Entities:         map[string]any{},
		SuggestedActions: []string{"contact_support"},
	}
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildHistory converts the recent conversation window (oldest to newest)
// into provider chat turns.
func buildHistory(history []entities.Message) []chatTurn {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	turns := make([]chatTurn, 0, len(history))
	for _, msg := range history {
		role := "assistant"
		if msg.Direction == entities.DirectionInbound {
			role = "user"
		}
		turns = append(turns, chatTurn{Role: role, Content: msg.Content})
	}
	return turns
}

// parseSentimentReply clamps a provider's numeric sentiment reply, defaulting
// to neutral when it is not a number.
func parseSentimentReply(reply string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0
	}
	return clampSentiment(v)
}

// parseIntentReply validates a provider's intent reply against the closed
// vocabulary.
func parseIntentReply(reply string) string {
	intent := strings.ToLower(strings.TrimSpace(reply))
	if validIntents[intent] {
		return intent
	}
	return "default"
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseEntitiesReply pulls a JSON object out of a provider reply, tolerating
// surrounding prose. Parse failure yields an empty map.
func parseEntitiesReply(reply string) map[string]any {
	raw := jsonObjectPattern.FindString(reply)
	if raw == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

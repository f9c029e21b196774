package infrastructure

import (
	"math"
	"testing"

	"project_agent/internal/entities"
)

func TestParseSentimentReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  float64
	}{
		{"plain number", "0.5", 0.5},
		{"negative", "-0.3", -0.3},
		{"whitespace", "  0.8\n", 0.8},
		{"not a number", "muito positivo", 0},
		{"clamped high", "2", 1},
		{"clamped low", "-5", -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := parseSentimentReply(tc.reply); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("parseSentimentReply(%q) = %v, want %v", tc.reply, got, tc.want)
			}
		})
	}
}

func TestParseIntentReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"valid", "pricing", "pricing"},
		{"uppercase", "GREETING", "greeting"},
		{"padded", " contact \n", "contact"},
		{"unknown", "banana", "default"},
		{"empty", "", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := parseIntentReply(tc.reply); got != tc.want {
				t.Errorf("parseIntentReply(%q) = %q, want %q", tc.reply, got, tc.want)
			}
		})
	}
}

func TestParseEntitiesReply(t *testing.T) {
	t.Parallel()

	t.Run("json with surrounding prose", func(t *testing.T) {
		t.Parallel()
		got := parseEntitiesReply(`Aqui estão as entidades: {"email": "a@b.com"} espero ter ajudado`)
		if got["email"] != "a@b.com" {
			t.Errorf("email = %v, want a@b.com", got["email"])
		}
	})

	t.Run("no json", func(t *testing.T) {
		t.Parallel()
		got := parseEntitiesReply("nenhuma entidade encontrada")
		if len(got) != 0 {
			t.Errorf("expected empty map, got %v", got)
		}
	})

	t.Run("broken json", func(t *testing.T) {
		t.Parallel()
		got := parseEntitiesReply(`{"email": `)
		if len(got) != 0 {
			t.Errorf("expected empty map, got %v", got)
		}
	})
}

func TestBuildHistoryWindow(t *testing.T) {
	t.Parallel()

	history := make([]entities.Message, 0, 14)
	for i := 0; i < 14; i++ {
		dir := entities.DirectionInbound
		if i%2 == 1 {
			dir = entities.DirectionOutbound
		}
		history = append(history, entities.Message{Content: "m", Direction: dir})
	}

	turns := buildHistory(history)
	if len(turns) != historyWindow {
		t.Fatalf("len(turns) = %d, want %d", len(turns), historyWindow)
	}
	// 14 messages, window keeps the last 10 starting at index 4 (inbound)
	if turns[0].Role != "user" {
		t.Errorf("turns[0].Role = %q, want user", turns[0].Role)
	}
	if turns[1].Role != "assistant" {
		t.Errorf("turns[1].Role = %q, want assistant", turns[1].Role)
	}
}

func TestApologyFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"quota exceeded", 429, "Desculpe, atingi meu limite de uso por hoje. Pode tentar novamente amanhã ou entrar em contato diretamente pelo telefone (11) 99999-9999."},
		{"bad credentials", 401, "Desculpe, há um problema com minha configuração. Entre em contato com o suporte técnico."},
		{"server error", 503, "Desculpe, o serviço de IA está temporariamente indisponível. Tente novamente em alguns minutos."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := apologyFor(&providerError{Status: tc.status, Msg: "x"})
			if got != tc.want {
				t.Errorf("apologyFor(%d) = %q, want %q", tc.status, got, tc.want)
			}
		})
	}

	t.Run("generic error", func(t *testing.T) {
		t.Parallel()
		got := apologyFor(errDummy{})
		if got != "Desculpe, estou enfrentando dificuldades técnicas no momento." {
			t.Errorf("unexpected generic apology: %q", got)
		}
	})
}

type errDummy struct{}

func (errDummy) Error() string { return "dummy" }

func TestDegradedResponse(t *testing.T) {
	t.Parallel()

	resp := degradedResponse("texto")
	if resp.Content != "texto" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", resp.Confidence)
	}
	if resp.Intent != "error" {
		t.Errorf("Intent = %q, want error", resp.Intent)
	}
	if resp.Entities == nil {
		t.Error("Entities must not be nil")
	}
}

package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"project_agent/internal/entities"
)

func TestOllamaProcessMessage(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	replies := []string{"  Somos uma consultoria de tecnologia. ", "product_info", "{}"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream must be false")
		}
		if req.Model != "llama2" {
			t.Errorf("model = %q", req.Model)
		}

		n := calls.Add(1) - 1
		if int(n) >= len(replies) {
			n = int64(len(replies) - 1)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: replies[n], Done: true})
	}))
	defer srv.Close()

	engine := NewOllamaEngine(srv.URL+"/", "llama2")

	resp := engine.ProcessMessage(context.Background(), "O que vocês fazem?", &entities.User{ID: "u1"}, []entities.Message{
		{Content: "oi", Direction: entities.DirectionInbound},
		{Content: "Olá!", Direction: entities.DirectionOutbound},
	})

	if resp.Content != "Somos uma consultoria de tecnologia." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", resp.Confidence)
	}
	if resp.Intent != "product_info" {
		t.Errorf("Intent = %q, want product_info", resp.Intent)
	}
}

func TestOllamaBuildFullPrompt(t *testing.T) {
	t.Parallel()

	engine := NewOllamaEngine("http://localhost:11434", "llama2")
	prompt := engine.buildFullPrompt("Qual o preço?", []entities.Message{
		{Content: "oi", Direction: entities.DirectionInbound},
		{Content: "Olá!", Direction: entities.DirectionOutbound},
	})

	if !strings.Contains(prompt, "Cliente: oi\n") {
		t.Error("prompt missing inbound transcript line")
	}
	if !strings.Contains(prompt, "Assistente: Olá!\n") {
		t.Error("prompt missing outbound transcript line")
	}
	if !strings.HasSuffix(prompt, "Cliente: Qual o preço?\nAssistente:") {
		t.Errorf("prompt must end with the current turn, got %q", prompt[len(prompt)-60:])
	}
}

func TestOllamaProviderFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	engine := NewOllamaEngine(srv.URL, "llama2")
	resp := engine.ProcessMessage(context.Background(), "Olá", &entities.User{ID: "u1"}, nil)

	if resp.Intent != "error" {
		t.Errorf("Intent = %q, want error", resp.Intent)
	}
	if !strings.Contains(resp.Content, "temporariamente indisponível") {
		t.Errorf("Content = %q, want unavailability apology", resp.Content)
	}
}

package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/zap"

	"typing-chat/internal/domain"
	"typing-chat/internal/llm"
)

func TestCompletionGatewayCompletePrompt(t *testing.T) {
	t.Run("prompt vacio es invalid_request", func(t *testing.T) {
		client := &llm.MockClient{Response: "x"}
		gw := NewCompletionGateway(client, PromptBuilder{}, zap.NewNop())

		_, err := gw.CompletePrompt(context.Background(), "")
		assertGatewayError(t, err, domain.GatewayInvalidRequest, "Prompt is required")
		if len(client.Prompts()) != 0 {
			t.Fatalf("expected no upstream call")
		}
	})

	t.Run("prompt de espacios se reenvia", func(t *testing.T) {
		client := &llm.MockClient{Response: "ok"}
		gw := NewCompletionGateway(client, PromptBuilder{}, zap.NewNop())

		text, err := gw.CompletePrompt(context.Background(), "   ")
		if err != nil {
			t.Fatalf("expected whitespace prompt to be forwarded, got %v", err)
		}
		if text != "ok" || len(client.Prompts()) != 1 {
			t.Fatalf("expected one upstream call, got text=%q calls=%d", text, len(client.Prompts()))
		}
	})

	t.Run("sin credencial falla rapido", func(t *testing.T) {
		gw := NewCompletionGateway(nil, PromptBuilder{}, zap.NewNop())
		_, err := gw.CompletePrompt(context.Background(), `[{"role":"user","content":"hi"}]`)
		assertGatewayError(t, err, domain.GatewayConfiguration, "API key not configured")
	})

	t.Run("prompt vacio gana sobre credencial faltante", func(t *testing.T) {
		gw := NewCompletionGateway(nil, PromptBuilder{}, zap.NewNop())
		_, err := gw.CompletePrompt(context.Background(), "")
		assertGatewayError(t, err, domain.GatewayInvalidRequest, "Prompt is required")
	})

	t.Run("exito envuelve el historial en el prompt", func(t *testing.T) {
		client := &llm.MockClient{Response: `{"messages":[]}`}
		gw := NewCompletionGateway(client, PromptBuilder{Persona: domain.Persona{Name: "Studio"}}, zap.NewNop())

		history := `[{"role":"user","content":"What do you do?"}]`
		text, err := gw.CompletePrompt(context.Background(), history)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if text != `{"messages":[]}` {
			t.Fatalf("expected raw text passthrough, got %q", text)
		}
		prompts := client.Prompts()
		if len(prompts) != 1 {
			t.Fatalf("expected exactly one upstream call, got %d", len(prompts))
		}
		if !strings.Contains(prompts[0], history) || !strings.Contains(prompts[0], "You are Studio.") {
			t.Fatalf("prompt missing history or persona: %q", prompts[0])
		}
	})
}

func TestCompletionGatewayClassifiesUpstreamErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   domain.GatewayErrorKind
		detail string
	}{
		{"401", &llm.StatusError{StatusCode: http.StatusUnauthorized, Message: "bad key"}, domain.GatewayUnauthenticated, "Invalid API key"},
		{"429", &llm.StatusError{StatusCode: http.StatusTooManyRequests}, domain.GatewayRateLimited, "Rate limit exceeded"},
		{"404", &llm.StatusError{StatusCode: http.StatusNotFound}, domain.GatewayNotFound, "Model not found"},
		{"500", &llm.StatusError{StatusCode: http.StatusInternalServerError, Message: "overloaded"}, domain.GatewayUpstreamFailure, "Server error: overloaded"},
		{"red", errors.New("dial tcp: connection refused"), domain.GatewayUpstreamFailure, "Server error: dial tcp: connection refused"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &llm.MockClient{Err: tc.err}
			gw := NewCompletionGateway(client, PromptBuilder{}, zap.NewNop())

			_, err := gw.CompletePrompt(context.Background(), "hola")
			assertGatewayError(t, err, tc.kind, tc.detail)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected cause to be preserved")
			}
			if len(client.Prompts()) != 1 {
				t.Fatalf("expected a single attempt, got %d", len(client.Prompts()))
			}
		})
	}
}

func TestCompletionGatewayComplete_SerializesHistory(t *testing.T) {
	client := &llm.MockClient{Response: "ok"}
	gw := NewCompletionGateway(client, PromptBuilder{}, zap.NewNop())

	history := domain.ConversationContext{
		{Role: "assistant", Content: "Hello there."},
		{Role: "user", Content: "What do you do?"},
	}
	if _, err := gw.Complete(context.Background(), history); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := `[{"role":"assistant","content":"Hello there."},{"role":"user","content":"What do you do?"}]`
	if !strings.Contains(client.Prompts()[0], want) {
		t.Fatalf("expected serialized transcript in prompt, got %q", client.Prompts()[0])
	}
}

func assertGatewayError(t *testing.T, err error, kind domain.GatewayErrorKind, detail string) {
	t.Helper()
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *domain.GatewayError, got %v", err)
	}
	if gwErr.Kind != kind || gwErr.Detail != detail {
		t.Fatalf("expected %s %q, got %s %q", kind, detail, gwErr.Kind, gwErr.Detail)
	}
}

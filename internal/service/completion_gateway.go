package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"typing-chat/internal/domain"
	"typing-chat/internal/llm"
)

const (
	msgPromptRequired    = "Prompt is required"
	msgAPIKeyMissing     = "API key not configured"
	msgInvalidAPIKey     = "Invalid API key"
	msgRateLimitExceeded = "Rate limit exceeded"
	msgModelNotFound     = "Model not found"
)

// ExchangeRecorder persiste una fila por llamada proxyada.
type ExchangeRecorder interface {
	Create(ctx context.Context, exchange domain.Exchange) error
}

// CompletionGateway es el borde de red hacia el proveedor: valida, arma el prompt
// completo, llama una sola vez (sin reintentos) y clasifica los errores.
type CompletionGateway struct {
	client  llm.LLMClient
	prompts PromptBuilder
	logger  *zap.Logger
}

// NewCompletionGateway recibe client nil cuando falta la credencial; cada llamada falla rapido.
func NewCompletionGateway(client llm.LLMClient, prompts PromptBuilder, logger *zap.Logger) *CompletionGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionGateway{
		client:  client,
		prompts: prompts,
		logger:  logger,
	}
}

// CompletePrompt atiende el cuerpo {"prompt"} del endpoint proxy.
func (g *CompletionGateway) CompletePrompt(ctx context.Context, prompt string) (string, error) {
	// Solo el prompt vacio es invalido; un prompt de espacios se reenvia tal cual.
	if prompt == "" {
		return "", domain.NewGatewayError(domain.GatewayInvalidRequest, msgPromptRequired)
	}
	if g.client == nil {
		g.logger.Error("llm credential is not set")
		return "", domain.NewGatewayError(domain.GatewayConfiguration, msgAPIKeyMissing)
	}

	text, err := g.client.Generate(ctx, g.prompts.Build(prompt))
	if err != nil {
		gwErr := classifyUpstreamError(err)
		g.logger.Warn("upstream call failed", zap.String("kind", string(gwErr.Kind)), zap.Error(err))
		return "", gwErr
	}
	return text, nil
}

// Complete permite usar el gateway en proceso, sin pasar por HTTP.
func (g *CompletionGateway) Complete(ctx context.Context, history domain.ConversationContext) (string, error) {
	prompt, err := history.Transcript()
	if err != nil {
		return "", &domain.GatewayError{Kind: domain.GatewayInvalidRequest, Detail: "could not serialize conversation", Err: err}
	}
	return g.CompletePrompt(ctx, prompt)
}

func classifyUpstreamError(err error) *domain.GatewayError {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized:
			return &domain.GatewayError{Kind: domain.GatewayUnauthenticated, Detail: msgInvalidAPIKey, Err: err}
		case http.StatusTooManyRequests:
			return &domain.GatewayError{Kind: domain.GatewayRateLimited, Detail: msgRateLimitExceeded, Err: err}
		case http.StatusNotFound:
			return &domain.GatewayError{Kind: domain.GatewayNotFound, Detail: msgModelNotFound, Err: err}
		}
		return &domain.GatewayError{Kind: domain.GatewayUpstreamFailure, Detail: "Server error: " + statusErr.Message, Err: err}
	}
	return &domain.GatewayError{Kind: domain.GatewayUpstreamFailure, Detail: fmt.Sprintf("Server error: %v", err), Err: err}
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// AnthropicClient implementa LLMClient sobre la Messages API de Anthropic.
// El SDK pone x-api-key y anthropic-version; los reintentos quedan apagados.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *zap.Logger
}

func NewAnthropicClient(baseURL, apiKey, model string, maxTokens int, timeout time.Duration, logger *zap.Logger) *AnthropicClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		logger:    logger,
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	// El cuerpo crudo se decodifica aca: un 200 que no es JSON termina en el texto de fallback.
	var raw []byte
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}, option.WithResponseBodyInto(&raw))
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			c.logger.Warn("anthropic error status", zap.Int("status", apiErr.StatusCode), zap.String("body", apiErr.RawJSON()))
			return "", &StatusError{
				StatusCode: apiErr.StatusCode,
				Message:    errorMessage([]byte(apiErr.RawJSON()), apiErr.Error()),
			}
		}
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	reply := decodeReply(raw)
	if reply.shape == shapeUnrecognized {
		c.logger.Warn("unexpected anthropic response format", zap.ByteString("body", raw))
	}
	return reply.Text(), nil
}

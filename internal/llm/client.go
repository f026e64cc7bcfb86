package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LLMClient define la interfaz para generar respuestas con un LLM.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient implementa LLMClient contra una API chat completions OpenAI-compatible.
type OpenAIClient struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	logger    *zap.Logger
}

// NewOpenAIClient construye un cliente HTTP apuntando a la API de chat completions.
func NewOpenAIClient(baseURL, apiKey, model string, maxTokens int, timeout time.Duration, logger *zap.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("llm error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody, http.StatusText(resp.StatusCode)),
		}
	}

	reply := decodeReply(respBody)
	if reply.shape == shapeUnrecognized {
		c.logger.Warn("unexpected llm response format", zap.ByteString("body", respBody))
	}
	return reply.Text(), nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

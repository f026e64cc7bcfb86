package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"typing-chat/internal/domain"
)

var errMissingResponse = errors.New("proxy response without response field")

// ProxyClient es el gateway del lado cliente: serializa el historial y llama al endpoint proxy.
type ProxyClient struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewProxyClient(endpoint string, timeout time.Duration, logger *zap.Logger) *ProxyClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Complete envia el contexto como {"prompt"} y devuelve el texto crudo del modelo.
// Todos los errores salen como *domain.GatewayError.
func (c *ProxyClient) Complete(ctx context.Context, history domain.ConversationContext) (string, error) {
	prompt, err := history.Transcript()
	if err != nil {
		return "", &domain.GatewayError{Kind: domain.GatewayInvalidRequest, Detail: "could not serialize conversation", Err: err}
	}

	bodyBytes, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", &domain.GatewayError{Kind: domain.GatewayInvalidRequest, Detail: "could not encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &domain.GatewayError{Kind: domain.GatewayInvalidRequest, Detail: "could not build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &domain.GatewayError{Kind: domain.GatewayUpstreamFailure, Detail: "proxy unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.GatewayError{Kind: domain.GatewayUpstreamFailure, Detail: "could not read proxy response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		detail := errorMessage(respBody, http.StatusText(resp.StatusCode))
		c.logger.Warn("proxy error status", zap.Int("status", resp.StatusCode), zap.String("error", detail))
		return "", &domain.GatewayError{Kind: kindForStatus(resp.StatusCode), Detail: detail}
	}

	var out struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &domain.GatewayError{Kind: domain.GatewayUpstreamFailure, Detail: "unexpected proxy response", Err: fmt.Errorf("decode proxy response: %w", err)}
	}
	if out.Response == nil {
		return "", &domain.GatewayError{Kind: domain.GatewayUpstreamFailure, Detail: "unexpected proxy response", Err: errMissingResponse}
	}
	return *out.Response, nil
}

func kindForStatus(status int) domain.GatewayErrorKind {
	switch status {
	case http.StatusBadRequest:
		return domain.GatewayInvalidRequest
	case http.StatusUnauthorized:
		return domain.GatewayUnauthenticated
	case http.StatusNotFound:
		return domain.GatewayNotFound
	case http.StatusMethodNotAllowed:
		return domain.GatewayMethodNotAllowed
	case http.StatusTooManyRequests:
		return domain.GatewayRateLimited
	default:
		return domain.GatewayUpstreamFailure
	}
}

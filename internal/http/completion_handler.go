package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"typing-chat/internal/domain"
	"typing-chat/internal/service"
)

const recordTimeout = 5 * time.Second

// CompletionHandler expone el gateway de completions como endpoint HTTP.
type CompletionHandler struct {
	logger   *zap.Logger
	gateway  *service.CompletionGateway
	recorder service.ExchangeRecorder
}

// NewCompletionHandler crea el handler; recorder puede ser nil si no hay base de datos.
func NewCompletionHandler(
	logger *zap.Logger,
	gateway *service.CompletionGateway,
	recorder service.ExchangeRecorder,
) *CompletionHandler {
	return &CompletionHandler{
		logger:   logger,
		gateway:  gateway,
		recorder: recorder,
	}
}

// Complete maneja OPTIONS y POST sobre el path de completions.
func (h *CompletionHandler) Complete(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodOptions:
		c.Status(http.StatusOK)
		return
	case http.MethodPost:
	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	start := time.Now()
	var req struct {
		Prompt string `json:"prompt"`
	}
	// Un body vacio equivale a {} y termina en "Prompt is required".
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid completion request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		h.record(c, start, req.Prompt, "", http.StatusBadRequest, domain.GatewayInvalidRequest)
		return
	}

	text, err := h.gateway.CompletePrompt(c.Request.Context(), req.Prompt)
	if err != nil {
		status, kind, detail := statusForGatewayError(err)
		c.JSON(status, gin.H{"error": detail})
		h.record(c, start, req.Prompt, "", status, kind)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": text})
	h.record(c, start, req.Prompt, text, http.StatusOK, "")
}

// statusForGatewayError traduce la clasificacion del gateway al status HTTP de la respuesta.
func statusForGatewayError(err error) (int, domain.GatewayErrorKind, string) {
	var gwErr *domain.GatewayError
	if !errors.As(err, &gwErr) {
		return http.StatusInternalServerError, domain.GatewayUpstreamFailure, "Server error: " + err.Error()
	}

	switch gwErr.Kind {
	case domain.GatewayInvalidRequest:
		return http.StatusBadRequest, gwErr.Kind, gwErr.Detail
	case domain.GatewayUnauthenticated:
		return http.StatusUnauthorized, gwErr.Kind, gwErr.Detail
	case domain.GatewayRateLimited:
		return http.StatusTooManyRequests, gwErr.Kind, gwErr.Detail
	case domain.GatewayNotFound:
		return http.StatusNotFound, gwErr.Kind, gwErr.Detail
	case domain.GatewayMethodNotAllowed:
		return http.StatusMethodNotAllowed, gwErr.Kind, gwErr.Detail
	default:
		return http.StatusInternalServerError, gwErr.Kind, gwErr.Detail
	}
}

func (h *CompletionHandler) record(c *gin.Context, start time.Time, prompt, response string, status int, kind domain.GatewayErrorKind) {
	if h.recorder == nil {
		return
	}
	exchange := domain.Exchange{
		ID:            uuid.NewString(),
		ClientIP:      c.ClientIP(),
		PromptChars:   len([]rune(prompt)),
		ResponseChars: len([]rune(response)),
		Status:        status,
		ErrorKind:     string(kind),
		LatencyMS:     time.Since(start).Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}

	// El registro no bloquea la respuesta al cliente.
	go func(ex domain.Exchange) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := h.recorder.Create(ctx, ex); err != nil {
			h.logger.Warn("record exchange failed", zap.Error(err), zap.String("exchange_id", ex.ID))
		}
	}(exchange)
}

package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"typing-chat/internal/service"
)

// NewRouter configura el router de Gin con middlewares y el endpoint de completions.
func NewRouter(
	logger *zap.Logger,
	completionPath string,
	completionH *CompletionHandler,
	limiter service.RateLimiter,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, CORS y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), corsMiddleware(), jsonContentTypeMiddleware())

	// El handler resuelve el metodo: OPTIONS responde el preflight, el resto que no sea POST es 405.
	r.Any(completionPath, rateLimitMiddleware(limiter), completionH.Complete)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsMiddleware abre el endpoint a cualquier origen; va en todas las respuestas, errores incluidos.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		c.Next()
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses con cuerpo.
// El preflight OPTIONS responde sin cuerpo y queda sin Content-Type.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodOptions {
			c.Writer.Header().Set("Content-Type", "application/json")
		}
		c.Next()
	}
}

// rateLimitMiddleware limita los POST por IP de cliente. limiter nil deja pasar todo.
func rateLimitMiddleware(limiter service.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

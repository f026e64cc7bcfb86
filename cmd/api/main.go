package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"typing-chat/internal/config"
	"typing-chat/internal/db"
	apihttp "typing-chat/internal/http"
	"typing-chat/internal/llm"
	"typing-chat/internal/repository"
	"typing-chat/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	persona, err := config.LoadPersona(cfg.PersonaFile)
	if err != nil {
		logger.Fatal("persona load", zap.Error(err))
	}

	gateway := service.NewCompletionGateway(newLLMClient(cfg, logger), service.PromptBuilder{Persona: persona}, logger)

	var recorder service.ExchangeRecorder
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		recorder = repository.NewPgExchangeRepository(pool)
	} else {
		logger.Info("DATABASE_URL not set, exchange log disabled")
	}

	limiter := service.NewMemoryRateLimiter(cfg.RateLimitPerMinute)
	if cfg.RedisAddr != "" && cfg.RateLimitPerMinute > 0 {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
		} else {
			limiter = service.NewRedisRateLimiter(redisClient, cfg.CompletionPath, time.Minute, cfg.RateLimitPerMinute)
		}
		cancel()
	}

	completionHandler := apihttp.NewCompletionHandler(logger, gateway, recorder)
	router := apihttp.NewRouter(logger, cfg.CompletionPath, completionHandler, limiter)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("path", cfg.CompletionPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

// newLLMClient devuelve nil si falta la credencial: el gateway responde 500 en cada request
// en vez de impedir el arranque.
func newLLMClient(cfg *config.Config, logger *zap.Logger) llm.LLMClient {
	apiKey := cfg.ProviderAPIKey()
	if apiKey == "" {
		logger.Warn("llm credential not configured", zap.String("provider", cfg.LLMProvider))
		return nil
	}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.LLMBaseURL, apiKey, cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTimeout(), logger)
	case config.ProviderAnthropic:
		return llm.NewAnthropicClient(cfg.LLMBaseURL, apiKey, cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTimeout(), logger)
	default:
		logger.Warn("unknown llm provider, falling back to anthropic", zap.String("provider", cfg.LLMProvider))
		return llm.NewAnthropicClient(cfg.LLMBaseURL, apiKey, cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTimeout(), logger)
	}
}

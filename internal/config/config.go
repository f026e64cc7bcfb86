package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config centraliza la configuración del proxy y del cliente de chat.
type Config struct {
	HTTPPort           string  `env:"HTTP_PORT" envDefault:"8080"`
	CompletionPath     string  `env:"COMPLETION_PATH" envDefault:"/api/complete"`
	LLMProvider        string  `env:"LLM_PROVIDER" envDefault:"anthropic"`
	AnthropicAPIKey    string  `env:"ANTHROPIC_API_KEY"`
	LLMAPIKey          string  `env:"LLM_API_KEY"`
	LLMBaseURL         string  `env:"LLM_BASE_URL"`
	LLMModel           string  `env:"LLM_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	LLMMaxTokens       int     `env:"LLM_MAX_TOKENS" envDefault:"1000"`
	LLMTimeoutSeconds  int     `env:"LLM_TIMEOUT_SECONDS" envDefault:"60"`
	PersonaFile        string  `env:"PERSONA_FILE"`
	DatabaseURL        string  `env:"DATABASE_URL"`
	RedisAddr          string  `env:"REDIS_ADDR"`
	RedisPassword      string  `env:"REDIS_PASSWORD"`
	RedisDB            int     `env:"REDIS_DB" envDefault:"0"`
	RateLimitPerMinute int     `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	ProxyURL           string  `env:"PROXY_URL"`
	TypingSpeed        float64 `env:"TYPING_SPEED" envDefault:"1"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ProviderAPIKey devuelve la credencial del proveedor seleccionado; vacia si falta.
func (c *Config) ProviderAPIKey() string {
	if c.LLMProvider == ProviderOpenAI {
		return c.LLMAPIKey
	}
	return c.AnthropicAPIKey
}

// LLMTimeout expone el timeout del upstream como Duration.
func (c *Config) LLMTimeout() time.Duration {
	if c.LLMTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

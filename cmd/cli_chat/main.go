package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"typing-chat/internal/config"
	"typing-chat/internal/domain"
	"typing-chat/internal/llm"
	"typing-chat/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	if os.Getenv("CLI_DEBUG") != "" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	persona, err := config.LoadPersona(cfg.PersonaFile)
	if err != nil {
		log.Fatalf("persona: %v", err)
	}

	gateway, err := buildGateway(cfg, persona, logger)
	if err != nil {
		log.Fatal(err)
	}

	store := service.NewConversationStore()
	controller := service.NewConversationController(store, gateway, persona, logger,
		service.WithTypingConfig(service.TypingSchedulerConfig{Speed: cfg.TypingSpeed}),
		service.WithMessageListener(printMessage),
	)
	defer controller.Close()

	fmt.Println("---- Chat (escribe 'salir' para terminar, '/reset' para reiniciar) ----")
	if err := controller.Greet(); err != nil {
		log.Fatalf("greet: %v", err)
	}
	waitIdle(ctx, controller)

	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			log.Fatalf("leer input: %v", err)
		}
		text = strings.TrimSpace(text)
		if errors.Is(err, io.EOF) && text == "" {
			fmt.Println()
			return
		}

		switch strings.ToLower(text) {
		case "":
			continue
		case "salir", "exit":
			return
		case "/reset":
			if err := controller.Reset(); err != nil {
				fmt.Printf("No se pudo reiniciar: %v\n", err)
				continue
			}
			fmt.Println("---- Conversacion reiniciada ----")
			if err := controller.Greet(); err != nil {
				log.Fatalf("greet: %v", err)
			}
			waitIdle(ctx, controller)
			continue
		}

		if err := controller.Send(ctx, text); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		waitIdle(ctx, controller)
	}
}

// buildGateway usa el proxy HTTP si PROXY_URL esta definido; si no, llama al proveedor en proceso.
func buildGateway(cfg *config.Config, persona domain.Persona, logger *zap.Logger) (service.Gateway, error) {
	if cfg.ProxyURL != "" {
		return llm.NewProxyClient(cfg.ProxyURL, cfg.LLMTimeout()+30*time.Second, logger), nil
	}

	apiKey := cfg.ProviderAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("set PROXY_URL or the credential for provider %q", cfg.LLMProvider)
	}
	var client llm.LLMClient
	if cfg.LLMProvider == config.ProviderOpenAI {
		client = llm.NewOpenAIClient(cfg.LLMBaseURL, apiKey, cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTimeout(), logger)
	} else {
		client = llm.NewAnthropicClient(cfg.LLMBaseURL, apiKey, cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTimeout(), logger)
	}
	return service.NewCompletionGateway(client, service.PromptBuilder{Persona: persona}, logger), nil
}

func printMessage(msg domain.Message) {
	if msg.Sender != domain.SenderBot {
		return
	}
	fmt.Printf("Bot > %s\n", msg.Text)
}

func waitIdle(ctx context.Context, controller *service.ConversationController) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := controller.WaitIdle(ctx); err != nil {
		fmt.Printf("(sin respuesta: %v)\n", err)
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"typing-chat/internal/domain"
)

var ErrPersonaInvalid = errors.New("persona invalid")

// DefaultPersona es la voz neutra usada cuando no hay PERSONA_FILE.
func DefaultPersona() domain.Persona {
	return domain.Persona{
		Name: "Studio assistant",
		Instructions: "You are the chat assistant of an independent design studio.\n" +
			"Be quietly confident, approachable and considered. Write short, tidy sentences in everyday words.\n" +
			"Never use exclamation marks. Ask one question at a time to understand the visitor's challenge.",
		MinMessages: 2,
		MaxMessages: 4,
		Greeting: []domain.PendingReply{
			{Text: "Hello there.", DelayMs: 800},
			{Text: "We help companies build better customer experiences.", DelayMs: 1000},
			{Text: "What brings you here today?", DelayMs: 700},
		},
	}
}

// LoadPersona lee un archivo TOML; los campos ausentes toman el valor por defecto.
func LoadPersona(path string) (domain.Persona, error) {
	persona := DefaultPersona()
	if strings.TrimSpace(path) == "" {
		return persona, nil
	}

	var fromFile domain.Persona
	if _, err := toml.DecodeFile(path, &fromFile); err != nil {
		return domain.Persona{}, fmt.Errorf("decode persona %s: %w", path, err)
	}

	if strings.TrimSpace(fromFile.Name) != "" {
		persona.Name = strings.TrimSpace(fromFile.Name)
	}
	if strings.TrimSpace(fromFile.Instructions) != "" {
		persona.Instructions = strings.TrimSpace(fromFile.Instructions)
	}
	if fromFile.MinMessages > 0 {
		persona.MinMessages = fromFile.MinMessages
	}
	if fromFile.MaxMessages > 0 {
		persona.MaxMessages = fromFile.MaxMessages
	}
	if fromFile.Greeting != nil {
		persona.Greeting = fromFile.Greeting
	}

	if persona.MinMessages > persona.MaxMessages {
		return domain.Persona{}, fmt.Errorf("%w: min_messages %d > max_messages %d", ErrPersonaInvalid, persona.MinMessages, persona.MaxMessages)
	}
	for i, g := range persona.Greeting {
		if strings.TrimSpace(g.Text) == "" {
			return domain.Persona{}, fmt.Errorf("%w: greeting %d has no text", ErrPersonaInvalid, i)
		}
	}
	return persona, nil
}

package domain

import (
	"encoding/json"
	"fmt"
)

const (
	// DefaultTypingDelayMs se usa cuando el modelo no manda un delay valido.
	DefaultTypingDelayMs = 1200
	// MaxTypingDelayMs acota delays patologicos del upstream.
	MaxTypingDelayMs = 5000
)

// PendingReply es una burbuja del bot aun no entregada al store.
type PendingReply struct {
	Text    string `json:"text" toml:"text"`
	DelayMs int    `json:"delay" toml:"delay"`
}

// ContextEntry es un par {role, content} del historial enviado al modelo.
type ContextEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationContext es la proyeccion de los mensajes visibles, en orden del store.
type ConversationContext []ContextEntry

// Transcript serializa el historial como el prompt que viaja al proxy.
func (c ConversationContext) Transcript() (string, error) {
	entries := c
	if entries == nil {
		entries = ConversationContext{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal conversation: %w", err)
	}
	return string(raw), nil
}

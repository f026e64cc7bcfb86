package service

import (
	"fmt"
	"strings"

	"typing-chat/internal/domain"
)

// PromptBuilder envuelve el historial del cliente con la persona y el formato de respuesta.
type PromptBuilder struct {
	Persona domain.Persona
}

// Build arma el prompt completo que se envía al LLM.
func (b PromptBuilder) Build(conversation string) string {
	var sb strings.Builder
	minMsgs, maxMsgs := b.Persona.MinMessages, b.Persona.MaxMessages
	if minMsgs <= 0 {
		minMsgs = 2
	}
	if maxMsgs < minMsgs {
		maxMsgs = minMsgs
	}

	// 1. Persona
	if name := strings.TrimSpace(b.Persona.Name); name != "" {
		sb.WriteString(fmt.Sprintf("You are %s.\n", name))
	}
	if instr := strings.TrimSpace(b.Persona.Instructions); instr != "" {
		sb.WriteString(instr)
		sb.WriteString("\n")
	}

	// 2. Historial
	sb.WriteString("\nPrevious conversation:\n")
	sb.WriteString(strings.TrimSpace(conversation))
	sb.WriteString("\n\n")

	// 3. Formato que espera el parser
	sb.WriteString("RESPONSE FORMAT REQUIREMENTS:\n")
	sb.WriteString(fmt.Sprintf("- Respond with %d-%d short messages (text message style)\n", minMsgs, maxMsgs))
	sb.WriteString("- Each message should be under 20 words where possible\n")
	sb.WriteString("- Split responses into multiple messages for natural conversation flow\n")
	sb.WriteString("- Use realistic delays between messages (1000-2000ms)\n\n")
	sb.WriteString("Respond with JSON containing an array of messages with realistic delays:\n")
	sb.WriteString(`{
  "messages": [
    {"text": "message 1", "delay": 1200},
    {"text": "message 2", "delay": 1800}
  ]
}`)
	sb.WriteString("\n\nDo not include backticks, markdown formatting, or any other text. Start your response directly with the opening brace {")

	return sb.String()
}

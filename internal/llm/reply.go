package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnrecognizedReplyText se devuelve cuando el payload del proveedor no tiene forma conocida.
const UnrecognizedReplyText = "Sorry, I encountered an unexpected response format."

// StatusError representa una respuesta HTTP de error del proveedor.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("llm http error: status=%d: %s", e.StatusCode, e.Message)
}

type replyShape int

const (
	shapeUnrecognized replyShape = iota
	shapeContent
	shapeCompletion
	shapeChoices
)

func (s replyShape) String() string {
	switch s {
	case shapeContent:
		return "content"
	case shapeCompletion:
		return "completion"
	case shapeChoices:
		return "choices"
	default:
		return "unrecognized"
	}
}

// providerReply es el resultado de decodificar el payload: una variante y su texto.
type providerReply struct {
	shape replyShape
	text  string
}

// Text devuelve el texto de la variante, o el texto de fallback si no se reconocio.
func (r providerReply) Text() string {
	if r.shape == shapeUnrecognized {
		return UnrecognizedReplyText
	}
	return r.text
}

type rawReply struct {
	Content []struct {
		Type string  `json:"type"`
		Text *string `json:"text"`
	} `json:"content"`
	Completion *string `json:"completion"`
	Choices    []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// decodeReply reconoce las formas Messages (content[0].text), legacy (completion)
// y chat completions (choices[0].message.content).
func decodeReply(body []byte) providerReply {
	var raw rawReply
	if err := json.Unmarshal(body, &raw); err != nil {
		return providerReply{shape: shapeUnrecognized}
	}

	switch {
	case len(raw.Content) > 0 && raw.Content[0].Text != nil:
		return providerReply{shape: shapeContent, text: *raw.Content[0].Text}
	case raw.Completion != nil:
		return providerReply{shape: shapeCompletion, text: *raw.Completion}
	case len(raw.Choices) > 0 && raw.Choices[0].Message.Content != nil:
		return providerReply{shape: shapeChoices, text: *raw.Choices[0].Message.Content}
	}
	return providerReply{shape: shapeUnrecognized}
}

// errorMessage extrae el mensaje de un cuerpo de error {"error":{"message"}} o {"error":"..."}.
func errorMessage(body []byte, fallback string) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && strings.TrimSpace(nested.Error.Message) != "" {
		return strings.TrimSpace(nested.Error.Message)
	}

	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && strings.TrimSpace(flat.Error) != "" {
		return strings.TrimSpace(flat.Error)
	}
	return fallback
}

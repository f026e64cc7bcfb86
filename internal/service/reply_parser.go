package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"typing-chat/internal/domain"
)

// ErrMalformedResponse indica que el texto del modelo no trae {"messages": [...]} utilizable.
var ErrMalformedResponse = errors.New("malformed model response")

var (
	fenceStartRe = regexp.MustCompile("(?s)^\\s*```[A-Za-z0-9_+-]*[ \\t]*\\r?\\n?")
	fenceEndRe   = regexp.MustCompile("(?s)\\s*```\\s*$")
)

// ReplyParser recupera las burbujas pendientes desde la respuesta cruda del modelo.
type ReplyParser struct{}

// DefaultReplyParser permite uso directo sin instanciar.
var DefaultReplyParser = ReplyParser{}

// CleanReplyJSON quita BOM y un fence ``` (con o sin lenguaje) al inicio y al final.
func CleanReplyJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.TrimPrefix(s, "\uFEFF")

	if strings.HasPrefix(strings.TrimSpace(s), "```") {
		s = fenceStartRe.ReplaceAllString(s, "")
	}
	s = fenceEndRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse exige un unico valor JSON {"messages": [{"text", "delay"}...]}.
// Texto extra fuera del fence es error; no hay parseo parcial.
func (ReplyParser) Parse(raw string) ([]domain.PendingReply, error) {
	cleaned := CleanReplyJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	var envelope map[string]json.RawMessage
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after json value", ErrMalformedResponse)
	}

	rawMessages, ok := envelope["messages"]
	if !ok {
		return nil, fmt.Errorf("%w: missing messages", ErrMalformedResponse)
	}
	rawMessages = bytes.TrimSpace(rawMessages)
	if len(rawMessages) == 0 || rawMessages[0] != '[' {
		return nil, fmt.Errorf("%w: messages is not an array", ErrMalformedResponse)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawMessages, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	replies := make([]domain.PendingReply, 0, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			return nil, fmt.Errorf("%w: message %d is not an object", ErrMalformedResponse, i)
		}

		var text string
		rawText, ok := fields["text"]
		if !ok || string(bytes.TrimSpace(rawText)) == "null" {
			return nil, fmt.Errorf("%w: message %d has no text", ErrMalformedResponse, i)
		}
		if err := json.Unmarshal(rawText, &text); err != nil {
			return nil, fmt.Errorf("%w: message %d text is not a string", ErrMalformedResponse, i)
		}

		replies = append(replies, domain.PendingReply{
			Text:    text,
			DelayMs: parseDelay(fields["delay"]),
		})
	}
	return replies, nil
}

// parseDelay tolera delays ausentes o invalidos usando el default.
func parseDelay(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return domain.DefaultTypingDelayMs
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.DefaultTypingDelayMs
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(math.Round(v))
}

package service

import (
	"errors"
	"testing"

	"typing-chat/internal/domain"
)

func TestCleanReplyJSON(t *testing.T) {
	cases := map[string]string{
		"sin fence":           `{"messages":[]}`,
		"fence json":          "```json\n{\"messages\":[]}\n```",
		"fence sin lenguaje":  "```\n{\"messages\":[]}\n```",
		"fence otro lenguaje": "```javascript\n{\"messages\":[]}\n```",
		"espacios y bom":      "\uFEFF  ```json {\"messages\":[]} ```  ",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if got := CleanReplyJSON(raw); got != `{"messages":[]}` {
				t.Fatalf("unexpected cleaned payload: %q", got)
			}
		})
	}
}

func TestReplyParserParse_ValidPayloads(t *testing.T) {
	want := []domain.PendingReply{
		{Text: "Pattrn was founded on a simple belief.", DelayMs: 1200},
		{Text: "Do you have a specific challenge?", DelayMs: 1800},
	}
	payload := `{"messages":[{"text":"Pattrn was founded on a simple belief.","delay":1200},{"text":"Do you have a specific challenge?","delay":1800}]}`

	for name, raw := range map[string]string{
		"plano":      payload,
		"con fence":  "```json\n" + payload + "\n```",
		"fence seco": "```" + payload + "```",
	} {
		t.Run(name, func(t *testing.T) {
			got, err := DefaultReplyParser.Parse(raw)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("expected %d replies, got %d", len(want), len(got))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("reply %d: expected %+v, got %+v", i, want[i], got[i])
				}
			}
		})
	}
}

func TestReplyParserParse_EmptyMessagesIsValid(t *testing.T) {
	got, err := DefaultReplyParser.Parse(`{"messages":[]}`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no replies, got %d", len(got))
	}
}

func TestReplyParserParse_DelayDefaults(t *testing.T) {
	got, err := DefaultReplyParser.Parse(`{"messages":[{"text":"a"},{"text":"b","delay":"soon"},{"text":"c","delay":null},{"text":"d","delay":1499.6}]}`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	wantDelays := []int{domain.DefaultTypingDelayMs, domain.DefaultTypingDelayMs, domain.DefaultTypingDelayMs, 1500}
	for i, d := range wantDelays {
		if got[i].DelayMs != d {
			t.Fatalf("reply %d: expected delay %d, got %d", i, d, got[i].DelayMs)
		}
	}
}

func TestReplyParserParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"vacio":             "   ",
		"json invalido":     `{"messages":[`,
		"sin messages":      `{"replies":[]}`,
		"messages no array": `{"messages":"hola"}`,
		"messages null":     `{"messages":null}`,
		"top level array":   `[{"text":"hola"}]`,
		"item no objeto":    `{"messages":["hola"]}`,
		"item sin text":     `{"messages":[{"delay":100}]}`,
		"text no string":    `{"messages":[{"text":5}]}`,
		"text null":         `{"messages":[{"text":null}]}`,
		"texto despues":     "```json\n{\"messages\":[]}\n```\nHope this helps.",
		"dos valores":       `{"messages":[]} {"messages":[]}`,
		"texto plano":       "I would love to help.",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DefaultReplyParser.Parse(raw)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

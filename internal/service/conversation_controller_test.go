package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"typing-chat/internal/domain"
)

type mockGateway struct {
	mu       sync.Mutex
	response string
	err      error
	release  chan struct{}
	calls    []domain.ConversationContext
}

func (m *mockGateway) Complete(ctx context.Context, history domain.ConversationContext) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, history)
	release := m.release
	m.mu.Unlock()
	if release != nil {
		<-release
	}
	return m.response, m.err
}

func (m *mockGateway) lastCall() domain.ConversationContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

var fastTyping = WithTypingConfig(TypingSchedulerConfig{Speed: 0.01})

func newTestController(gw Gateway, persona domain.Persona, opts ...ControllerOption) (*ConversationController, *ConversationStore) {
	store := NewConversationStore()
	c := NewConversationController(store, gw, persona, zap.NewNop(), append([]ControllerOption{fastTyping}, opts...)...)
	return c, store
}

func waitControllerIdle(t *testing.T, c *ConversationController) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitIdle(ctx); err != nil {
		t.Fatalf("controller did not go idle: %v", err)
	}
}

func TestConversationControllerSend_EndToEnd(t *testing.T) {
	gw := &mockGateway{response: "```json\n" + `{"messages":[{"text":"We're a design studio.","delay":1200},{"text":"What brings you here?","delay":1800}]}` + "\n```"}
	c, store := newTestController(gw, domain.Persona{})
	defer c.Close()

	_, _ = store.Append(domain.Message{Text: "Hello there.", Sender: domain.SenderBot, Visible: true})
	prior := store.Len()

	if err := c.Send(context.Background(), "What do you do?"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	waitControllerIdle(t, c)

	msgs := store.Messages()
	if len(msgs) != prior+3 {
		t.Fatalf("expected %d messages, got %d", prior+3, len(msgs))
	}
	user := msgs[prior]
	if user.Sender != domain.SenderUser || user.Text != "What do you do?" || !user.Visible {
		t.Fatalf("unexpected user message: %+v", user)
	}
	wantBot := []string{"We're a design studio.", "What brings you here?"}
	for i, text := range wantBot {
		m := msgs[prior+1+i]
		if m.Sender != domain.SenderBot || m.Text != text || !m.Visible {
			t.Fatalf("bot message %d unexpected: %+v", i, m)
		}
	}

	sent := gw.lastCall()
	if len(sent) != 2 || sent[0].Role != "assistant" || sent[1] != (domain.ContextEntry{Role: "user", Content: "What do you do?"}) {
		t.Fatalf("unexpected context sent to gateway: %+v", sent)
	}
}

func TestConversationControllerSend_DegradesToSingleApology(t *testing.T) {
	cases := map[string]*mockGateway{
		"json invalido":   {response: "not json"},
		"sin messages":    {response: `{"replies":[]}`},
		"messages vacio":  {response: `{"messages":[]}`},
		"rate limited":    {err: domain.NewGatewayError(domain.GatewayRateLimited, "Rate limit exceeded")},
		"error generico":  {err: errors.New("boom")},
		"texto fallback":  {response: "Sorry, I encountered an unexpected response format."},
	}
	for name, gw := range cases {
		t.Run(name, func(t *testing.T) {
			c, store := newTestController(gw, domain.Persona{})
			defer c.Close()

			if err := c.Send(context.Background(), "hola"); err != nil {
				t.Fatalf("expected failure to be absorbed, got %v", err)
			}
			waitControllerIdle(t, c)

			msgs := store.Messages()
			if len(msgs) != 2 {
				t.Fatalf("expected user message plus one apology, got %d", len(msgs))
			}
			if msgs[1].Text != ApologyText || msgs[1].Sender != domain.SenderBot || !msgs[1].Visible {
				t.Fatalf("unexpected fallback message: %+v", msgs[1])
			}
			if c.IsTyping() || c.IsBusy() {
				t.Fatalf("expected controller to settle, typing=%v busy=%v", c.IsTyping(), c.IsBusy())
			}
		})
	}
}

func TestConversationControllerSend_RejectsEmptyInput(t *testing.T) {
	c, store := newTestController(&mockGateway{}, domain.Persona{})
	defer c.Close()
	if err := c.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected nothing appended")
	}
}

func TestConversationControllerSend_BlocksOverlappingTurns(t *testing.T) {
	gw := &mockGateway{response: `{"messages":[{"text":"ok","delay":0}]}`, release: make(chan struct{})}
	c, store := newTestController(gw, domain.Persona{})
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "primero") }()

	deadline := time.Now().Add(2 * time.Second)
	for !c.IsBusy() {
		if time.Now().After(deadline) {
			t.Fatalf("first turn never became busy")
		}
		time.Sleep(time.Millisecond)
	}

	if err := c.Send(context.Background(), "segundo"); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}
	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	waitControllerIdle(t, c)

	if store.Len() != 2 {
		t.Fatalf("expected only the first turn to land, got %d messages", store.Len())
	}
}

func TestConversationControllerSend_AllowedWhileDraining(t *testing.T) {
	gw := &mockGateway{response: `{"messages":[{"text":"lento","delay":5000}]}`}
	c, store := newTestController(gw, domain.Persona{}, WithTypingConfig(TypingSchedulerConfig{Speed: 0.02}))
	defer c.Close()

	if err := c.Send(context.Background(), "uno"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if !c.IsTyping() {
		t.Fatalf("expected typing while reply is pending")
	}

	gw.mu.Lock()
	gw.response = `{"messages":[{"text":"rapido","delay":0}]}`
	gw.mu.Unlock()
	if err := c.Send(context.Background(), "dos"); err != nil {
		t.Fatalf("expected second send while draining, got %v", err)
	}

	sent := gw.lastCall()
	if len(sent) != 2 || sent[0].Content != "uno" || sent[1].Content != "dos" {
		t.Fatalf("expected snapshot without undelivered replies, got %+v", sent)
	}

	waitControllerIdle(t, c)
	msgs := store.Messages()
	got := make([]string, 0, len(msgs))
	for _, m := range msgs {
		got = append(got, m.Text)
	}
	want := []string{"uno", "dos", "lento", "rapido"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestConversationControllerGreet(t *testing.T) {
	persona := domain.Persona{Greeting: []domain.PendingReply{
		{Text: "Hello there.", DelayMs: 800},
		{Text: "We help companies.", DelayMs: 1000},
		{Text: "What brings you here today?", DelayMs: 700},
	}}
	var mu sync.Mutex
	var seen []domain.Message
	listener := WithMessageListener(func(m domain.Message) {
		mu.Lock()
		seen = append(seen, m)
		mu.Unlock()
	})
	gw := &mockGateway{response: `{"messages":[{"text":"ok","delay":0}]}`}
	c, store := newTestController(gw, persona, listener, WithTypingConfig(TypingSchedulerConfig{Speed: 0.05}))
	defer c.Close()

	if err := c.Greet(); err != nil {
		t.Fatalf("greet: %v", err)
	}
	if store.Len() != 3 || store.HiddenCount() != 3 {
		t.Fatalf("expected 3 hidden greeting messages, got len=%d hidden=%d", store.Len(), store.HiddenCount())
	}
	if err := c.Send(context.Background(), "hola"); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected send to wait for greeting, got %v", err)
	}

	waitControllerIdle(t, c)
	if store.HiddenCount() != 0 {
		t.Fatalf("expected greeting revealed")
	}
	mu.Lock()
	if len(seen) != 3 || seen[0].Text != "Hello there." || seen[2].Text != "What brings you here today?" {
		t.Fatalf("unexpected reveal notifications: %+v", seen)
	}
	mu.Unlock()

	if err := c.Send(context.Background(), "hola"); err != nil {
		t.Fatalf("send after greeting: %v", err)
	}
	if sent := gw.lastCall(); len(sent) != 4 || sent[0].Content != "Hello there." {
		t.Fatalf("expected greeting in context, got %+v", sent)
	}
}

func TestConversationControllerReset(t *testing.T) {
	gw := &mockGateway{response: `{"messages":[{"text":"ok","delay":0}]}`}
	c, store := newTestController(gw, domain.Persona{})
	defer c.Close()

	if err := c.Send(context.Background(), "hola"); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitControllerIdle(t, c)
	if err := c.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if store.Len() != 0 || len(c.Messages()) != 0 {
		t.Fatalf("expected empty conversation after reset")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"typing-chat/internal/domain"
)

// ApologyText es la unica burbuja que ve el usuario cuando falla el gateway o el parser.
const ApologyText = "I apologize, but I encountered an error. Please try again."

const apologyDelayMs = 1000

var (
	ErrEmptyInput   = errors.New("empty input")
	ErrTurnInFlight = errors.New("turn already in flight")
)

// Gateway es el contrato complete(context) -> texto crudo | *domain.GatewayError.
type Gateway interface {
	Complete(ctx context.Context, history domain.ConversationContext) (string, error)
}

// ConversationController orquesta store, gateway, parser y scheduler para una conversacion.
type ConversationController struct {
	store     *ConversationStore
	scheduler *TypingScheduler
	gateway   Gateway
	parser    ReplyParser
	persona   domain.Persona
	logger    *zap.Logger
	onMessage func(domain.Message)

	mu   sync.Mutex
	busy bool
}

// ControllerOption configura el controller.
type ControllerOption func(*controllerOptions)

type controllerOptions struct {
	typing    TypingSchedulerConfig
	onMessage func(domain.Message)
}

// WithTypingConfig cambia el ritmo del scheduler.
func WithTypingConfig(cfg TypingSchedulerConfig) ControllerOption {
	return func(o *controllerOptions) { o.typing = cfg }
}

// WithMessageListener recibe cada mensaje que se vuelve visible, en orden.
func WithMessageListener(fn func(domain.Message)) ControllerOption {
	return func(o *controllerOptions) { o.onMessage = fn }
}

func NewConversationController(
	store *ConversationStore,
	gateway Gateway,
	persona domain.Persona,
	logger *zap.Logger,
	opts ...ControllerOption,
) *ConversationController {
	options := controllerOptions{typing: DefaultTypingSchedulerConfig()}
	for _, opt := range opts {
		opt(&options)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewConversationStore()
	}

	c := &ConversationController{
		store:     store,
		gateway:   gateway,
		parser:    DefaultReplyParser,
		persona:   persona,
		logger:    logger,
		onMessage: options.onMessage,
	}
	c.scheduler = NewTypingScheduler(c.deliver, options.typing, logger)
	return c
}

// Greet agrega el saludo oculto y programa su reveal.
func (c *ConversationController) Greet() error {
	items := make([]ScheduledReply, 0, len(c.persona.Greeting))
	for _, g := range c.persona.Greeting {
		msg, err := c.store.Append(domain.Message{Text: g.Text, Sender: domain.SenderBot})
		if err != nil {
			return fmt.Errorf("append greeting: %w", err)
		}
		items = append(items, ScheduledReply{Reply: g, RevealID: msg.ID})
	}
	c.scheduler.enqueue(items...)
	return nil
}

// Send procesa un turno del usuario. Solo devuelve error si el turno se rechaza;
// los fallos del gateway o del parser se degradan a la burbuja de disculpa.
func (c *ConversationController) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	// Mientras queden burbujas del saludo ocultas el turno espera: revelarlas despues del
	// mensaje del usuario las dejaria fuera de orden en el historial.
	c.mu.Lock()
	if c.busy || c.store.HiddenCount() > 0 {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	c.busy = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	userMsg, err := c.store.Append(domain.Message{Text: text, Sender: domain.SenderUser, Visible: true})
	if err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	c.notify(userMsg)

	snapshot := c.store.VisibleContext()
	raw, err := c.gateway.Complete(ctx, snapshot)
	if err != nil {
		var gwErr *domain.GatewayError
		kind := string(domain.GatewayUpstreamFailure)
		if errors.As(err, &gwErr) {
			kind = string(gwErr.Kind)
		}
		c.logger.Warn("completion failed", zap.String("kind", kind), zap.Error(err))
		c.apologize()
		return nil
	}

	replies, err := c.parser.Parse(raw)
	if err != nil {
		c.logger.Warn("could not parse model reply", zap.Error(err), zap.Int("raw_len", len(raw)))
		c.apologize()
		return nil
	}
	if len(replies) == 0 {
		c.logger.Warn("model returned no messages")
		c.apologize()
		return nil
	}

	c.logger.Debug("replies queued", zap.Int("count", len(replies)))
	c.scheduler.Enqueue(replies)
	return nil
}

func (c *ConversationController) apologize() {
	c.scheduler.Enqueue([]domain.PendingReply{{Text: ApologyText, DelayMs: apologyDelayMs}})
}

// deliver aplica al store lo que entrega el scheduler.
func (c *ConversationController) deliver(item ScheduledReply) {
	if item.RevealID != "" {
		msg, changed, err := c.store.Reveal(item.RevealID)
		if err != nil {
			c.logger.Warn("reveal failed", zap.String("message_id", item.RevealID), zap.Error(err))
			return
		}
		if changed {
			c.notify(msg)
		}
		return
	}

	msg, err := c.store.Append(domain.Message{Text: item.Reply.Text, Sender: domain.SenderBot, Visible: true})
	if err != nil {
		c.logger.Error("append bot message failed", zap.Error(err))
		return
	}
	c.notify(msg)
}

func (c *ConversationController) notify(msg domain.Message) {
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// Reset vacia la conversacion y la cola pendiente.
func (c *ConversationController) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrTurnInFlight
	}
	c.scheduler.Clear()
	c.store.Reset()
	return nil
}

func (c *ConversationController) IsBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *ConversationController) IsTyping() bool {
	return c.scheduler.IsTyping()
}

func (c *ConversationController) WaitIdle(ctx context.Context) error {
	return c.scheduler.WaitIdle(ctx)
}

func (c *ConversationController) Messages() []domain.Message {
	return c.store.Messages()
}

// Close detiene el scheduler; lo pendiente se descarta.
func (c *ConversationController) Close() {
	c.scheduler.Stop()
}

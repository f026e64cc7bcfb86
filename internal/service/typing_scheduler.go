package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"typing-chat/internal/domain"
)

// ScheduledReply es un item de la cola: una burbuja nueva, o el reveal de un mensaje existente.
type ScheduledReply struct {
	Reply    domain.PendingReply
	RevealID string
}

// TypingSchedulerConfig ajusta el ritmo de escritura simulado.
type TypingSchedulerConfig struct {
	MaxDelay time.Duration
	// Speed multiplica cada delay ya acotado; 0.5 escribe el doble de rapido.
	Speed float64
}

func DefaultTypingSchedulerConfig() TypingSchedulerConfig {
	return TypingSchedulerConfig{
		MaxDelay: domain.MaxTypingDelayMs * time.Millisecond,
		Speed:    1,
	}
}

// TypingScheduler drena la cola de a un item, esperando su delay antes de entregarlo.
// Hay a lo sumo una goroutine de drenado viva.
type TypingScheduler struct {
	deliver  func(ScheduledReply)
	logger   *zap.Logger
	maxDelay time.Duration
	speed    float64

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	queue    []ScheduledReply
	draining bool
	idle     chan struct{}
}

func NewTypingScheduler(deliver func(ScheduledReply), cfg TypingSchedulerConfig, logger *zap.Logger) *TypingScheduler {
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = domain.MaxTypingDelayMs * time.Millisecond
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TypingScheduler{
		deliver:  deliver,
		logger:   logger,
		maxDelay: cfg.MaxDelay,
		speed:    cfg.Speed,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Enqueue agrega las respuestas al final de la cola y arranca el drenado si hace falta.
func (s *TypingScheduler) Enqueue(replies []domain.PendingReply) {
	items := make([]ScheduledReply, 0, len(replies))
	for _, r := range replies {
		items = append(items, ScheduledReply{Reply: r})
	}
	s.enqueue(items...)
}

func (s *TypingScheduler) enqueue(items ...ScheduledReply) {
	if len(items) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		s.logger.Warn("typing scheduler stopped, dropping replies", zap.Int("count", len(items)))
		return
	}

	s.queue = append(s.queue, items...)
	if s.draining {
		return
	}
	s.draining = true
	s.idle = make(chan struct{})
	go s.drain()
}

func (s *TypingScheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.ctx.Err() != nil {
			s.queue = nil
			s.draining = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		item := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if !s.wait(s.delayFor(item.Reply.DelayMs)) {
			continue
		}
		s.deliver(item)
	}
}

func (s *TypingScheduler) wait(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// delayFor acota el delay a [0, maxDelay] y aplica la velocidad.
func (s *TypingScheduler) delayFor(delayMs int) time.Duration {
	d := time.Duration(delayMs) * time.Millisecond
	if d < 0 {
		d = 0
	}
	if d > s.maxDelay {
		d = s.maxDelay
	}
	return time.Duration(float64(d) * s.speed)
}

// IsTyping es true mientras haya items en cola o una espera en curso.
func (s *TypingScheduler) IsTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0 || s.draining
}

// Clear descarta lo que no empezo a esperar; la espera en curso igual entrega.
func (s *TypingScheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
}

// WaitIdle bloquea hasta que la cola se vacie o ctx termine.
func (s *TypingScheduler) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	if !s.draining {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancela la espera en curso y descarta la cola.
func (s *TypingScheduler) Stop() {
	s.cancel()
}

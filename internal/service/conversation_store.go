package service

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"typing-chat/internal/domain"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrDuplicateMessage = errors.New("duplicate message id")
)

// ConversationStore es el log append-only de la conversacion.
// Solo el controller escribe; el mutex protege a los lectores que renderizan.
type ConversationStore struct {
	mu       sync.RWMutex
	messages []domain.Message
	index    map[string]int
	now      func() time.Time
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// Append agrega al final, asigna id si falta y un CreatedAt no decreciente.
func (s *ConversationStore) Append(msg domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, exists := s.index[msg.ID]; exists {
		return domain.Message{}, ErrDuplicateMessage
	}

	createdAt := s.now().UTC()
	if n := len(s.messages); n > 0 && createdAt.Before(s.messages[n-1].CreatedAt) {
		createdAt = s.messages[n-1].CreatedAt
	}
	msg.CreatedAt = createdAt

	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	return msg, nil
}

// Reveal marca visible un mensaje. Devuelve changed=false si ya lo era.
func (s *ConversationStore) Reveal(id string) (domain.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Message{}, false, ErrMessageNotFound
	}
	if s.messages[i].Visible {
		return s.messages[i], false, nil
	}
	s.messages[i].Visible = true
	return s.messages[i], true, nil
}

// VisibleContext es el snapshot {role, content} de los mensajes visibles, en orden.
func (s *ConversationStore) VisibleContext() domain.ConversationContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.ConversationContext, 0, len(s.messages))
	for _, m := range s.messages {
		if !m.Visible {
			continue
		}
		out = append(out, domain.ContextEntry{Role: m.Sender.Role(), Content: m.Text})
	}
	return out
}

// Messages devuelve una copia del log completo, incluyendo ocultos.
func (s *ConversationStore) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// HiddenCount cuenta mensajes aun no revelados.
func (s *ConversationStore) HiddenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if !m.Visible {
			n++
		}
	}
	return n
}

// Reset descarta la conversacion.
func (s *ConversationStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.index = make(map[string]int)
}

package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Err      error

	mu      sync.Mutex
	prompts []string
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	return m.Response, m.Err
}

// Prompts devuelve los prompts recibidos, en orden.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

package generator

import (
	"context"
	"sync"

	"github.com/vampirenirmal/narratology/internal/core"
)

// Mock is an in-memory core.Generator for tests and dry runs. Responses
// are returned in order; when they run out, Fallback (or a canned line)
// is returned forever.
type Mock struct {
	mu        sync.Mutex
	Responses []string
	Fallback  string
	Err       error
	Calls     int
	Prompts   []string
}

// Generate implements core.Generator.
func (m *Mock) Generate(ctx context.Context, prompt string, params core.GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Calls <= len(m.Responses) {
		return m.Responses[m.Calls-1], nil
	}
	if m.Fallback != "" {
		return m.Fallback, nil
	}
	return "The road went on, and hope went with it.", nil
}

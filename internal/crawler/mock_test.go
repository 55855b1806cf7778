package crawler

import (
	"context"
	"sync"
)

// MockRenderer returns canned HTML and records the URLs it was asked for
type MockRenderer struct {
	mu    sync.Mutex
	html  string
	err   error
	calls []string
}

var _ Renderer = (*MockRenderer)(nil)

func (m *MockRenderer) Render(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, url)
	return m.html, m.err
}

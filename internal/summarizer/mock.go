package summarizer

import (
	"context"
	"sync"

	"github.com/notifyhub/tubealert/internal/domain"
)

// MockSummarizer returns a fixed summary and counts calls.
type MockSummarizer struct {
	mu    sync.Mutex
	calls []Input

	Summary domain.Summary
	Model   string
	Err     error
}

func (m *MockSummarizer) Summarize(_ context.Context, in Input) (*domain.Summary, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, in)
	if m.Err != nil {
		return nil, "", m.Err
	}
	s := m.Summary
	return &s, m.Model, nil
}

func (m *MockSummarizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

package hub

import (
	"context"
	"sync"
)

// MockUnsubscriber records unsubscribe calls.
type MockUnsubscriber struct {
	mu    sync.Mutex
	calls []string

	Err error
}

func (m *MockUnsubscriber) Unsubscribe(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, channelID)
	return m.Err
}

// Calls returns the channel ids passed to Unsubscribe, in order.
func (m *MockUnsubscriber) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

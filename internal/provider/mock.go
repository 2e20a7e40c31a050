package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider records sent emails. Set Err to simulate a provider outage.
type MockProvider struct {
	mu   sync.Mutex
	sent []Email

	Err error
}

func (m *MockProvider) Send(_ context.Context, email Email) (*SendResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.sent = append(m.sent, email)
	return &SendResponse{MessageID: fmt.Sprintf("mock-%d", len(m.sent))}, nil
}

func (m *MockProvider) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}

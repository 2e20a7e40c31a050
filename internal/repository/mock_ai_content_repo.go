package repository

import (
	"context"
	"sync"

	"github.com/notifyhub/tubealert/internal/domain"
)

// MockAIContentRepository is an in-memory AIContentRepository with the same
// first-write-wins policy as the pg implementation.
type MockAIContentRepository struct {
	mu       sync.Mutex
	contents map[string]*domain.AIContent

	GetErr error
	PutErr error

	GetCalls int
	PutCalls int
}

func NewMockAIContentRepository() *MockAIContentRepository {
	return &MockAIContentRepository{contents: make(map[string]*domain.AIContent)}
}

func (m *MockAIContentRepository) Get(_ context.Context, videoID string) (*domain.AIContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	c, ok := m.contents[videoID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *MockAIContentRepository) Put(_ context.Context, content *domain.AIContent) (*domain.AIContent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCalls++
	if m.PutErr != nil {
		return nil, false, m.PutErr
	}
	if existing, ok := m.contents[content.VideoID]; ok {
		clone := *existing
		return &clone, false, nil
	}
	clone := *content
	m.contents[content.VideoID] = &clone
	out := clone
	return &out, true, nil
}

// Len returns the number of stored rows.
func (m *MockAIContentRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contents)
}

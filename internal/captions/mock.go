package captions

import (
	"context"
	"sync"
)

// MockFetcher serves transcripts from a map. Unknown videos have none.
type MockFetcher struct {
	mu          sync.Mutex
	transcripts map[string]string
	calls       int

	Err error
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{transcripts: make(map[string]string)}
}

func (m *MockFetcher) Set(videoID, transcript string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[videoID] = transcript
}

func (m *MockFetcher) Fetch(_ context.Context, videoID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.transcripts[videoID], nil
}

func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

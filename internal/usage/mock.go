package usage

import (
	"context"
	"sync"
	"time"

	"github.com/notifyhub/tubealert/internal/domain"
)

// MockAccountant keeps subscriptions in memory with the same reset rule as
// PgAccountant.
type MockAccountant struct {
	mu   sync.Mutex
	subs map[string]*domain.Subscription
	now  func() time.Time

	IncrementErr  error
	ResetErr      error
	ResetCalls    []string
	IncrementedBy map[string]int

	counted map[string]bool
}

func NewMockAccountant(now func() time.Time) *MockAccountant {
	if now == nil {
		now = time.Now
	}
	return &MockAccountant{
		subs:          make(map[string]*domain.Subscription),
		now:           now,
		IncrementedBy: make(map[string]int),
		counted:       make(map[string]bool),
	}
}

func (m *MockAccountant) Add(s domain.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ProfileID] = &s
}

// Get returns a copy of the profile's subscription.
func (m *MockAccountant) Get(profileID string) (domain.Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[profileID]
	if !ok {
		return domain.Subscription{}, false
	}
	return *s, true
}

func (m *MockAccountant) Increment(_ context.Context, profileID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	if m.counted[notificationID] {
		return nil
	}
	m.counted[notificationID] = true
	m.IncrementedBy[profileID]++
	if s, ok := m.subs[profileID]; ok && s.Status == domain.SubscriptionActive {
		s.UsageCount++
	}
	return nil
}

func (m *MockAccountant) ResetIfDue(_ context.Context, profileID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCalls = append(m.ResetCalls, profileID)
	if m.ResetErr != nil {
		return false, m.ResetErr
	}
	s, ok := m.subs[profileID]
	if !ok || s.Status != domain.SubscriptionActive || s.EndDate.After(m.now()) {
		return false, nil
	}
	s.UsageCount = 0
	s.StartDate, s.EndDate = NextPeriod(s.EndDate, m.now())
	return true, nil
}

var _ Accountant = (*MockAccountant)(nil)

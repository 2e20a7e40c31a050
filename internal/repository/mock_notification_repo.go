package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/notifyhub/tubealert/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. It enforces the same
// (profile, video) uniqueness and pending-only transitions as the pg one.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification
	claimedAt     map[string]time.Time
	emails        map[string]string

	// Optional error overrides — set in tests to simulate failure paths.
	NotifiedProfilesErr error
	CreatePendingErr    error
	ClaimPendingErr     error
	MarkSentErr         error
	MarkFailedErr       error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]*domain.Notification),
		claimedAt:     make(map[string]time.Time),
		emails:        make(map[string]string),
	}
}

// SetEmail registers the address ClaimPending joins for a profile.
func (m *MockNotificationRepository) SetEmail(profileID, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[profileID] = email
}

// Seed stores n as-is, bypassing the uniqueness check.
func (m *MockNotificationRepository) Seed(n *domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	m.notifications[n.ID] = &clone
}

// All returns a snapshot of every row ordered by creation time.
func (m *MockNotificationRepository) All() []*domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		clone := *n
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ProfileID < result[j].ProfileID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (m *MockNotificationRepository) NotifiedProfiles(_ context.Context, videoID string, profileIDs []string) ([]string, error) {
	if m.NotifiedProfilesErr != nil {
		return nil, m.NotifiedProfilesErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []string
	for _, n := range m.notifications {
		if n.VideoID == videoID && slices.Contains(profileIDs, n.ProfileID) {
			result = append(result, n.ProfileID)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (m *MockNotificationRepository) CreatePending(_ context.Context, notifications []*domain.Notification) (int, error) {
	if m.CreatePendingErr != nil {
		return 0, m.CreatePendingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, n := range notifications {
		if m.exists(n.ProfileID, n.VideoID) {
			continue
		}
		clone := *n
		m.notifications[n.ID] = &clone
		inserted++
	}
	return inserted, nil
}

func (m *MockNotificationRepository) ClaimPending(_ context.Context, limit int, lease time.Duration) ([]*domain.PendingDelivery, error) {
	if m.ClaimPendingErr != nil {
		return nil, m.ClaimPendingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var candidates []*domain.Notification
	for _, n := range m.notifications {
		if n.Status != domain.StatusPending {
			continue
		}
		if at, ok := m.claimedAt[n.ID]; ok && now.Sub(at) < lease {
			continue
		}
		candidates = append(candidates, n)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]*domain.PendingDelivery, 0, len(candidates))
	for _, n := range candidates {
		m.claimedAt[n.ID] = now
		result = append(result, &domain.PendingDelivery{Notification: *n, Email: m.emails[n.ProfileID]})
	}
	return result, nil
}

// ExpireLeases makes every claimed row claimable again, as if the lease ran out.
func (m *MockNotificationRepository) ExpireLeases() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.claimedAt)
}

func (m *MockNotificationRepository) MarkSent(_ context.Context, id, providerMsgID string, sentAt time.Time) error {
	if m.MarkSentErr != nil {
		return m.MarkSentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || !n.Status.CanTransitionTo(domain.StatusSent) {
		return domain.ErrInvalidTransition
	}
	n.Status = domain.StatusSent
	n.ProviderMsgID = &providerMsgID
	n.SentAt = &sentAt
	return nil
}

func (m *MockNotificationRepository) MarkFailed(_ context.Context, id, errMsg string) error {
	if m.MarkFailedErr != nil {
		return m.MarkFailedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || !n.Status.CanTransitionTo(domain.StatusFailed) {
		return domain.ErrInvalidTransition
	}
	n.Status = domain.StatusFailed
	n.ErrorMessage = &errMsg
	return nil
}

func (m *MockNotificationRepository) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

// exists must be called with m.mu held.
func (m *MockNotificationRepository) exists(profileID, videoID string) bool {
	for _, n := range m.notifications {
		if n.ProfileID == profileID && n.VideoID == videoID {
			return true
		}
	}
	return false
}

package repository

import (
	"context"
	"sync"
	"time"

	"github.com/notifyhub/tubealert/internal/domain"
)

// MockSubscriberRepository holds membership and subscription rows in memory.
type MockSubscriberRepository struct {
	mu            sync.RWMutex
	members       map[string][]domain.Subscriber
	subscriptions []domain.Subscription

	ChannelSubscribersErr    error
	ExpiringSubscriptionsErr error
}

func NewMockSubscriberRepository() *MockSubscriberRepository {
	return &MockSubscriberRepository{members: make(map[string][]domain.Subscriber)}
}

func (m *MockSubscriberRepository) AddSubscriber(channelID string, s domain.Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[channelID] = append(m.members[channelID], s)
}

func (m *MockSubscriberRepository) AddSubscription(s domain.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, s)
}

func (m *MockSubscriberRepository) ChannelSubscribers(_ context.Context, channelID string) ([]domain.Subscriber, error) {
	if m.ChannelSubscribersErr != nil {
		return nil, m.ChannelSubscribersErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Subscriber, len(m.members[channelID]))
	copy(out, m.members[channelID])
	return out, nil
}

func (m *MockSubscriberRepository) ExpiringSubscriptions(_ context.Context, from, to time.Time) ([]domain.Subscription, error) {
	if m.ExpiringSubscriptionsErr != nil {
		return nil, m.ExpiringSubscriptionsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Subscription
	for _, s := range m.subscriptions {
		if s.Status != domain.SubscriptionActive {
			continue
		}
		if s.EndDate.Before(from) || s.EndDate.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

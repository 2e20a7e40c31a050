package repository

import (
	"context"
	"time"

	"github.com/notifyhub/tubealert/internal/domain"
)

// NotificationRepository is the email_notifications ledger. It doubles as
// the fan-out dedup index through the (profile_id, video_id) unique key.
// The pgx implementation is in pg_notification_repo.go.
// Tests use a hand-written mock (mock_notification_repo.go).
type NotificationRepository interface {
	// NotifiedProfiles returns the subset of profileIDs that already have a
	// ledger row for videoID.
	NotifiedProfiles(ctx context.Context, videoID string, profileIDs []string) ([]string, error)

	// CreatePending inserts pending rows, silently skipping any whose
	// (profile, video) pair already exists. Returns the number inserted.
	CreatePending(ctx context.Context, notifications []*domain.Notification) (int, error)

	// ClaimPending leases up to limit pending rows so concurrent email
	// workers do not pick the same row until lease has elapsed.
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*domain.PendingDelivery, error)

	// MarkSent and MarkFailed only apply to pending rows and return
	// domain.ErrInvalidTransition otherwise.
	MarkSent(ctx context.Context, id, providerMsgID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id, errMsg string) error

	GetByID(ctx context.Context, id string) (*domain.Notification, error)
}

// AIContentRepository is the authoritative store for generated summaries.
type AIContentRepository interface {
	// Get returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, videoID string) (*domain.AIContent, error)

	// Put stores content unless a row for the video already exists. It
	// always returns the stored row; created reports whether this call
	// wrote it.
	Put(ctx context.Context, content *domain.AIContent) (stored *domain.AIContent, created bool, err error)
}

// SubscriberRepository reads the externally owned membership and
// subscription tables.
type SubscriberRepository interface {
	ChannelSubscribers(ctx context.Context, channelID string) ([]domain.Subscriber, error)

	// ExpiringSubscriptions lists active subscriptions whose end_date is
	// within [from, to].
	ExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]domain.Subscription, error)
}

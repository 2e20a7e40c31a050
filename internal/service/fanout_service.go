package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/captions"
	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/hub"
	"github.com/notifyhub/tubealert/internal/render"
	"github.com/notifyhub/tubealert/internal/repository"
)

// FanoutService turns one VideoEvent into pending ledger rows, one per
// subscriber of the channel who has not been notified about the video yet.
// All business rules of the fan-out live here; the queue worker only
// decides what happens to the message afterwards.
//
// A returned error is transient and the message should be retried. Every
// other path reports a terminal Outcome.
type FanoutService struct {
	subscribers   repository.SubscriberRepository
	notifications repository.NotificationRepository
	hub           hub.Unsubscriber
	captions      captions.Fetcher
	summaries     *SummaryService
	dashboardURL  string
	logger        *zap.Logger
	now           func() time.Time

	onCreated func(n int)
}

func NewFanoutService(
	subscribers repository.SubscriberRepository,
	notifications repository.NotificationRepository,
	hubClient hub.Unsubscriber,
	captionFetcher captions.Fetcher,
	summaries *SummaryService,
	dashboardURL string,
	logger *zap.Logger,
	onCreated func(int),
) *FanoutService {
	if onCreated == nil {
		onCreated = func(int) {}
	}
	return &FanoutService{
		subscribers:   subscribers,
		notifications: notifications,
		hub:           hubClient,
		captions:      captionFetcher,
		summaries:     summaries,
		dashboardURL:  dashboardURL,
		logger:        logger,
		now:           time.Now,
		onCreated:     onCreated,
	}
}

func (s *FanoutService) Process(ctx context.Context, e domain.VideoEvent) (domain.Outcome, error) {
	log := s.logger.With(zap.String("video_id", e.VideoID), zap.String("channel_id", e.ChannelID))

	if e.ChannelID == "" {
		log.Warn("dropping event without channel id")
		return domain.OutcomeDroppedMalformed, nil
	}

	// --- membership ---
	subs, err := s.subscribers.ChannelSubscribers(ctx, e.ChannelID)
	if err != nil {
		return "", fmt.Errorf("load subscribers: %w", err)
	}
	if len(subs) == 0 {
		// Nobody follows the channel any more; stop the hub from pushing it.
		if err := s.hub.Unsubscribe(ctx, e.ChannelID); err != nil {
			log.Warn("hub unsubscribe failed", zap.Error(err))
		} else {
			log.Info("unsubscribed orphaned channel")
		}
		return domain.OutcomeDroppedOrphan, nil
	}

	if e.VideoID == "" {
		log.Warn("dropping event without video id")
		return domain.OutcomeDroppedMalformed, nil
	}

	// --- fan-out set ---
	// Computed before the captions and summary calls so a replayed event
	// costs one ledger read. CreatePending still skips conflicts.
	fresh, err := s.unnotified(ctx, e.VideoID, subs)
	if err != nil {
		return "", err
	}
	if len(fresh) == 0 {
		log.Debug("all subscribers already notified")
		return domain.OutcomeAlreadyNotified, nil
	}

	// --- transcript ---
	transcript, err := s.captions.Fetch(ctx, e.VideoID)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	if transcript == "" {
		log.Info("dropping event: no transcript")
		return domain.OutcomeDroppedNoTranscript, nil
	}

	// --- summary ---
	summary, err := s.summaries.Resolve(ctx, e, transcript)
	if err != nil {
		return "", err
	}

	// --- render + insert ---
	notifications, err := s.build(e, *summary, fresh)
	if err != nil {
		return "", err
	}
	inserted, err := s.notifications.CreatePending(ctx, notifications)
	if err != nil {
		return "", fmt.Errorf("create notifications: %w", err)
	}

	s.onCreated(inserted)
	log.Info("fan-out complete",
		zap.Int("subscribers", len(subs)),
		zap.Int("created", inserted),
	)
	if inserted == 0 {
		return domain.OutcomeAlreadyNotified, nil
	}
	return domain.OutcomeFannedOut, nil
}

// unnotified returns the subscribers without a ledger row for the video.
func (s *FanoutService) unnotified(ctx context.Context, videoID string, subs []domain.Subscriber) ([]domain.Subscriber, error) {
	ids := make([]string, len(subs))
	for i, sub := range subs {
		ids[i] = sub.ProfileID
	}

	notified, err := s.notifications.NotifiedProfiles(ctx, videoID, ids)
	if err != nil {
		return nil, fmt.Errorf("load notified profiles: %w", err)
	}

	fresh := make([]domain.Subscriber, 0, len(subs))
	for _, sub := range subs {
		if !slices.Contains(notified, sub.ProfileID) {
			fresh = append(fresh, sub)
		}
	}
	return fresh, nil
}

func (s *FanoutService) build(e domain.VideoEvent, summary domain.Summary, subs []domain.Subscriber) ([]*domain.Notification, error) {
	now := s.now().UTC()

	// Two variants at most: with and without the upgrade block.
	variants := make(map[bool]*render.Rendered, 2)
	result := make([]*domain.Notification, 0, len(subs))
	for _, sub := range subs {
		upgrade := sub.NeedsUpgradePrompt()
		rendered, ok := variants[upgrade]
		if !ok {
			var err error
			rendered, err = render.Render(render.Data{
				Video:        e,
				Summary:      summary,
				ShowUpgrade:  upgrade,
				DashboardURL: s.dashboardURL,
			})
			if err != nil {
				return nil, fmt.Errorf("render email: %w", err)
			}
			variants[upgrade] = rendered
		}

		result = append(result, &domain.Notification{
			ID:           uuid.New().String(),
			ProfileID:    sub.ProfileID,
			ChannelID:    e.ChannelID,
			VideoID:      e.VideoID,
			Title:        e.Title,
			Subject:      rendered.Subject,
			EmailContent: rendered.HTML,
			Status:       domain.StatusPending,
			CreatedAt:    now,
		})
	}
	return result, nil
}

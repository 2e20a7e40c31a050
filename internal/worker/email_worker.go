package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/config"
	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/provider"
	"github.com/notifyhub/tubealert/internal/ratelimiter"
	"github.com/notifyhub/tubealert/internal/render"
	"github.com/notifyhub/tubealert/internal/repository"
	"github.com/notifyhub/tubealert/internal/usage"
)

// Failure reasons reported to MetricHooks.OnFailed.
const (
	ReasonMissingEmail = "missing_email"
	ReasonProvider     = "provider"
)

// EmailWorker delivers pending ledger rows. Each cycle leases a batch of
// rows, sends them one by one through the rate limiter, and settles every
// row as sent or failed. There is no automatic retry of a failed send.
type EmailWorker struct {
	repo    repository.NotificationRepository
	prov    provider.Provider
	usage   usage.Accountant
	limiter *ratelimiter.Limiters
	cfg     config.EmailConfig
	logger  *zap.Logger
	hooks   MetricHooks
	now     func() time.Time
}

func NewEmailWorker(
	repo repository.NotificationRepository,
	prov provider.Provider,
	acc usage.Accountant,
	limiter *ratelimiter.Limiters,
	cfg config.EmailConfig,
	logger *zap.Logger,
	hooks MetricHooks,
) *EmailWorker {
	return &EmailWorker{
		repo: repo, prov: prov, usage: acc, limiter: limiter,
		cfg: cfg, logger: logger, hooks: hooks.withDefaults(), now: time.Now,
	}
}

// Run ticks every poll interval and runs one delivery cycle.
func (w *EmailWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("email worker started", zap.Duration("interval", w.cfg.PollInterval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopping")
			return
		case <-ticker.C:
			if _, err := w.RunCycle(ctx); err != nil {
				w.logger.Error("email cycle failed", zap.Error(err))
			}
		}
	}
}

// RunCycle claims up to BatchSize pending rows and settles each of them.
// It returns the number of rows claimed.
func (w *EmailWorker) RunCycle(ctx context.Context) (int, error) {
	// The claimed batch is finished even if ctx is cancelled; the lease
	// bounds how long that may take.
	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.ClaimLease)
	defer cancel()

	deliveries, err := w.repo.ClaimPending(workCtx, w.cfg.BatchSize, w.cfg.ClaimLease)
	if err != nil {
		return 0, fmt.Errorf("claim pending: %w", err)
	}

	for _, d := range deliveries {
		w.deliver(workCtx, d)
	}

	if len(deliveries) > 0 {
		w.logger.Info("email cycle complete", zap.Int("claimed", len(deliveries)))
	}
	return len(deliveries), nil
}

func (w *EmailWorker) deliver(ctx context.Context, d *domain.PendingDelivery) {
	log := w.logger.With(
		zap.String("notification_id", d.ID),
		zap.String("profile_id", d.ProfileID),
		zap.String("video_id", d.VideoID),
	)

	// A row without an address can never be sent; settle it so it stops
	// being claimed.
	if d.Email == "" {
		w.fail(ctx, log, d.ID, domain.ErrMissingEmail.Error(), ReasonMissingEmail)
		return
	}

	// Block here until the limiter grants a token.
	if err := w.limiter.Wait(ctx, ratelimiter.KeyEmail); err != nil {
		// Work timeout hit; the lease expires and the row is claimed again.
		log.Warn("rate limiter wait aborted", zap.Error(err))
		return
	}

	text, err := render.PlainText(d.EmailContent)
	if err != nil {
		log.Warn("plain-text fallback unavailable", zap.Error(err))
	}

	// Rows written before subjects were stored fall back to the title.
	subject := d.Subject
	if subject == "" {
		subject = render.Subject(domain.VideoEvent{Title: d.Title})
	}

	start := time.Now()
	resp, err := w.prov.Send(ctx, provider.Email{
		From:           w.cfg.From,
		To:             d.Email,
		Subject:        subject,
		HTML:           d.EmailContent,
		Text:           text,
		IdempotencyKey: d.IdempotencyKey(),
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("provider send failed", zap.Error(err))
		w.fail(ctx, log, d.ID, err.Error(), ReasonProvider)
		return
	}

	// Keyed by row so a resend after a lost MarkSent is not counted twice.
	if err := w.usage.Increment(ctx, d.ProfileID, d.ID); err != nil {
		log.Error("failed to increment usage", zap.Error(err))
	}

	// A failure here leaves the row pending; the next claim resends it with
	// the same idempotency key, which the provider collapses.
	if err := w.repo.MarkSent(ctx, d.ID, resp.MessageID, w.now().UTC()); err != nil {
		log.Error("failed to mark as sent", zap.Error(err))
		return
	}

	w.hooks.OnSent(elapsed)
	log.Info("notification sent", zap.String("provider_msg_id", resp.MessageID), zap.Duration("latency", elapsed))
}

func (w *EmailWorker) fail(ctx context.Context, log *zap.Logger, id, msg, reason string) {
	if err := w.repo.MarkFailed(ctx, id, msg); err != nil {
		log.Error("failed to mark as failed", zap.Error(err))
		return
	}
	w.hooks.OnFailed(reason)
}

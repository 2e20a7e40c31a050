package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/repository"
	"github.com/notifyhub/tubealert/internal/usage"
)

// SubscriptionCheckWorker periodically sweeps active subscriptions whose
// period is over or about to end and asks the accountant to roll them into
// a new period. It only does anything in the environments it is enabled for.
type SubscriptionCheckWorker struct {
	subs     repository.SubscriberRepository
	usage    usage.Accountant
	interval time.Duration
	window   time.Duration
	enabled  bool
	logger   *zap.Logger
	hooks    MetricHooks
	now      func() time.Time
}

func NewSubscriptionCheckWorker(
	subs repository.SubscriberRepository,
	acc usage.Accountant,
	interval, window time.Duration,
	enabled bool,
	logger *zap.Logger,
	hooks MetricHooks,
) *SubscriptionCheckWorker {
	return &SubscriptionCheckWorker{
		subs: subs, usage: acc, interval: interval, window: window,
		enabled: enabled, logger: logger, hooks: hooks.withDefaults(), now: time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (w *SubscriptionCheckWorker) SetClock(now func() time.Time) {
	w.now = now
}

// Run ticks every interval and runs one sweep.
// Stops cleanly when ctx is cancelled.
func (w *SubscriptionCheckWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("subscription check worker started",
		zap.Duration("interval", w.interval),
		zap.Bool("enabled", w.enabled),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("subscription check worker stopping")
			return
		case <-ticker.C:
			if _, err := w.RunCycle(ctx); err != nil {
				w.logger.Error("subscription check failed", zap.Error(err))
			}
		}
	}
}

// RunCycle checks every active subscription that ended already or ends
// within the window. It returns the number of periods that were reset.
func (w *SubscriptionCheckWorker) RunCycle(ctx context.Context) (int, error) {
	if !w.enabled {
		return 0, nil
	}

	now := w.now().UTC()
	// The zero lower bound picks up periods missed while the worker was down.
	subs, err := w.subs.ExpiringSubscriptions(ctx, time.Time{}, now.Add(w.window))
	if err != nil {
		return 0, fmt.Errorf("list expiring subscriptions: %w", err)
	}

	resets := 0
	for _, s := range subs {
		reset, err := w.usage.ResetIfDue(ctx, s.ProfileID)
		if err != nil {
			w.logger.Error("usage reset failed", zap.String("profile_id", s.ProfileID), zap.Error(err))
			continue
		}
		if reset {
			resets++
			w.hooks.OnReset()
		}
	}

	if resets > 0 {
		w.logger.Info("subscription periods reset", zap.Int("count", resets), zap.Int("checked", len(subs)))
	}
	return resets, nil
}

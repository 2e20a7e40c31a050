package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/config"
	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/queue"
)

// Processor handles the payload of one queue message. A nil error means the
// returned outcome is terminal and the message is acknowledged; an error
// means the message should be retried.
type Processor interface {
	Process(ctx context.Context, event domain.VideoEvent) (domain.Outcome, error)
}

// QueueWorker pops video events off the notification queue and hands them
// to the fan-out processor, one message per tick.
//
// Retries use the queue's own redelivery: a failed message is made visible
// again after an exponential backoff, and ReadCount carries the attempt
// number across deliveries. After MaxAttempts the message is dead-lettered.
type QueueWorker struct {
	q      queue.Queue
	proc   Processor
	cfg    config.QueueConfig
	logger *zap.Logger
	hooks  MetricHooks
}

func NewQueueWorker(
	q queue.Queue,
	proc Processor,
	cfg config.QueueConfig,
	logger *zap.Logger,
	hooks MetricHooks,
) *QueueWorker {
	return &QueueWorker{q: q, proc: proc, cfg: cfg, logger: logger, hooks: hooks.withDefaults()}
}

// Run ticks every poll interval and processes the next visible message.
// Stops cleanly when ctx is cancelled; a message already being processed
// is finished first.
func (w *QueueWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("queue worker started", zap.Duration("interval", w.cfg.PollInterval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("queue worker stopping")
			return
		case <-ticker.C:
			if _, err := w.ProcessNext(ctx); err != nil {
				w.logger.Error("queue worker iteration failed", zap.Error(err))
			}
			w.refreshDepth(ctx)
		}
	}
}

// ProcessNext pops at most one message and settles it. It returns
// OutcomeEmpty when nothing is visible.
func (w *QueueWorker) ProcessNext(ctx context.Context) (domain.Outcome, error) {
	// Detached from ctx so a stop request never abandons a half-processed
	// message; the work timeout still bounds it.
	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.WorkTimeout)
	defer cancel()

	msg, err := w.q.Pop(workCtx, w.cfg.VisibilityTimeout)
	if errors.Is(err, domain.ErrQueueEmpty) {
		return domain.OutcomeEmpty, nil
	}
	if err != nil {
		return "", fmt.Errorf("pop message: %w", err)
	}

	log := w.logger.With(
		zap.Int64("msg_id", msg.ID),
		zap.Int("attempt", msg.ReadCount),
		zap.String("video_id", msg.Payload.VideoID),
	)

	outcome, procErr := w.proc.Process(workCtx, msg.Payload)
	if procErr == nil && !outcome.Terminal() {
		procErr = fmt.Errorf("processor returned non-terminal outcome %q", outcome)
	}
	if procErr == nil {
		if err := w.q.Delete(workCtx, msg.ID); err != nil {
			// The message reappears after the visibility timeout and the
			// ledger's unique key absorbs the replay.
			return outcome, fmt.Errorf("ack message %d: %w", msg.ID, err)
		}
		w.hooks.OnOutcome(outcome)
		log.Debug("message processed", zap.String("outcome", string(outcome)))
		return outcome, nil
	}

	if msg.ReadCount >= w.cfg.MaxAttempts {
		if err := w.q.DeadLetter(workCtx, msg, procErr.Error()); err != nil {
			return "", fmt.Errorf("dead-letter message %d: %w", msg.ID, err)
		}
		w.hooks.OnOutcome(domain.OutcomeDeadLettered)
		log.Error("message dead-lettered", zap.Error(procErr))
		return domain.OutcomeDeadLettered, nil
	}

	delay := Backoff(w.cfg.BackoffBase, w.cfg.BackoffMax, msg.ReadCount)
	if err := w.q.Requeue(workCtx, msg.ID, delay); err != nil {
		return "", fmt.Errorf("requeue message %d: %w", msg.ID, err)
	}
	w.hooks.OnOutcome(domain.OutcomeRetryScheduled)
	log.Warn("processing failed, retry scheduled", zap.Error(procErr), zap.Duration("delay", delay))
	return domain.OutcomeRetryScheduled, nil
}

func (w *QueueWorker) refreshDepth(ctx context.Context) {
	depth, err := w.q.Depth(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("queue depth unavailable", zap.Error(err))
		}
		return
	}
	w.hooks.OnQueueDepth(depth)
}

// Backoff returns the delay before the next delivery of a message that has
// failed attempt times:
//
//	attempt 1 → base
//	attempt 2 → 2·base
//	attempt n → base·2^(n-1), clamped to ceiling
func Backoff(base, ceiling time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return min(d, ceiling)
}

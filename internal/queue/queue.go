package queue

import (
	"context"
	"time"

	"github.com/notifyhub/tubealert/internal/domain"
)

// Queue is the durable, at-least-once store between webhook ingestion and
// the QueueWorker. Pop hides a message for the visibility timeout; a message
// that is neither deleted nor dead-lettered becomes visible again and its
// ReadCount keeps growing, which is what bounds retries.
type Queue interface {
	Enqueue(ctx context.Context, event domain.VideoEvent) (int64, error)

	// Pop returns domain.ErrQueueEmpty when no message is visible.
	Pop(ctx context.Context, visibility time.Duration) (*domain.QueueMessage, error)

	Delete(ctx context.Context, msgID int64) error

	// Requeue makes a popped message visible again after delay, keeping
	// its id and read count.
	Requeue(ctx context.Context, msgID int64, delay time.Duration) error

	// DeadLetter archives the message with a reason and removes it from
	// the live queue.
	DeadLetter(ctx context.Context, msg *domain.QueueMessage, reason string) error

	Depth(ctx context.Context) (int, error)
}

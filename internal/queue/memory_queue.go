package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/notifyhub/tubealert/internal/domain"
)

// DeadLetter is an archived message held by MemoryQueue.
type DeadLetter struct {
	Message domain.QueueMessage
	Reason  string
}

// MemoryQueue is a process-local Queue with the same visibility semantics
// as PgQueue. It backs QUEUE_BACKEND=memory and the unit tests.
//
// Messages are kept in insertion order; Pop returns the oldest message whose
// visibility time has passed.
type MemoryQueue struct {
	mu       sync.Mutex
	nextID   int64
	messages []*domain.QueueMessage
	dead     []DeadLetter
	now      func() time.Time
}

func NewMemory() *MemoryQueue {
	return &MemoryQueue{now: time.Now}
}

// SetClock overrides the time source, letting tests move visibility
// deadlines without sleeping.
func (q *MemoryQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

func (q *MemoryQueue) Enqueue(_ context.Context, event domain.VideoEvent) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	now := q.now().UTC()
	q.messages = append(q.messages, &domain.QueueMessage{
		ID:         q.nextID,
		EnqueuedAt: now,
		VisibleAt:  now,
		Payload:    event,
	})
	return q.nextID, nil
}

func (q *MemoryQueue) Pop(ctx context.Context, visibility time.Duration) (*domain.QueueMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now().UTC()
	for _, m := range q.messages {
		if m.VisibleAt.After(now) {
			continue
		}
		m.ReadCount++
		m.VisibleAt = now.Add(visibility)
		clone := *m
		return &clone, nil
	}
	return nil, domain.ErrQueueEmpty
}

func (q *MemoryQueue) Delete(_ context.Context, msgID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.remove(msgID); !ok {
		return fmt.Errorf("delete message %d: %w", msgID, domain.ErrNotFound)
	}
	return nil
}

func (q *MemoryQueue) Requeue(_ context.Context, msgID int64, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, m := range q.messages {
		if m.ID == msgID {
			m.VisibleAt = q.now().UTC().Add(delay)
			return nil
		}
	}
	return fmt.Errorf("requeue message %d: %w", msgID, domain.ErrNotFound)
}

func (q *MemoryQueue) DeadLetter(_ context.Context, msg *domain.QueueMessage, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	stored, ok := q.remove(msg.ID)
	if !ok {
		return fmt.Errorf("dead-letter message %d: %w", msg.ID, domain.ErrNotFound)
	}
	q.dead = append(q.dead, DeadLetter{Message: *stored, Reason: reason})
	return nil
}

func (q *MemoryQueue) Depth(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages), nil
}

// DeadLetters returns a snapshot of archived messages.
func (q *MemoryQueue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetter, len(q.dead))
	copy(out, q.dead)
	return out
}

// remove must be called with q.mu held.
func (q *MemoryQueue) remove(msgID int64) (*domain.QueueMessage, bool) {
	for i, m := range q.messages {
		if m.ID == msgID {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return m, true
		}
	}
	return nil, false
}

// compile-time check that MemoryQueue implements Queue
var _ Queue = (*MemoryQueue)(nil)

package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/queue"
)

func event(videoID string) domain.VideoEvent {
	return domain.VideoEvent{VideoID: videoID, ChannelID: "UC1", Title: "Video " + videoID}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newQueue() (*queue.MemoryQueue, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	q := queue.NewMemory()
	q.SetClock(clock.Now)
	return q, clock
}

func TestMemoryQueue_EnqueuePopDelete(t *testing.T) {
	q, _ := newQueue()
	ctx := context.Background()

	id, err := q.Enqueue(ctx, event("abc123"))
	if err != nil {
		t.Fatal(err)
	}

	msg, err := q.Pop(ctx, time.Minute)
	if err != nil {
		t.Fatalf("expected message, got %v", err)
	}
	if msg.ID != id || msg.Payload.VideoID != "abc123" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.ReadCount != 1 {
		t.Fatalf("expected read_count=1, got %d", msg.ReadCount)
	}

	if err := q.Delete(ctx, msg.ID); err != nil {
		t.Fatal(err)
	}
	if depth, _ := q.Depth(ctx); depth != 0 {
		t.Fatalf("expected empty queue, got depth %d", depth)
	}
}

// TestMemoryQueue_PopHidesMessage verifies a popped message is invisible to
// other consumers until its visibility timeout passes.
func TestMemoryQueue_PopHidesMessage(t *testing.T) {
	q, clock := newQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, event("abc123"))

	if _, err := q.Pop(ctx, time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Pop(ctx, time.Minute); !errors.Is(err, domain.ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty while hidden, got %v", err)
	}

	clock.Advance(time.Minute)

	msg, err := q.Pop(ctx, time.Minute)
	if err != nil {
		t.Fatalf("expected redelivery after visibility timeout, got %v", err)
	}
	if msg.ReadCount != 2 {
		t.Fatalf("expected read_count=2 on redelivery, got %d", msg.ReadCount)
	}
}

func TestMemoryQueue_RequeueKeepsIdentity(t *testing.T) {
	q, clock := newQueue()
	ctx := context.Background()
	id, _ := q.Enqueue(ctx, event("abc123"))

	first, _ := q.Pop(ctx, time.Hour)
	if err := q.Requeue(ctx, first.ID, 10*time.Second); err != nil {
		t.Fatal(err)
	}

	if _, err := q.Pop(ctx, time.Hour); !errors.Is(err, domain.ErrQueueEmpty) {
		t.Fatalf("expected message hidden during backoff, got %v", err)
	}

	clock.Advance(10 * time.Second)
	second, err := q.Pop(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != id {
		t.Fatalf("expected same msg id %d, got %d", id, second.ID)
	}
	if second.ReadCount != 2 {
		t.Fatalf("expected read_count=2, got %d", second.ReadCount)
	}
}

func TestMemoryQueue_DeadLetter(t *testing.T) {
	q, _ := newQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, event("abc123"))

	msg, _ := q.Pop(ctx, time.Minute)
	if err := q.DeadLetter(ctx, msg, "max attempts"); err != nil {
		t.Fatal(err)
	}

	if depth, _ := q.Depth(ctx); depth != 0 {
		t.Fatalf("expected live queue empty, got %d", depth)
	}
	dead := q.DeadLetters()
	if len(dead) != 1 || dead[0].Reason != "max attempts" || dead[0].Message.Payload.VideoID != "abc123" {
		t.Fatalf("unexpected dead letters: %+v", dead)
	}
}

func TestMemoryQueue_DeleteUnknown(t *testing.T) {
	q, _ := newQueue()
	if err := q.Delete(context.Background(), 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryQueue_FIFO(t *testing.T) {
	q, _ := newQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, event("first"))
	_, _ = q.Enqueue(ctx, event("second"))

	msg, _ := q.Pop(ctx, time.Minute)
	if msg.Payload.VideoID != "first" {
		t.Fatalf("expected oldest message first, got %q", msg.Payload.VideoID)
	}
}

// TestMemoryQueue_ConcurrentPop verifies each message is handed to exactly
// one consumer when several pop at once.
func TestMemoryQueue_ConcurrentPop(t *testing.T) {
	q, _ := newQueue()
	ctx := context.Background()

	const total = 200
	for i := 0; i < total; i++ {
		_, _ = q.Enqueue(ctx, event("v"))
	}

	var (
		mu   sync.Mutex
		seen = make(map[int64]int)
		wg   sync.WaitGroup
	)
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, err := q.Pop(ctx, time.Hour)
				if err != nil {
					return
				}
				mu.Lock()
				seen[msg.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("expected %d distinct messages, got %d", total, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("message %d delivered %d times", id, n)
		}
	}
}

func TestMemoryQueue_PopCancelledContext(t *testing.T) {
	q, _ := newQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Pop(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

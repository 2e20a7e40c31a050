package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/tubealert/internal/domain"
)

// PgQueue stores messages in notification_queue. Pop relies on
// FOR UPDATE SKIP LOCKED so concurrent workers never receive the same
// visible message.
type PgQueue struct {
	pool *pgxpool.Pool
}

func NewPgQueue(pool *pgxpool.Pool) *PgQueue {
	return &PgQueue{pool: pool}
}

func (q *PgQueue) Enqueue(ctx context.Context, event domain.VideoEvent) (int64, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("marshal video event: %w", err)
	}

	var id int64
	err = q.pool.QueryRow(ctx, `
		INSERT INTO notification_queue (message) VALUES ($1)
		RETURNING msg_id`, payload).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue message: %w", err)
	}
	return id, nil
}

func (q *PgQueue) Pop(ctx context.Context, visibility time.Duration) (*domain.QueueMessage, error) {
	row := q.pool.QueryRow(ctx, `
		WITH next AS (
			SELECT msg_id
			FROM notification_queue
			WHERE vt <= NOW()
			ORDER BY msg_id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_queue q
		SET vt = NOW() + make_interval(secs => $1), read_ct = q.read_ct + 1
		FROM next
		WHERE q.msg_id = next.msg_id
		RETURNING q.msg_id, q.read_ct, q.enqueued_at, q.vt, q.message`,
		visibility.Seconds())

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("pop message: %w", err)
	}
	return msg, nil
}

func (q *PgQueue) Delete(ctx context.Context, msgID int64) error {
	tag, err := q.pool.Exec(ctx, `DELETE FROM notification_queue WHERE msg_id = $1`, msgID)
	if err != nil {
		return fmt.Errorf("delete message %d: %w", msgID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete message %d: %w", msgID, domain.ErrNotFound)
	}
	return nil
}

func (q *PgQueue) Requeue(ctx context.Context, msgID int64, delay time.Duration) error {
	tag, err := q.pool.Exec(ctx, `
		UPDATE notification_queue
		SET vt = NOW() + make_interval(secs => $1)
		WHERE msg_id = $2`, delay.Seconds(), msgID)
	if err != nil {
		return fmt.Errorf("requeue message %d: %w", msgID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("requeue message %d: %w", msgID, domain.ErrNotFound)
	}
	return nil
}

func (q *PgQueue) DeadLetter(ctx context.Context, msg *domain.QueueMessage, reason string) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		WITH moved AS (
			DELETE FROM notification_queue WHERE msg_id = $1
			RETURNING msg_id, read_ct, enqueued_at, message
		)
		INSERT INTO notification_queue_archive (msg_id, read_ct, enqueued_at, reason, message)
		SELECT msg_id, read_ct, enqueued_at, $2, message FROM moved`, msg.ID, reason)
	if err != nil {
		return fmt.Errorf("archive message %d: %w", msg.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("archive message %d: %w", msg.ID, domain.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit dead letter: %w", err)
	}
	return nil
}

func (q *PgQueue) Depth(ctx context.Context) (int, error) {
	var n int
	if err := q.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

func scanMessage(row pgx.Row) (*domain.QueueMessage, error) {
	var (
		msg     domain.QueueMessage
		payload []byte
	)
	if err := row.Scan(&msg.ID, &msg.ReadCount, &msg.EnqueuedAt, &msg.VisibleAt, &payload); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &msg.Payload); err != nil {
		// Keep the envelope so the caller can still acknowledge it; an
		// undecodable payload validates as malformed.
		msg.Payload = domain.VideoEvent{}
	}
	return &msg, nil
}

// compile-time check that PgQueue implements Queue
var _ Queue = (*PgQueue)(nil)

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/tubealert/internal/domain"
)

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPgNotificationRepository returns a NotificationRepository backed by PostgreSQL.
func NewPgNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

func (r *pgNotificationRepository) NotifiedProfiles(ctx context.Context, videoID string, profileIDs []string) ([]string, error) {
	if len(profileIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT profile_id FROM email_notifications
		WHERE video_id = $1 AND profile_id = ANY($2)`, videoID, profileIDs)
	if err != nil {
		return nil, fmt.Errorf("query notified profiles: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan notified profiles: %w", err)
	}
	return ids, nil
}

func (r *pgNotificationRepository) CreatePending(ctx context.Context, notifications []*domain.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(`
			INSERT INTO email_notifications
				(id, profile_id, channel_id, video_id, title, subject, email_content, status, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (profile_id, video_id) DO NOTHING`,
			n.ID, n.ProfileID, n.ChannelID, n.VideoID, n.Title, n.Subject, n.EmailContent, n.Status, n.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range notifications {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("insert notification: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit notifications: %w", err)
	}
	return inserted, nil
}

func (r *pgNotificationRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*domain.PendingDelivery, error) {
	rows, err := r.pool.Query(ctx, `
		WITH claimable AS (
			SELECT id
			FROM email_notifications
			WHERE status = 'pending'
			  AND (claimed_at IS NULL OR claimed_at < NOW() - make_interval(secs => $2))
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		), claimed AS (
			UPDATE email_notifications n
			SET claimed_at = NOW()
			FROM claimable
			WHERE n.id = claimable.id
			RETURNING n.id, n.profile_id, n.channel_id, n.video_id, n.title,
			          n.subject, n.email_content, n.status, n.created_at
		)
		SELECT c.id, c.profile_id, c.channel_id, c.video_id, c.title,
		       c.subject, c.email_content, c.status, c.created_at, COALESCE(p.email, '')
		FROM claimed c
		LEFT JOIN profiles p ON p.id = c.profile_id
		ORDER BY c.created_at`, limit, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("claim pending notifications: %w", err)
	}
	defer rows.Close()

	var result []*domain.PendingDelivery
	for rows.Next() {
		var d domain.PendingDelivery
		if err := rows.Scan(
			&d.ID, &d.ProfileID, &d.ChannelID, &d.VideoID, &d.Title,
			&d.Subject, &d.EmailContent, &d.Status, &d.CreatedAt, &d.Email,
		); err != nil {
			return nil, fmt.Errorf("scan pending notification: %w", err)
		}
		result = append(result, &d)
	}
	return result, rows.Err()
}

func (r *pgNotificationRepository) MarkSent(ctx context.Context, id, providerMsgID string, sentAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE email_notifications
		SET status = 'sent', provider_msg_id = $1, sent_at = $2, error_message = NULL
		WHERE id = $3 AND status = 'pending'`, providerMsgID, sentAt, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *pgNotificationRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE email_notifications
		SET status = 'failed', error_message = $1
		WHERE id = $2 AND status = 'pending'`, errMsg, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *pgNotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.pool.QueryRow(ctx, `
		SELECT id, profile_id, channel_id, video_id, title, subject, email_content, status,
		       error_message, provider_msg_id, created_at, sent_at
		FROM email_notifications WHERE id = $1`, id).Scan(
		&n.ID, &n.ProfileID, &n.ChannelID, &n.VideoID, &n.Title, &n.Subject, &n.EmailContent, &n.Status,
		&n.ErrorMessage, &n.ProviderMsgID, &n.CreatedAt, &n.SentAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

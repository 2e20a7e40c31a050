package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/tubealert/internal/domain"
)

type pgSubscriberRepository struct {
	pool *pgxpool.Pool
}

func NewPgSubscriberRepository(pool *pgxpool.Pool) SubscriberRepository {
	return &pgSubscriberRepository{pool: pool}
}

func (r *pgSubscriberRepository) ChannelSubscribers(ctx context.Context, channelID string) ([]domain.Subscriber, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cs.profile_id,
		       COALESCE(p.email, ''),
		       COALESCE(s.plan, 'free'),
		       COALESCE(s.usage_count, 0),
		       COALESCE(s.period_limit, 0)
		FROM channel_subscriptions cs
		LEFT JOIN profiles p ON p.id = cs.profile_id
		LEFT JOIN subscriptions s ON s.profile_id = cs.profile_id
		WHERE cs.channel_id = $1
		ORDER BY cs.profile_id`, channelID)
	if err != nil {
		return nil, fmt.Errorf("query channel subscribers: %w", err)
	}
	defer rows.Close()

	var result []domain.Subscriber
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(&s.ProfileID, &s.Email, &s.Plan, &s.UsageCount, &s.PeriodLimit); err != nil {
			return nil, fmt.Errorf("scan channel subscriber: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *pgSubscriberRepository) ExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]domain.Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT profile_id, plan, status, start_date, end_date, usage_count, period_limit
		FROM subscriptions
		WHERE status = 'active'
		  AND end_date >= $1
		  AND end_date <= $2
		ORDER BY end_date
		LIMIT 500`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var result []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.ProfileID, &s.Plan, &s.Status, &s.StartDate, &s.EndDate, &s.UsageCount, &s.PeriodLimit); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

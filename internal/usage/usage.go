// Package usage tracks per-period email usage on a profile's subscription.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Accountant is the usage boundary used by the email and subscription
// check workers.
type Accountant interface {
	// Increment counts the delivered notification against the profile's
	// active subscription. Each notification is counted at most once, so a
	// resend after a lost status update does not count again. Profiles
	// without an active subscription are ignored.
	Increment(ctx context.Context, profileID, notificationID string) error

	// ResetIfDue starts a new period when the current one has ended and
	// reports whether it did.
	ResetIfDue(ctx context.Context, profileID string) (bool, error)
}

// NextPeriod returns the period containing now for a subscription whose
// period ended at end. Periods are whole months anchored on end, so a
// subscription that lapsed several months ago catches up in one step.
func NextPeriod(end, now time.Time) (start, next time.Time) {
	start = end
	for n := 1; ; n++ {
		next = end.AddDate(0, n, 0)
		if next.After(now) {
			return start, next
		}
		start = next
	}
}

type PgAccountant struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPgAccountant(pool *pgxpool.Pool) *PgAccountant {
	return &PgAccountant{pool: pool, now: time.Now}
}

func (a *PgAccountant) Increment(ctx context.Context, profileID, notificationID string) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		INSERT INTO usage_events (notification_id, profile_id)
		VALUES ($1, $2)
		ON CONFLICT (notification_id) DO NOTHING`, notificationID, profileID)
	if err != nil {
		return fmt.Errorf("record usage event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE subscriptions
		SET usage_count = usage_count + 1
		WHERE profile_id = $1 AND status = 'active'`, profileID); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit usage: %w", err)
	}
	return nil
}

// ResetIfDue moves an ended period forward to the one containing now.
// The row lock makes a concurrent reset a no-op.
func (a *PgAccountant) ResetIfDue(ctx context.Context, profileID string) (bool, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var end time.Time
	err = tx.QueryRow(ctx, `
		SELECT end_date FROM subscriptions
		WHERE profile_id = $1 AND status = 'active'
		FOR UPDATE`, profileID).Scan(&end)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load subscription: %w", err)
	}

	now := a.now().UTC()
	if end.After(now) {
		return false, nil
	}
	start, next := NextPeriod(end.UTC(), now)

	if _, err := tx.Exec(ctx, `
		UPDATE subscriptions
		SET usage_count = 0, start_date = $2, end_date = $3
		WHERE profile_id = $1`, profileID, start, next); err != nil {
		return false, fmt.Errorf("reset usage: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit reset: %w", err)
	}
	return true, nil
}

var _ Accountant = (*PgAccountant)(nil)

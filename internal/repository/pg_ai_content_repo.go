package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/tubealert/internal/domain"
)

type pgAIContentRepository struct {
	pool *pgxpool.Pool
}

// NewPgAIContentRepository returns an AIContentRepository backed by the
// ai_content table.
func NewPgAIContentRepository(pool *pgxpool.Pool) AIContentRepository {
	return &pgAIContentRepository{pool: pool}
}

func (r *pgAIContentRepository) Get(ctx context.Context, videoID string) (*domain.AIContent, error) {
	var (
		c       domain.AIContent
		summary []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT video_id, summary, model, created_at
		FROM ai_content WHERE video_id = $1`, videoID).Scan(&c.VideoID, &summary, &c.Model, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ai content: %w", err)
	}
	if err := json.Unmarshal(summary, &c.Summary); err != nil {
		return nil, fmt.Errorf("decode ai content summary: %w", err)
	}
	return &c, nil
}

// Put is first-write-wins: ON CONFLICT DO NOTHING keeps the existing row, and
// the follow-up read returns whichever row is authoritative.
func (r *pgAIContentRepository) Put(ctx context.Context, content *domain.AIContent) (*domain.AIContent, bool, error) {
	summary, err := json.Marshal(content.Summary)
	if err != nil {
		return nil, false, fmt.Errorf("encode ai content summary: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO ai_content (video_id, summary, model, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (video_id) DO NOTHING`,
		content.VideoID, summary, content.Model, content.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("insert ai content: %w", err)
	}

	stored, err := r.Get(ctx, content.VideoID)
	if err != nil {
		return nil, false, err
	}
	return stored, tag.RowsAffected() == 1, nil
}

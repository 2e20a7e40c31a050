// Package cache implements the AI content cache: the Postgres repository is
// authoritative and an optional Redis front absorbs repeated reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/repository"
)

const keyPrefix = "ai_content:"

// ErrMiss is returned by KV implementations when the key is absent.
var ErrMiss = errors.New("cache miss")

// KV is the slice of a key-value store the front tier needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Store is the cache contract used by the summary service.
type Store interface {
	Get(ctx context.Context, videoID string) (*domain.AIContent, error)
	Put(ctx context.Context, content *domain.AIContent) (*domain.AIContent, bool, error)
}

// Layered reads through an optional KV front to the repository. Front-tier
// failures are logged and otherwise ignored.
type Layered struct {
	repo   repository.AIContentRepository
	front  KV
	ttl    time.Duration
	logger *zap.Logger
}

// NewLayered builds the cache. front may be nil, in which case every call
// goes to the repository.
func NewLayered(repo repository.AIContentRepository, front KV, ttl time.Duration, logger *zap.Logger) *Layered {
	return &Layered{repo: repo, front: front, ttl: ttl, logger: logger}
}

// Get returns domain.ErrNotFound when neither tier has the video.
func (c *Layered) Get(ctx context.Context, videoID string) (*domain.AIContent, error) {
	if content, ok := c.frontGet(ctx, videoID); ok {
		return content, nil
	}

	content, err := c.repo.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	c.frontSet(ctx, content)
	return content, nil
}

// Put writes through to the repository. The first write for a video wins:
// when a different summary is already stored, the stored one is returned
// and cached, and created is false.
func (c *Layered) Put(ctx context.Context, content *domain.AIContent) (*domain.AIContent, bool, error) {
	stored, created, err := c.repo.Put(ctx, content)
	if err != nil {
		return nil, false, fmt.Errorf("put ai content: %w", err)
	}
	if !created && !stored.Summary.Equal(content.Summary) {
		c.logger.Warn("kept existing summary for video",
			zap.String("video_id", content.VideoID),
			zap.String("stored_model", stored.Model),
			zap.String("rejected_model", content.Model),
		)
	}
	c.frontSet(ctx, stored)
	return stored, created, nil
}

func (c *Layered) frontGet(ctx context.Context, videoID string) (*domain.AIContent, bool) {
	if c.front == nil {
		return nil, false
	}
	raw, err := c.front.Get(ctx, keyPrefix+videoID)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache front read failed", zap.String("video_id", videoID), zap.Error(err))
		}
		return nil, false
	}
	var content domain.AIContent
	if err := json.Unmarshal(raw, &content); err != nil {
		c.logger.Warn("cache front entry undecodable", zap.String("video_id", videoID), zap.Error(err))
		return nil, false
	}
	return &content, true
}

func (c *Layered) frontSet(ctx context.Context, content *domain.AIContent) {
	if c.front == nil {
		return
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return
	}
	if err := c.front.Set(ctx, keyPrefix+content.VideoID, raw, c.ttl); err != nil {
		c.logger.Warn("cache front write failed", zap.String("video_id", content.VideoID), zap.Error(err))
	}
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	client redis.UniversalClient
}

func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return raw, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// compile-time checks
var (
	_ Store = (*Layered)(nil)
	_ KV    = (*RedisKV)(nil)
)

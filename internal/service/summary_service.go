package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/cache"
	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/ratelimiter"
	"github.com/notifyhub/tubealert/internal/summarizer"
)

// Summary sources reported to the OnSummary hook.
const (
	SummaryFromCache     = "cache"
	SummaryFromGenerated = "generated"
)

// SummaryService resolves a video's summary cache-first. The summarizer is
// only called on a miss, and its result goes through the cache so the first
// stored summary is the one every subscriber sees.
type SummaryService struct {
	cache      cache.Store
	summarizer summarizer.Summarizer
	limiter    *ratelimiter.Limiters
	logger     *zap.Logger
	now        func() time.Time

	onSummary func(source string)
}

// NewSummaryService constructs the service. onSummary is optional (nil = no-op).
func NewSummaryService(
	store cache.Store,
	sum summarizer.Summarizer,
	limiter *ratelimiter.Limiters,
	logger *zap.Logger,
	onSummary func(string),
) *SummaryService {
	if onSummary == nil {
		onSummary = func(string) {}
	}
	return &SummaryService{
		cache: store, summarizer: sum, limiter: limiter,
		logger: logger, now: time.Now, onSummary: onSummary,
	}
}

func (s *SummaryService) Resolve(ctx context.Context, e domain.VideoEvent, transcript string) (*domain.Summary, error) {
	cached, err := s.cache.Get(ctx, e.VideoID)
	switch {
	case err == nil:
		s.onSummary(SummaryFromCache)
		return &cached.Summary, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("read summary cache: %w", err)
	}

	if err := s.limiter.Wait(ctx, ratelimiter.KeySummarizer); err != nil {
		return nil, err
	}

	summary, model, err := s.summarizer.Summarize(ctx, summarizer.Input{
		VideoID:    e.VideoID,
		Title:      e.Title,
		AuthorName: e.AuthorName,
		Transcript: transcript,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize video: %w", err)
	}

	stored, _, err := s.cache.Put(ctx, &domain.AIContent{
		VideoID:   e.VideoID,
		Summary:   *summary,
		Model:     model,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}

	s.onSummary(SummaryFromGenerated)
	s.logger.Info("summary generated",
		zap.String("video_id", e.VideoID),
		zap.String("model", stored.Model),
	)
	return &stored.Summary, nil
}

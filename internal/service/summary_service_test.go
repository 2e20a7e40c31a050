package service_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/service"
	"github.com/notifyhub/tubealert/internal/summarizer"
)

// racingStore always misses on Get and reports that another worker stored
// a summary first on Put.
type racingStore struct {
	winner domain.Summary
}

func (s *racingStore) Get(context.Context, string) (*domain.AIContent, error) {
	return nil, domain.ErrNotFound
}

func (s *racingStore) Put(_ context.Context, c *domain.AIContent) (*domain.AIContent, bool, error) {
	return &domain.AIContent{VideoID: c.VideoID, Summary: s.winner, Model: "other"}, false, nil
}

func TestSummaryService_ReturnsStoredSummaryAfterLostRace(t *testing.T) {
	winner := domain.Summary{BriefSummary: "first", KeyPoints: []string{"a"}}
	sum := &summarizer.MockSummarizer{Summary: domain.Summary{BriefSummary: "second"}}

	var sources []string
	svc := service.NewSummaryService(&racingStore{winner: winner}, sum, nil, zap.NewNop(),
		func(src string) { sources = append(sources, src) })

	got, err := svc.Resolve(context.Background(), scenarioEvent, "transcript")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(winner, *got); diff != "" {
		t.Fatalf("expected the stored summary (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{service.SummaryFromGenerated}, sources); diff != "" {
		t.Fatalf("hook sources mismatch (-want +got):\n%s", diff)
	}
}

package worker_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/tubealert/internal/config"
	"github.com/notifyhub/tubealert/internal/domain"
	"github.com/notifyhub/tubealert/internal/provider"
	"github.com/notifyhub/tubealert/internal/repository"
	"github.com/notifyhub/tubealert/internal/usage"
	"github.com/notifyhub/tubealert/internal/worker"
)

var emailCfg = config.EmailConfig{
	From:       "TubeAlert <alerts@example.com>",
	BatchSize:  10,
	ClaimLease: time.Minute,
}

type emailFixture struct {
	w       *worker.EmailWorker
	repo    *repository.MockNotificationRepository
	prov    *provider.MockProvider
	acc     *usage.MockAccountant
	sent    int
	reasons []string
}

func newEmailFixture() *emailFixture {
	f := &emailFixture{
		repo: repository.NewMockNotificationRepository(),
		prov: &provider.MockProvider{},
		acc:  usage.NewMockAccountant(nil),
	}
	f.w = worker.NewEmailWorker(f.repo, f.prov, f.acc, nil, emailCfg, zap.NewNop(), worker.MetricHooks{
		OnSent:   func(time.Duration) { f.sent++ },
		OnFailed: func(reason string) { f.reasons = append(f.reasons, reason) },
	})
	return f
}

func pending(id, profileID string) *domain.Notification {
	return &domain.Notification{
		ID:           id,
		ProfileID:    profileID,
		ChannelID:    "UC1",
		VideoID:      "abc123",
		Title:        "Test Video",
		EmailContent: "<html><body><h1>Test Video</h1><p>Summary here.</p></body></html>",
		Status:       domain.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestEmailWorker_Delivers(t *testing.T) {
	f := newEmailFixture()
	f.repo.Seed(pending("n1", "p1"))
	f.repo.SetEmail("p1", "p1@example.com")
	f.acc.Add(domain.Subscription{ProfileID: "p1", Status: domain.SubscriptionActive, UsageCount: 4})
	ctx := context.Background()

	claimed, err := f.w.RunCycle(ctx)
	if err != nil || claimed != 1 {
		t.Fatalf("expected 1 claimed, got %d / %v", claimed, err)
	}

	sent := f.prov.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 email sent, got %d", len(sent))
	}
	e := sent[0]
	if e.To != "p1@example.com" || e.From != emailCfg.From || e.IdempotencyKey != "p1:abc123" {
		t.Fatalf("unexpected email envelope: %+v", e)
	}
	if e.Subject != "New video: Test Video" {
		t.Fatalf("unexpected subject %q", e.Subject)
	}
	if !strings.Contains(e.Text, "Summary here.") || strings.Contains(e.Text, "<p>") {
		t.Fatalf("unexpected plain-text body %q", e.Text)
	}

	if s, _ := f.acc.Get("p1"); s.UsageCount != 5 {
		t.Fatalf("expected usage incremented to 5, got %d", s.UsageCount)
	}

	n, _ := f.repo.GetByID(ctx, "n1")
	if n.Status != domain.StatusSent || n.SentAt == nil || n.ProviderMsgID == nil {
		t.Fatalf("expected row marked sent, got %+v", n)
	}
	if f.sent != 1 {
		t.Fatalf("expected sent hook once, got %d", f.sent)
	}
}

func TestEmailWorker_MissingEmailFailsRow(t *testing.T) {
	f := newEmailFixture()
	f.repo.Seed(pending("n1", "p1"))
	ctx := context.Background()

	if _, err := f.w.RunCycle(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, _ := f.repo.GetByID(ctx, "n1")
	if n.Status != domain.StatusFailed || n.ErrorMessage == nil || *n.ErrorMessage != domain.ErrMissingEmail.Error() {
		t.Fatalf("expected row failed with missing email, got %+v", n)
	}
	if len(f.prov.Sent()) != 0 || f.acc.IncrementedBy["p1"] != 0 {
		t.Fatal("nothing should be sent or counted for a missing email")
	}
	if len(f.reasons) != 1 || f.reasons[0] != worker.ReasonMissingEmail {
		t.Fatalf("unexpected failure reasons %v", f.reasons)
	}
}

func TestEmailWorker_ProviderFailureIsTerminal(t *testing.T) {
	f := newEmailFixture()
	f.repo.Seed(pending("n1", "p1"))
	f.repo.SetEmail("p1", "p1@example.com")
	f.prov.Err = errors.New("provider rejected")
	ctx := context.Background()

	if _, err := f.w.RunCycle(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, _ := f.repo.GetByID(ctx, "n1")
	if n.Status != domain.StatusFailed || *n.ErrorMessage != "provider rejected" {
		t.Fatalf("expected row failed with provider error, got %+v", n)
	}
	if f.acc.IncrementedBy["p1"] != 0 {
		t.Fatal("usage must not be counted for a failed send")
	}
}

func TestEmailWorker_MarkSentFailureKeepsRowPendingAndLeased(t *testing.T) {
	f := newEmailFixture()
	f.repo.Seed(pending("n1", "p1"))
	f.repo.SetEmail("p1", "p1@example.com")
	f.repo.MarkSentErr = errors.New("db down")
	ctx := context.Background()

	if _, err := f.w.RunCycle(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ := f.repo.GetByID(ctx, "n1")
	if n.Status != domain.StatusPending {
		t.Fatalf("expected row to stay pending, got %s", n.Status)
	}

	// The lease keeps the row from being resent by the next cycle.
	claimed, err := f.w.RunCycle(ctx)
	if err != nil || claimed != 0 {
		t.Fatalf("expected leased row not to be claimed, got %d / %v", claimed, err)
	}
	if len(f.prov.Sent()) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(f.prov.Sent()))
	}
}

func TestEmailWorker_BatchSize(t *testing.T) {
	f := newEmailFixture()
	for _, id := range []string{"a", "b", "c"} {
		n := pending("n-"+id, id)
		f.repo.Seed(n)
		f.repo.SetEmail(id, id+"@example.com")
	}
	cfg := emailCfg
	cfg.BatchSize = 2
	w := worker.NewEmailWorker(f.repo, f.prov, f.acc, nil, cfg, zap.NewNop(), worker.MetricHooks{})

	claimed, err := w.RunCycle(context.Background())
	if err != nil || claimed != 2 {
		t.Fatalf("expected 2 claimed, got %d / %v", claimed, err)
	}
}

func TestEmailWorker_ClaimError(t *testing.T) {
	f := newEmailFixture()
	f.repo.ClaimPendingErr = errors.New("db down")
	if _, err := f.w.RunCycle(context.Background()); err == nil {
		t.Fatal("expected claim error to surface")
	}
}

func TestEmailWorker_ResendAfterLostMarkSentCountsUsageOnce(t *testing.T) {
	f := newEmailFixture()
	f.repo.Seed(pending("n1", "p1"))
	f.repo.SetEmail("p1", "p1@example.com")
	f.acc.Add(domain.Subscription{ProfileID: "p1", Status: domain.SubscriptionActive})
	f.repo.MarkSentErr = errors.New("db down")
	ctx := context.Background()

	if _, err := f.w.RunCycle(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.repo.MarkSentErr = nil
	f.repo.ExpireLeases()
	if claimed, err := f.w.RunCycle(ctx); err != nil || claimed != 1 {
		t.Fatalf("expected the row to be claimed again, got %d / %v", claimed, err)
	}

	sent := f.prov.Sent()
	if len(sent) != 2 || sent[0].IdempotencyKey != sent[1].IdempotencyKey {
		t.Fatalf("expected two sends with one idempotency key, got %+v", sent)
	}
	if s, _ := f.acc.Get("p1"); s.UsageCount != 1 {
		t.Fatalf("expected usage counted once, got %d", s.UsageCount)
	}
	if n, _ := f.repo.GetByID(ctx, "n1"); n.Status != domain.StatusSent {
		t.Fatalf("expected row sent after the second cycle, got %s", n.Status)
	}
}

func TestEmailWorker_UsesStoredSubject(t *testing.T) {
	f := newEmailFixture()
	n := pending("n1", "p1")
	n.Subject = "New video from Chan: Test Video"
	f.repo.Seed(n)
	f.repo.SetEmail("p1", "p1@example.com")

	if _, err := f.w.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := f.prov.Sent()
	if len(sent) != 1 || sent[0].Subject != "New video from Chan: Test Video" {
		t.Fatalf("expected stored subject, got %+v", sent)
	}
}

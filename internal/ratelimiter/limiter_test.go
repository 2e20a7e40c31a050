package ratelimiter_test

import (
	"context"
	"testing"

	"github.com/notifyhub/tubealert/internal/ratelimiter"
)

func TestLimiters_UnknownKeyIsUnlimited(t *testing.T) {
	l := ratelimiter.New(map[string]int{ratelimiter.KeyEmail: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An unlimited key never touches ctx.
	if err := l.Wait(ctx, "other"); err != nil {
		t.Fatalf("expected no error for unlimited key, got %v", err)
	}
}

func TestLimiters_BurstThenCancelled(t *testing.T) {
	l := ratelimiter.New(map[string]int{ratelimiter.KeyEmail: 1})

	if err := l.Wait(context.Background(), ratelimiter.KeyEmail); err != nil {
		t.Fatalf("first token should be available: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, ratelimiter.KeyEmail); err == nil {
		t.Fatal("expected error waiting on exhausted limiter with cancelled ctx")
	}
}

func TestLimiters_Nil(t *testing.T) {
	var l *ratelimiter.Limiters
	if err := l.Wait(context.Background(), ratelimiter.KeyEmail); err != nil {
		t.Fatalf("nil limiters should not block: %v", err)
	}
}

func TestLimiters_ZeroRateDisabled(t *testing.T) {
	l := ratelimiter.New(map[string]int{ratelimiter.KeySummarizer: 0})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, ratelimiter.KeySummarizer); err != nil {
		t.Fatalf("zero rate should disable limiting: %v", err)
	}
}

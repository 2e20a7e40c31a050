package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Keys for the outbound dependencies that are rate limited.
const (
	KeyEmail      = "email"
	KeySummarizer = "summarizer"
)

// Limiters holds one token bucket per outbound dependency. Burst equals the
// rate so nothing is "saved up" beyond the per-second maximum.
// Keys without a configured limiter are not limited.
type Limiters struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// New creates Limiters from a map of key → requests per second. A rate of
// zero or less leaves the key unlimited.
func New(ratesPerSec map[string]int) *Limiters {
	l := &Limiters{limiters: make(map[string]*rate.Limiter, len(ratesPerSec))}
	for key, perSec := range ratesPerSec {
		if perSec <= 0 {
			continue
		}
		l.limiters[key] = rate.NewLimiter(rate.Limit(perSec), perSec)
	}
	return l
}

// Wait blocks until the key's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *Limiters) Wait(ctx context.Context, key string) error {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	lim, ok := l.limiters[key]
	l.mu.RUnlock()
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}

package adapter

import (
	"sync"
	"time"
)

// TokenBucket is a simple token-bucket rate limiter owned by a single
// adapter instance, refilling at refillRate tokens/second up to capacity.
// Mirrors the sliding-window call budget the other retrieved connectors
// apply per-platform (e.g. Meta's documented call limits), reshaped as a
// bucket so callers can both check and reserve in one call.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(capacity float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

func (b *TokenBucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
}

// Allow attempts to take n tokens. On success it returns true. On failure
// it returns false and the duration the caller should wait before the
// bucket will have n tokens available — the retry_after value surfaced to
// callers per spec §4.1/§7.
func (b *TokenBucket) Allow(n float64) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	if b.tokens >= n {
		b.tokens -= n
		return true, 0
	}
	deficit := n - b.tokens
	wait := time.Duration(deficit/b.refillRate*1000) * time.Millisecond
	return false, wait
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

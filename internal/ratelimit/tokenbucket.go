package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a live bucket holding up to size tokens, replenished at a
// rate of size tokens per refillTime milliseconds. An optional one-time
// burst grants extra tokens that are consumed before the steady-state
// budget is touched.
type TokenBucket struct {
	mu sync.Mutex

	size         uint64
	initialBurst uint64
	refillTime   uint64 // milliseconds

	budget       uint64
	oneTimeBurst uint64
	lastRefill   time.Time
}

// NewTokenBucket returns a bucket with a full budget. A bucket with zero
// size or zero refill time cannot throttle anything, so nil is returned to
// mean "this axis is disabled".
func NewTokenBucket(size uint64, oneTimeBurst *uint64, refillTimeMS uint64) *TokenBucket {
	if size == 0 || refillTimeMS == 0 {
		return nil
	}

	var burst uint64
	if oneTimeBurst != nil {
		burst = *oneTimeBurst
	}

	return &TokenBucket{
		size:         size,
		initialBurst: burst,
		refillTime:   refillTimeMS,
		budget:       size,
		oneTimeBurst: burst,
		lastRefill:   time.Now(),
	}
}

// replenish tops up the budget from the elapsed time since the last refill.
// The refill reference point only advances by the time actually converted
// into tokens, so fractional progress is never lost.
func (b *TokenBucket) replenish(now time.Time) {
	elapsedMS := uint64(now.Sub(b.lastRefill).Milliseconds())
	tokens := elapsedMS * b.size / b.refillTime
	if tokens == 0 {
		return
	}

	b.budget += tokens
	if b.budget > b.size {
		b.budget = b.size
	}

	spentMS := tokens * b.refillTime / b.size
	b.lastRefill = b.lastRefill.Add(time.Duration(spentMS) * time.Millisecond)
}

// Consume attempts to take tokens from the bucket, drawing from the
// one-time burst allowance first. It reports whether the request fit.
func (b *TokenBucket) Consume(tokens uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.oneTimeBurst > 0 {
		if tokens <= b.oneTimeBurst {
			b.oneTimeBurst -= tokens
			return true
		}
		// An oversized request is not split across the burst allowance
		// and the budget; it is served from the budget alone.
	}

	b.replenish(time.Now())

	if tokens > b.budget {
		return false
	}

	b.budget -= tokens
	return true
}

// Capacity returns the configured maximum token count.
func (b *TokenBucket) Capacity() uint64 {
	return b.size
}

// OneTimeBurst returns the configured one-time burst allowance.
func (b *TokenBucket) OneTimeBurst() uint64 {
	return b.initialBurst
}

// RefillTimeMS returns the configured refill window in milliseconds.
func (b *TokenBucket) RefillTimeMS() uint64 {
	return b.refillTime
}

// Package ratelimit implements the dual-bucket rate limiter attached to
// emulated devices: one token bucket gating bytes per second and one gating
// operations per second, each independently optional.
package ratelimit

// TokenType selects which bucket of a RateLimiter a consumption is
// charged against.
type TokenType int

const (
	// TokenBytes charges the bandwidth bucket.
	TokenBytes TokenType = iota
	// TokenOps charges the operations bucket.
	TokenOps
)

// RateLimiter throttles a device along two independent axes. A nil bucket
// means that axis is unthrottled.
type RateLimiter struct {
	bandwidth *TokenBucket
	ops       *TokenBucket
}

// New builds a rate limiter from the raw parameters of its two buckets.
// A bucket whose size or refill time is zero is left disabled rather than
// rejected. The error return is reserved for resource-acquisition failures
// while setting up the limiter; the parameter values themselves never
// cause one.
func New(
	bwSize uint64, bwOneTimeBurst *uint64, bwRefillTimeMS uint64,
	opsSize uint64, opsOneTimeBurst *uint64, opsRefillTimeMS uint64,
) (*RateLimiter, error) {
	return &RateLimiter{
		bandwidth: NewTokenBucket(bwSize, bwOneTimeBurst, bwRefillTimeMS),
		ops:       NewTokenBucket(opsSize, opsOneTimeBurst, opsRefillTimeMS),
	}, nil
}

// Consume charges tokens against the selected bucket and reports whether
// the activity may proceed. A disabled bucket always allows.
func (l *RateLimiter) Consume(tokens uint64, t TokenType) bool {
	var b *TokenBucket
	switch t {
	case TokenBytes:
		b = l.bandwidth
	case TokenOps:
		b = l.ops
	}

	if b == nil {
		return true
	}

	return b.Consume(tokens)
}

// Bandwidth returns the bytes-per-second bucket, or nil if that axis is
// unthrottled.
func (l *RateLimiter) Bandwidth() *TokenBucket {
	return l.bandwidth
}

// Ops returns the operations-per-second bucket, or nil if that axis is
// unthrottled.
func (l *RateLimiter) Ops() *TokenBucket {
	return l.ops
}

// Disabled reports whether neither axis is throttled.
func (l *RateLimiter) Disabled() bool {
	return l.bandwidth == nil && l.ops == nil
}

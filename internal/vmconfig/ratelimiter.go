// Package vmconfig holds the public-facing, stateless configuration
// structures accepted by the admin API, together with their validation and
// their conversion into live runtime objects.
package vmconfig

import (
	"bytes"
	"encoding/json"

	"microvmd.zzh.net/internal/ratelimit"
)

// TokenBucketConfig is a stateless description of one live token bucket.
// No range validation happens at this layer: zero values are structurally
// legal and simply produce a disabled bucket downstream.
type TokenBucketConfig struct {
	Size         uint64  `json:"size"`
	OneTimeBurst *uint64 `json:"one_time_burst,omitempty"`
	RefillTime   uint64  `json:"refill_time"`
}

// ToBucket converts the description into a live bucket. A zero size or
// refill time yields nil (axis disabled).
func (c TokenBucketConfig) ToBucket() *ratelimit.TokenBucket {
	return ratelimit.NewTokenBucket(c.Size, c.OneTimeBurst, c.RefillTime)
}

// RateLimiterConfig is a stateless description of a dual-bucket rate
// limiter. A nil bucket means that axis is unthrottled. The config value,
// not the live limiter, is the durable source of truth across updates.
type RateLimiterConfig struct {
	Bandwidth *TokenBucketConfig `json:"bandwidth,omitempty"`
	Ops       *TokenBucketConfig `json:"ops,omitempty"`
}

// DecodeRateLimiterConfig deserializes untrusted input, rejecting any key
// other than "bandwidth" and "ops".
func DecodeRateLimiterConfig(data []byte) (RateLimiterConfig, error) {
	var cfg RateLimiterConfig

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	err := dec.Decode(&cfg)
	if err != nil {
		return RateLimiterConfig{}, err
	}

	return cfg, nil
}

// Update merges newConfig into c. Each axis present in newConfig replaces
// the stored bucket wholesale; an absent axis leaves the stored bucket
// untouched. There is deliberately no field-level merge within a bucket: a
// caller changing only the size must resupply the whole bucket.
func (c *RateLimiterConfig) Update(newConfig RateLimiterConfig) {
	if newConfig.Bandwidth != nil {
		c.Bandwidth = newConfig.Bandwidth
	}
	if newConfig.Ops != nil {
		c.Ops = newConfig.Ops
	}
}

// ToRateLimiter converts the description into a live limiter. An absent
// axis becomes a disabled bucket. Odd values (zero size, zero refill) are
// not errors; only a failure inside the limiter constructor surfaces here.
func (c RateLimiterConfig) ToRateLimiter() (*ratelimit.RateLimiter, error) {
	var bw, ops TokenBucketConfig
	if c.Bandwidth != nil {
		bw = *c.Bandwidth
	}
	if c.Ops != nil {
		ops = *c.Ops
	}

	return ratelimit.New(
		bw.Size, bw.OneTimeBurst, bw.RefillTime,
		ops.Size, ops.OneTimeBurst, ops.RefillTime,
	)
}

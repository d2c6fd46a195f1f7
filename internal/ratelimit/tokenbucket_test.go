package ratelimit

import (
	"testing"
	"time"
)

func u64(v uint64) *uint64 {
	return &v
}

func TestNewTokenBucketDisabled(t *testing.T) {
	if b := NewTokenBucket(0, nil, 1000); b != nil {
		t.Fatal("zero size should yield a nil bucket")
	}
	if b := NewTokenBucket(1000, nil, 0); b != nil {
		t.Fatal("zero refill time should yield a nil bucket")
	}
}

func TestTokenBucketAccessors(t *testing.T) {
	b := NewTokenBucket(1024*1024, u64(1024), 1000)

	if b.Capacity() != 1024*1024 {
		t.Fatalf("capacity: expected %d, got %d", 1024*1024, b.Capacity())
	}
	if b.OneTimeBurst() != 1024 {
		t.Fatalf("one-time burst: expected 1024, got %d", b.OneTimeBurst())
	}
	if b.RefillTimeMS() != 1000 {
		t.Fatalf("refill time: expected 1000, got %d", b.RefillTimeMS())
	}

	// Consuming from the burst allowance must not change the reported
	// configured values.
	if !b.Consume(512) {
		t.Fatal("consume from burst should succeed")
	}
	if b.OneTimeBurst() != 1024 {
		t.Fatalf("one-time burst after consume: expected 1024, got %d", b.OneTimeBurst())
	}

	b = NewTokenBucket(100, nil, 1000)
	if b.OneTimeBurst() != 0 {
		t.Fatalf("absent burst: expected 0, got %d", b.OneTimeBurst())
	}
}

func TestConsumeBurstBeforeBudget(t *testing.T) {
	// Refill window long enough that replenishment is negligible here.
	b := NewTokenBucket(100, u64(50), 3_600_000)

	if !b.Consume(30) {
		t.Fatal("expected first burst consume to succeed")
	}
	if !b.Consume(20) {
		t.Fatal("expected second burst consume to succeed")
	}
	// Burst exhausted; the full budget must still be available.
	if !b.Consume(100) {
		t.Fatal("expected budget consume to succeed")
	}
	if b.Consume(1) {
		t.Fatal("expected an empty bucket to refuse")
	}
}

func TestConsumeOversizedRequestSkipsBurst(t *testing.T) {
	b := NewTokenBucket(100, u64(10), 3_600_000)

	// Larger than the remaining burst: served from the budget alone.
	if !b.Consume(50) {
		t.Fatal("expected budget to cover the oversized request")
	}
	// The burst allowance is still intact.
	if !b.Consume(10) {
		t.Fatal("expected the burst allowance to remain available")
	}
	if !b.Consume(50) {
		t.Fatal("expected the remaining budget to be available")
	}
	if b.Consume(1) {
		t.Fatal("expected an empty bucket to refuse")
	}
}

func TestReplenish(t *testing.T) {
	b := NewTokenBucket(1000, nil, 100)

	if !b.Consume(1000) {
		t.Fatal("expected to drain the full budget")
	}
	if b.Consume(1) {
		t.Fatal("expected the drained bucket to refuse")
	}

	// After a whole refill window (plus slack) the bucket is full again.
	time.Sleep(150 * time.Millisecond)

	if !b.Consume(1000) {
		t.Fatal("expected a full budget after the refill window")
	}
}

func TestRateLimiterDisabledAxes(t *testing.T) {
	rl, err := New(0, nil, 0, 0, nil, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !rl.Disabled() {
		t.Fatal("expected the limiter to be disabled")
	}
	if !rl.Consume(1<<40, TokenBytes) || !rl.Consume(1<<40, TokenOps) {
		t.Fatal("a disabled axis must always allow")
	}
}

func TestRateLimiterIndependentAxes(t *testing.T) {
	rl, err := New(
		1024, u64(64), 1000,
		10, nil, 3_600_000,
	)
	if err != nil {
		t.Fatal(err)
	}

	bw := rl.Bandwidth()
	if bw == nil || bw.Capacity() != 1024 || bw.OneTimeBurst() != 64 || bw.RefillTimeMS() != 1000 {
		t.Fatalf("unexpected bandwidth bucket: %+v", bw)
	}
	ops := rl.Ops()
	if ops == nil || ops.Capacity() != 10 || ops.OneTimeBurst() != 0 {
		t.Fatalf("unexpected ops bucket: %+v", ops)
	}

	// Draining the ops bucket must not affect the bandwidth bucket.
	if !rl.Consume(10, TokenOps) {
		t.Fatal("expected ops budget to cover the request")
	}
	if rl.Consume(1, TokenOps) {
		t.Fatal("expected the ops bucket to refuse")
	}
	if !rl.Consume(512, TokenBytes) {
		t.Fatal("expected the bandwidth bucket to be unaffected")
	}
}

package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestDetector_FirstRequestNotDelayed(t *testing.T) {
	d := NewDetector(time.Second)
	start := time.Now()
	if err := d.WaitForRateLimit(context.Background(), "example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first request waited %v, want no wait", elapsed)
	}
}

func TestDetector_SecondRequestWaits(t *testing.T) {
	d := NewDetector(50 * time.Millisecond)
	ctx := context.Background()
	if err := d.WaitForRateLimit(ctx, "example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Now()
	if err := d.WaitForRateLimit(ctx, "example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("second request waited only %v, want close to 50ms", elapsed)
	}
}

func TestDetector_IndependentDomains(t *testing.T) {
	d := NewDetector(time.Second)
	ctx := context.Background()
	_ = d.WaitForRateLimit(ctx, "a.com")
	start := time.Now()
	_ = d.WaitForRateLimit(ctx, "b.com")
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("different domain waited %v, want no wait", elapsed)
	}
}

func TestDetector_FailureWidensInterval(t *testing.T) {
	d := NewDetector(time.Second)
	d.RecordFailure("x.com")
	if got := d.Interval("x.com"); got != 2*time.Second {
		t.Errorf("interval after 1 failure = %v, want 2s", got)
	}
	d.RecordFailure("x.com")
	d.RecordFailure("x.com")
	d.RecordFailure("x.com")
	if got := d.Interval("x.com"); got != 8*time.Second {
		t.Errorf("interval should cap at 8x base, got %v", got)
	}
	d.RecordSuccess("x.com")
	if got := d.Interval("x.com"); got != time.Second {
		t.Errorf("interval after success = %v, want base 1s", got)
	}
}

func TestDetector_ContextCancelAbortsWait(t *testing.T) {
	d := NewDetector(time.Minute)
	ctx := context.Background()
	_ = d.WaitForRateLimit(ctx, "slow.com")

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := d.WaitForRateLimit(cancelCtx, "slow.com")
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled wait took %v", elapsed)
	}
}

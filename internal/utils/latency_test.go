package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(8)
	for i := 1; i <= 8; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}

	if got := tracker.Count(); got != 8 {
		t.Fatalf("expected 8 samples, got %d", got)
	}
	if got := tracker.Percentile(0); got != time.Millisecond {
		t.Fatalf("p0 = %v, want 1ms", got)
	}
	if got := tracker.Percentile(100); got != 8*time.Millisecond {
		t.Fatalf("p100 = %v, want 8ms", got)
	}
	if got := tracker.Percentile(50); got != 4*time.Millisecond {
		t.Fatalf("p50 = %v, want 4ms", got)
	}
}

func TestLatencyTrackerEvictsOldest(t *testing.T) {
	tracker := NewLatencyTracker(4)
	for i := 1; i <= 6; i++ {
		tracker.Observe(time.Duration(i) * time.Second)
	}

	if got := tracker.Count(); got != 4 {
		t.Fatalf("expected ring to cap at 4, got %d", got)
	}
	// Samples 1s and 2s were evicted.
	if got := tracker.Percentile(0); got != 3*time.Second {
		t.Fatalf("p0 = %v, want 3s", got)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(4)
	if got := tracker.Percentile(95); got != 0 {
		t.Fatalf("expected zero without samples, got %v", got)
	}
}

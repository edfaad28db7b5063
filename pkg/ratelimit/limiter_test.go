package ratelimit

import "testing"

func TestLimiterBoundsClient(t *testing.T) {
	l := NewLimiter(2)

	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow("client-a") {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed %d burst submissions, want 2", allowed)
	}
}

func TestLimiterIsolatesClients(t *testing.T) {
	l := NewLimiter(2)

	for i := 0; i < 2; i++ {
		if !l.Allow("client-a") {
			t.Fatal("client-a burst denied early")
		}
	}
	if !l.Allow("client-b") {
		t.Error("client-b denied by client-a's usage")
	}
}

func TestLimiterGlobalCap(t *testing.T) {
	l := NewLimiter(2)

	// Global bucket caps at 4x the per-client rate regardless of how
	// many distinct clients submit.
	allowed := 0
	for i := 0; i < 100; i++ {
		if l.Allow(string(rune('a' + i%26))) {
			allowed++
		}
	}
	if allowed > 8 {
		t.Errorf("allowed %d across clients, global cap is 8", allowed)
	}
}

func TestLimiterUnlimited(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 1000; i++ {
		if !l.Allow("client") {
			t.Fatal("unlimited limiter denied a submission")
		}
	}
}

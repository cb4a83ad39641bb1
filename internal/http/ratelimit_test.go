package http

import (
	"testing"
	"time"
)

func TestIPRateLimiterPerIP(t *testing.T) {
	rl := NewIPRateLimiter(time.Hour, 1)

	if !rl.GetLimiter("10.0.0.1").Allow() {
		t.Fatalf("first request should pass")
	}
	if rl.GetLimiter("10.0.0.1").Allow() {
		t.Fatalf("second request within the window should be limited")
	}
	if !rl.GetLimiter("10.0.0.2").Allow() {
		t.Fatalf("other IPs have their own bucket")
	}
}

func TestIPRateLimiterPrune(t *testing.T) {
	rl := NewIPRateLimiter(time.Hour, 1)
	rl.GetLimiter("10.0.0.1")
	rl.GetLimiter("10.0.0.2")

	rl.mu.Lock()
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	if n := rl.Prune(10 * time.Minute); n != 1 {
		t.Fatalf("pruned %d visitors, want 1", n)
	}
	if _, ok := rl.visitors["10.0.0.2"]; !ok {
		t.Fatalf("active visitor pruned")
	}
}

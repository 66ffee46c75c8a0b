package security

import (
	"sync"
	"sync/atomic"
	"testing"
)

// Test Rate Limit Enforcement
func TestRateLimiter_BasicEnforcement(t *testing.T) {
	limiter := NewRateLimiter(2.0, 2) // 2 requests per second, burst of 2

	clientID := "client1"

	// First two requests should succeed (burst)
	if !limiter.Allow(clientID) {
		t.Error("first request should be allowed")
	}
	if !limiter.Allow(clientID) {
		t.Error("second request should be allowed")
	}

	// Third request should fail (rate limited)
	if limiter.Allow(clientID) {
		t.Error("third request should be rate limited")
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1.0, 1)

	if !limiter.Allow("a") {
		t.Error("client a should be allowed")
	}
	if limiter.Allow("a") {
		t.Error("client a should be limited")
	}
	if !limiter.Allow("b") {
		t.Error("client b should not be affected by client a")
	}
	if got := limiter.Clients(); got != 2 {
		t.Errorf("Clients() = %d, want 2", got)
	}
}

func TestRateLimiter_DisabledWhenNil(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	if limiter != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	for i := 0; i < 100; i++ {
		if !limiter.Allow("client") {
			t.Fatal("nil limiter must allow every request")
		}
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewRateLimiter(1.0, 5)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got > 5 {
		t.Errorf("allowed %d requests, burst is 5", got)
	}
}

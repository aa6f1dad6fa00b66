package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(60, 2)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third immediate request should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other IPs have their own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("one token per second should refill")
	}

	now = now.Add(time.Hour)
	rl.Allow("10.0.0.3")
	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("idle visitor should have been swept")
	}
}

func TestIPRateLimiterSweepsOncePerInterval(t *testing.T) {
	rl := NewIPRateLimiter(60, 5)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.ttl = time.Second

	rl.Allow("10.0.0.1")
	now = now.Add(30 * time.Second)
	rl.Allow("10.0.0.2")
	if _, ok := rl.visitors["10.0.0.1"]; !ok {
		t.Fatal("swept before the interval elapsed")
	}
	if !rl.lastSweep.Equal(now.Add(-30 * time.Second)) {
		t.Errorf("lastSweep = %v", rl.lastSweep)
	}

	now = now.Add(30 * time.Second)
	rl.Allow("10.0.0.2")
	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("idle visitor should be swept once the interval elapsed")
	}
	if !rl.lastSweep.Equal(now) {
		t.Errorf("lastSweep = %v, want %v", rl.lastSweep, now)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewIPRateLimiter(60, 1)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

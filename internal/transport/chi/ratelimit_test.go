package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_PerClientBurst(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("third request within the same instant should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("bucket should refill after one second")
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(idleLimiterTTL + time.Second)
	l.Allow("b")
	l.evictIdle()

	if _, ok := l.clients["a"]; ok {
		t.Error("idle client should be evicted")
	}
	if _, ok := l.clients["b"]; !ok {
		t.Error("active client should be kept")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	handler := l.Middleware()(okHandler())

	do := func(path string) int {
		req := httptest.NewRequest("GET", path, http.NoBody)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if got := do("/products"); got != http.StatusOK {
		t.Fatalf("first request: got %d, want 200", got)
	}
	if got := do("/products"); got != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", got)
	}
	if got := do("/health"); got != http.StatusOK {
		t.Fatalf("health is exempt: got %d, want 200", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.RemoteAddr = "192.168.1.7:40000"
	if got := clientIP(req); got != "192.168.1.7" {
		t.Errorf("got %q", got)
	}
	req.RemoteAddr = "no-port"
	if got := clientIP(req); got != "no-port" {
		t.Errorf("got %q", got)
	}
}

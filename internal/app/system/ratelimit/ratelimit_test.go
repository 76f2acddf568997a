package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLimiter_WindowAndExpiry(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	l := New(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d denied", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("fourth request allowed")
	}
	if got := l.Remaining("10.0.0.1"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
	if !l.Allow("10.0.0.2") {
		t.Error("other key shares the window")
	}

	now = now.Add(61 * time.Second)
	if got := l.Remaining("10.0.0.1"); got != 3 {
		t.Errorf("Remaining after expiry = %d, want 3", got)
	}
	if !l.Allow("10.0.0.1") {
		t.Error("request after expiry denied")
	}

	l.Reset("10.0.0.1")
	if got := l.Remaining("10.0.0.1"); got != 3 {
		t.Errorf("Remaining after reset = %d, want 3", got)
	}
}

func TestLimiter_SweepsExpiredWindows(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	l := New(1, time.Second)
	l.now = func() time.Time { return now }

	l.Allow("stale")
	now = now.Add(time.Minute)
	for i := 0; i < sweepEvery; i++ {
		l.Allow("fresh")
	}
	l.mu.Lock()
	_, ok := l.windows["stale"]
	l.mu.Unlock()
	if ok {
		t.Error("expired window survived a sweep")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded chain", "203.0.113.7, 10.0.0.1", "", "10.0.0.1:443", "203.0.113.7"},
		{"real ip", "", " 198.51.100.2 ", "10.0.0.1:443", "198.51.100.2"},
		{"remote with port", "", "", "192.0.2.9:51234", "192.0.2.9"},
		{"remote without port", "", "", "192.0.2.9", "192.0.2.9"},
		// Headers win over the socket address; only a proxy in front keeps them honest.
		{"header over remote", "198.51.100.99", "", "192.0.2.9:51234", "198.51.100.99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/login-gate", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Middleware(New(1, time.Minute), zap.NewNop())(ok)

	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/signup", nil)
		r.RemoteAddr = "192.0.2.1:1000"
		h.ServeHTTP(rec, r)
		return rec
	}

	if rec := serve(); rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := serve()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}

	if Middleware(nil, zap.NewNop())(ok) == nil {
		t.Error("nil limiter should pass through")
	}
}

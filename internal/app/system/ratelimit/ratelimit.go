// internal/app/system/ratelimit/ratelimit.go

// Package ratelimit throttles the unauthenticated endpoints (signup and the
// login gate) with a fixed-window counter per client IP.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/collegehub/internal/app/system/respond"
	"go.uber.org/zap"
)

// sweepEvery is how many Allow calls pass between sweeps of expired windows.
const sweepEvery = 256

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use and runs no background goroutine.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	calls   int
	now     func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per key each period.
func New(limit int, period time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow records one request for key and reports whether it is within the
// limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweepLocked(now)
	}

	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.period)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset clears key's window.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}

// Middleware rejects requests over the per-IP limit with 429 and a
// Retry-After header. A nil limiter passes everything through.
func Middleware(l *Limiter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !l.Allow(ip) {
				log.Info("rate limited", zap.String("ip", ip), zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", strconv.Itoa(int(l.period.Seconds())))
				respond.JSON(w, http.StatusTooManyRequests, map[string]string{
					"error": "Too many requests. Please wait a minute before trying again.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
//
// The headers are taken at face value. The service must sit behind a trusted
// proxy that overwrites them; exposed directly, a client can pick its own key
// and step around the limit.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Package timeouts holds the deadlines handlers put on store operations.
//
//   - Ping: health checks
//   - Fetch: a full refresh of one view (the N+1 walk over a role collection)
//   - Mutation: a single approve, reject, remove, signup or lookup
//
// Values start at their defaults and are set once at startup by Configure.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing     = 2 * time.Second
	DefaultFetch    = 30 * time.Second
	DefaultMutation = 10 * time.Second
)

var (
	mu       sync.RWMutex
	ping     = DefaultPing
	fetch    = DefaultFetch
	mutation = DefaultMutation
)

// Ping returns the timeout for connectivity checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Fetch returns the timeout for one refresh.
func Fetch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return fetch
}

// Mutation returns the timeout for single-record writes and lookups.
func Mutation() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return mutation
}

// Config holds timeout values. Zero values keep the current setting.
type Config struct {
	Ping     time.Duration
	Fetch    time.Duration
	Mutation time.Duration
}

// Configure overrides the non-zero values in cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Fetch > 0 {
		fetch = cfg.Fetch
	}
	if cfg.Mutation > 0 {
		mutation = cfg.Mutation
	}
}

// Reset restores the defaults. Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	fetch = DefaultFetch
	mutation = DefaultMutation
}

// Current returns the active configuration, for logging.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Fetch: fetch, Mutation: mutation}
}

// WithTimeout creates a context with timeout whose cancel function logs a
// warning when the deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Mutation(), h.Log, "approve")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}

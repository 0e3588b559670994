// Package ratelimit implements fixed-window admission control per client key.
//
// A fixed window lets a client burst up to twice the nominal rate across a
// window boundary; in exchange each key costs one counter and one deadline.
package ratelimit

import (
	"context"
	"time"

	"github.com/techchat/server/internal/agent/model"
	logx "github.com/techchat/server/pkg/logger"
)

const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 45
)

// Store records one hit for key and reports the post-increment count and
// the end of the window the hit landed in.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (count int, resetAt time.Time, err error)
}

// Decision is the outcome of one admission check.
type Decision struct {
	Admitted   bool
	RetryAfter time.Duration
}

// RetryAfterMs returns RetryAfter in whole milliseconds.
func (d Decision) RetryAfterMs() int64 {
	return d.RetryAfter.Milliseconds()
}

type Limiter struct {
	store       Store
	window      time.Duration
	maxRequests int
}

// NewLimiter builds a limiter; non-positive settings fall back to 45 per 60s.
func NewLimiter(store Store, cfg model.RateLimitConfig) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{store: store, window: cfg.Window, maxRequests: cfg.MaxRequests}
}

// Admit counts a request for key. It rejects once the count within the
// current window exceeds the maximum; a store failure admits the request.
func (l *Limiter) Admit(ctx context.Context, key string, now time.Time) Decision {
	count, resetAt, err := l.store.Hit(ctx, key, now, l.window)
	if err != nil {
		logx.Warn().Err(err).Str("client", key).Msg("rate limit store failed; admitting request")
		return Decision{Admitted: true}
	}
	if count <= l.maxRequests {
		return Decision{Admitted: true}
	}

	retry := resetAt.Sub(now)
	if retry < time.Millisecond {
		retry = time.Millisecond
	}
	return Decision{Admitted: false, RetryAfter: retry}
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// MaxRequests returns the per-window admission limit.
func (l *Limiter) MaxRequests() int {
	return l.maxRequests
}

package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/techchat/server/internal/agent/ratelimit"
	logx "github.com/techchat/server/pkg/logger"
)

// RateLimit gates requests per client address before they reach the
// handler. A nil limiter lets everything through.
func RateLimit(limiter *ratelimit.Limiter, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			d := limiter.Admit(r.Context(), key, now())
			if !d.Admitted {
				logx.Warn().
					Str("client", key).
					Int64("retry_after_ms", d.RetryAfterMs()).
					Msg("rate limit exceeded")
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{
					Success:      false,
					Error:        "Too many requests. Please slow down.",
					RetryAfterMs: d.RetryAfterMs(),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the request's remote host. It is the socket peer unless
// RealIP ran for a trusted proxy.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

// RequestLogger logs one line per request through zerolog.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logx.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("client", clientKey(r)).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

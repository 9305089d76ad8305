package ratelimit

import (
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"quickbites-dispatch/internal/logx"
)

// Middleware rejects requests whose key exceeded its bucket. The key is
// pluggable so location pushes can limit per courier id instead of per
// client address.
type Middleware struct {
	logger  logx.Logger
	counter prometheus.Counter
	limiter Limiter
	keyFn   KeyFunc
}

// New creates a Middleware. A nil limiter disables limiting; a nil keyFn
// falls back to the client IP.
func New(logger logx.Logger, counter prometheus.Counter, limiter Limiter, keyFn KeyFunc) *Middleware {
	if limiter == nil {
		limiter = NopLimiter{}
	}
	if keyFn == nil {
		keyFn = ClientIP
	}
	return &Middleware{
		logger:  logger,
		counter: counter,
		limiter: limiter,
		keyFn:   keyFn,
	}
}

// Handler returns chi-style middleware.
func (m *Middleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := m.keyFn(r)

			if !m.limiter.Allow(key) {
				if m.counter != nil {
					m.counter.Inc()
				}
				m.logger.Warn("rate limit exceeded",
					logx.String("key", key),
					logx.String("method", r.Method),
					logx.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				if _, err := io.WriteString(w, `{"error":"too many requests"}`); err != nil {
					// the client may have dropped the connection
					m.logger.Debug("rate limit response write failed",
						logx.String("key", key),
						logx.Any("err", err),
					)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// URLParamKey keys the limit by a chi URL parameter. Only meaningful on
// route-scoped middleware, where the route context is already populated.
func URLParamKey(name string) KeyFunc {
	return func(r *http.Request) string {
		if v := chi.URLParam(r, name); v != "" {
			return v
		}
		return ClientIP(r)
	}
}

// ClientIP is the default key function.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

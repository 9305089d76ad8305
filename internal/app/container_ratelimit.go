package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"quickbites-dispatch/internal/config"
	"quickbites-dispatch/internal/http/middleware/ratelimit"
	"quickbites-dispatch/internal/logx"
)

// newLocationLimiter budgets location pushes per courier per minute.
func newLocationLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	limit := cfg.Location.PushesPerMinute
	if limit <= 0 {
		return ratelimit.NopLimiter{}
	}
	return ratelimit.NewTokenBucketPerWindow(clock, limit, time.Minute, 10*time.Minute, 100_000)
}

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

type rateLimitIn struct {
	dig.In
	Logger  logx.Logger
	Counter prometheus.Counter `name:"rate_limit_exceeded_total"`
	Limiter ratelimit.Limiter
}

func newRateLimitMiddleware(in rateLimitIn) *ratelimit.Middleware {
	return ratelimit.New(in.Logger, in.Counter, in.Limiter, ratelimit.URLParamKey("id"))
}

package ratelimit

import "net/http"

// Limiter is a rate limiter keyed by an arbitrary string.
type Limiter interface {
	Allow(key string) bool
}

// KeyFunc extracts the limiting key from a request.
type KeyFunc func(r *http.Request) string

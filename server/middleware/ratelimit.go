package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultkit/resilience"
)

// CategoryFunc picks the rate limit bucket for a request.
type CategoryFunc func(*gin.Context) resilience.Category

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	Limiters *resilience.Limiters
	// Category picks the bucket. Defaults to the API bucket for every request.
	Category CategoryFunc
}

// RateLimit takes one token from the request's bucket and renders
// RATE_LIMIT_EXCEEDED through the chain when none is left.
func RateLimit(cfg RateLimitConfig, chain *HTTPChain) gin.HandlerFunc {
	if cfg.Limiters == nil {
		cfg.Limiters = resilience.DefaultLimiters()
	}
	if cfg.Category == nil {
		cfg.Category = func(*gin.Context) resilience.Category { return resilience.CategoryAPI }
	}

	return func(c *gin.Context) {
		rl := cfg.Limiters.For(cfg.Category(c))
		if err := rl.Allow(); err != nil {
			abortWith(c, chain, err)
			return
		}
		c.Next()
	}
}

// BatchPrefix sends requests whose path starts with one of prefixes to the
// batch bucket and everything else to the API bucket.
func BatchPrefix(prefixes ...string) CategoryFunc {
	return func(c *gin.Context) resilience.Category {
		for _, p := range prefixes {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				return resilience.CategoryBatch
			}
		}
		return resilience.CategoryAPI
	}
}

package resilience

import (
	"errors"
	"sync"
	"time"

	apperrors "github.com/kbukum/faultkit/errors"
)

// Common rate limiter errors.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// Capacity is the maximum number of tokens the bucket holds.
	Capacity int
	// RefillTokens are added every RefillDuration, spread evenly.
	RefillTokens int
	// RefillDuration is the period over which RefillTokens are added.
	RefillDuration time.Duration
	// OnLimit is called when a request is rate limited.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig returns the API bucket defaults: 100 tokens,
// refilled at 100 per second.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:           name,
		Capacity:       100,
		RefillTokens:   100,
		RefillDuration: time.Second,
	}
}

// BatchRateLimiterConfig returns the batch bucket defaults: 50 tokens,
// refilled at 50 per second.
func BatchRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:           name,
		Capacity:       50,
		RefillTokens:   50,
		RefillDuration: time.Second,
	}
}

// RateLimiter implements a token bucket rate limiter.
// The bucket starts full and refills lazily on each call; it never blocks,
// never goes negative and never holds more than its capacity.
type RateLimiter struct {
	config RateLimiterConfig
	rate   float64

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Capacity <= 0 {
		config.Capacity = 100
	}
	if config.RefillTokens <= 0 {
		config.RefillTokens = config.Capacity
	}
	if config.RefillDuration <= 0 {
		config.RefillDuration = time.Second
	}

	return &RateLimiter{
		config:     config,
		rate:       float64(config.RefillTokens) / config.RefillDuration.Seconds(),
		tokens:     float64(config.Capacity),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// TryAcquire takes one token if available.
func (rl *RateLimiter) TryAcquire() bool {
	return rl.TryAcquireN(1)
}

// TryAcquireN takes cost tokens if all of them are available. A cost above
// the capacity can never succeed; a non-positive cost always does.
func (rl *RateLimiter) TryAcquireN(cost int) bool {
	if cost <= 0 {
		return true
	}

	rl.mu.Lock()
	rl.refill()
	if rl.tokens >= float64(cost) {
		rl.tokens -= float64(cost)
		rl.mu.Unlock()
		return true
	}
	rl.mu.Unlock()

	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// refill adds tokens based on time elapsed. Callers hold rl.mu.
func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.lastRefill = now

	rl.tokens += elapsed * rl.rate
	if rl.tokens > float64(rl.config.Capacity) {
		rl.tokens = float64(rl.config.Capacity)
	}
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// Name returns the limiter name.
func (rl *RateLimiter) Name() string {
	return rl.config.Name
}

// Capacity returns the bucket size.
func (rl *RateLimiter) Capacity() int {
	return rl.config.Capacity
}

// Rate returns the refill rate in tokens per second.
func (rl *RateLimiter) Rate() float64 {
	return rl.rate
}

// Allow takes one token. On denial it returns a RATE_LIMIT_EXCEEDED
// business error wrapping ErrRateLimited.
func (rl *RateLimiter) Allow() error {
	if !rl.TryAcquire() {
		return rateLimited(rl)
	}
	return nil
}

// Limit runs fn if rl grants a token. On denial fn is not run and the
// error from Allow is returned.
func Limit(rl *RateLimiter, fn func() error) error {
	if err := rl.Allow(); err != nil {
		return err
	}
	return fn()
}

// Limited is Limit for operations that return a value.
func Limited[T any](rl *RateLimiter, fn func() (T, error)) (T, error) {
	if !rl.TryAcquire() {
		var zero T
		return zero, rateLimited(rl)
	}
	return fn()
}

func rateLimited(rl *RateLimiter) error {
	return apperrors.Wrap(apperrors.KindRateLimitExceeded, "", &limitedError{name: rl.config.Name})
}

// limitedError records which limiter denied the call. It unwraps to
// ErrRateLimited.
type limitedError struct {
	name string
}

func (e *limitedError) Error() string { return "rate limiter " + e.name + ": " + ErrRateLimited.Error() }
func (e *limitedError) Unwrap() error { return ErrRateLimited }

// Category groups operations that share a bucket.
type Category string

// Bucket categories.
const (
	CategoryAPI   Category = "api"
	CategoryBatch Category = "batch"
)

// Limiters holds one independent bucket per category.
type Limiters struct {
	API   *RateLimiter
	Batch *RateLimiter
}

// NewLimiters creates the API and batch buckets.
func NewLimiters(api, batch RateLimiterConfig) *Limiters {
	return &Limiters{
		API:   NewRateLimiter(api),
		Batch: NewRateLimiter(batch),
	}
}

// DefaultLimiters creates buckets with the default configurations.
func DefaultLimiters() *Limiters {
	return NewLimiters(DefaultRateLimiterConfig("api"), BatchRateLimiterConfig("batch"))
}

// For returns the bucket for category. Unknown categories share the API
// bucket.
func (l *Limiters) For(category Category) *RateLimiter {
	if category == CategoryBatch {
		return l.Batch
	}
	return l.API
}

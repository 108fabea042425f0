package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy configures retry behavior. A Policy is a value; presets return a
// fresh copy that callers may adjust.
type Policy struct {
	// Name identifies the policy in errors, logs and metrics.
	Name string
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// Multiplier grows the delay after every wait. Values below 1 are
	// treated as 1.
	Multiplier float64
	// MaxDelay caps the delay.
	MaxDelay time.Duration
	// Retryable determines if an error should be retried.
	Retryable func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
	// OnComplete is called once per Retry call with the number of attempts
	// made and the returned error.
	OnComplete func(name string, attempts int, err error)
}

// DefaultPolicy retries everything except context cancellation up to three
// times, waiting 1s, then 2s.
func DefaultPolicy() Policy {
	return Policy{
		Name:         "default",
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
		Retryable:    DefaultRetryable,
	}
}

// StoragePolicy retries storage connection failures up to ten times,
// starting at 5s and capped at 60s.
func StoragePolicy() Policy {
	return Policy{
		Name:         "storage",
		MaxAttempts:  10,
		InitialDelay: 5 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     60 * time.Second,
		Retryable:    IsStorageConnectionError,
	}
}

// NetworkPolicy retries network failures up to five times, starting at 2s
// and capped at 15s.
func NetworkPolicy() Policy {
	return Policy{
		Name:         "network",
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		Multiplier:   1.5,
		MaxDelay:     15 * time.Second,
		Retryable:    IsNetworkError,
	}
}

// DefaultRetryable retries all errors except context cancellation.
func DefaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// ExhaustedError is returned when every attempt allowed by a policy failed
// with a retryable error.
type ExhaustedError struct {
	Policy   string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry policy %q exhausted after %d attempts: %v", e.Policy, e.Attempts, e.Err)
}

// Unwrap returns the last failure.
func (e *ExhaustedError) Unwrap() error { return e.Err }

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Retryable == nil {
		p.Retryable = DefaultRetryable
	}
	return p
}

// Retry executes fn until it succeeds, fails with an error the policy does
// not retry, or the attempts run out. A non-retryable error is returned
// unchanged; running out of attempts returns *ExhaustedError. Cancelling ctx
// during a wait stops immediately with ctx.Err().
func Retry[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	p = p.normalized()

	attempts := 0
	done := func(err error) {
		if p.OnComplete != nil {
			p.OnComplete(p.Name, attempts, err)
		}
	}

	delay := p.InitialDelay
	for {
		if err := ctx.Err(); err != nil {
			done(err)
			return zero, err
		}

		attempts++
		result, err := fn()
		if err == nil {
			done(nil)
			return result, nil
		}

		if !p.Retryable(err) {
			done(err)
			return zero, err
		}

		if attempts >= p.MaxAttempts {
			exhausted := &ExhaustedError{Policy: p.Name, Attempts: attempts, Err: err}
			done(exhausted)
			return zero, exhausted
		}

		if p.OnRetry != nil {
			p.OnRetry(attempts, err, delay)
		}

		if err := sleep(ctx, delay); err != nil {
			done(err)
			return zero, err
		}
		delay = nextDelay(delay, p)
	}
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, p Policy, fn func() error) error {
	_, err := Retry(ctx, p, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// nextDelay compares in float64 so a large MaxDelay cannot overflow the
// Duration conversion.
func nextDelay(d time.Duration, p Policy) time.Duration {
	next := float64(d) * p.Multiplier
	if next >= float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(next)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package observability

import (
	"context"
	"errors"

	"github.com/kbukum/faultkit/resilience"
)

// ObserveLimiter returns cfg with denials counted under the limiter name.
// An OnLimit hook already present still runs.
func (m *Metrics) ObserveLimiter(cfg resilience.RateLimiterConfig) resilience.RateLimiterConfig {
	prev := cfg.OnLimit
	cfg.OnLimit = func(name string) {
		m.RecordRateLimited(context.Background(), name)
		if prev != nil {
			prev(name)
		}
	}
	return cfg
}

// ObservePolicy returns p with every finished call recorded by outcome.
// An OnComplete hook already present still runs.
func (m *Metrics) ObservePolicy(p resilience.Policy) resilience.Policy {
	prev := p.OnComplete
	p.OnComplete = func(name string, attempts int, err error) {
		m.RecordRetry(context.Background(), name, RetryOutcome(err), attempts)
		if prev != nil {
			prev(name, attempts, err)
		}
	}
	return p
}

// RetryOutcome names the way a retried call finished.
func RetryOutcome(err error) string {
	var exhausted *resilience.ExhaustedError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &exhausted):
		return OutcomeExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeNonRetryable
	}
}

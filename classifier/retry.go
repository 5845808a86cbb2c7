package classifier

import "time"

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	MaxBackoff         = 5 * time.Minute
)

// RetryPolicy decides whether a failed model call is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Decision is the outcome of RetryPolicy.Decide.
type Decision struct {
	Retry bool
	Wait  time.Duration
}

// DefaultRetryPolicy retries rate limits up to 3 attempts, waiting 2s then 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Decide is a pure function of the zero-based attempt that just failed and
// whether it failed on a rate limit. Only rate limits are retried, and only
// while attempts remain; the wait is 2^attempt * BaseDelay.
func (p RetryPolicy) Decide(attempt int, rateLimited bool) Decision {
	if !rateLimited || attempt < 0 || attempt >= p.maxAttempts()-1 {
		return Decision{}
	}
	return Decision{Retry: true, Wait: p.Backoff(attempt)}
}

// Backoff returns 2^attempt * BaseDelay, capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if base >= MaxBackoff {
		return MaxBackoff
	}
	wait := base
	for i := 0; i < attempt; i++ {
		wait <<= 1
		if wait >= MaxBackoff {
			return MaxBackoff
		}
	}
	return wait
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

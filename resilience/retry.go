// Package resilience provides retry, circuit-breaking, rate-limiting, and
// hedging primitives shared by every outbound call the pipeline makes to an
// LLM or TTS provider.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/lookatitude/hey-raven/core"
)

// RetryPolicy configures Retry's attempt count and backoff schedule.
type RetryPolicy struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffFactor   float64
	Jitter          bool
	RetryableErrors []core.ErrorCode
}

// DefaultRetryPolicy returns the policy used when none is supplied.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = d.BackoffFactor
	}
	return p
}

func (p RetryPolicy) retryable(err error) bool {
	if err == nil {
		return false
	}
	var belugaErr *core.Error
	if !errors.As(err, &belugaErr) {
		return false
	}
	for _, code := range p.RetryableErrors {
		if belugaErr.Code == code {
			return true
		}
	}
	return core.IsRetryable(err)
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff) * math.Pow(p.BackoffFactor, float64(attempt))
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.Jitter {
		d = d/2 + rand.Float64()*d/2
	}
	return time.Duration(d)
}

// Retry invokes fn, retrying on retryable *core.Error values according to
// policy. A zero-value RetryPolicy is normalized to DefaultRetryPolicy's
// fields. Non-retryable errors (plain errors, or *core.Error codes outside
// the retryable set and RetryableErrors override) return immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.normalize()

	var zero T
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !policy.retryable(err) {
			return zero, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(policy.backoff(attempt)):
		}
	}

	return zero, lastErr
}

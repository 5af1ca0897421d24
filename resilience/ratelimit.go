package resilience

import (
	"context"
	"sync"
	"time"
)

// ProviderLimits describes the rate and concurrency envelope for a single
// provider. A zero value in any field means "unlimited" for that dimension.
type ProviderLimits struct {
	RPM             int
	TPM             int
	MaxConcurrent   int
	CooldownOnRetry time.Duration
}

const pollInterval = 5 * time.Millisecond

// RateLimiter enforces per-provider request-per-minute, token-per-minute, and
// concurrency budgets using token buckets refilled continuously over time.
type RateLimiter struct {
	limits ProviderLimits

	mu         sync.Mutex
	rpmTokens  float64
	rpmUpdated time.Time
	tpmTokens  float64
	tpmUpdated time.Time
	concurrent int
}

// NewRateLimiter creates a RateLimiter starting with full token buckets.
func NewRateLimiter(limits ProviderLimits) *RateLimiter {
	now := time.Now()
	rl := &RateLimiter{
		limits:     limits,
		rpmUpdated: now,
		tpmUpdated: now,
	}
	if limits.RPM > 0 {
		rl.rpmTokens = float64(limits.RPM)
	}
	if limits.TPM > 0 {
		rl.tpmTokens = float64(limits.TPM)
	}
	return rl
}

func (rl *RateLimiter) refillRPMLocked() {
	if rl.limits.RPM <= 0 {
		return
	}
	elapsed := time.Since(rl.rpmUpdated).Seconds()
	rl.rpmUpdated = time.Now()
	rl.rpmTokens += elapsed * float64(rl.limits.RPM) / 60.0
	if rl.rpmTokens > float64(rl.limits.RPM) {
		rl.rpmTokens = float64(rl.limits.RPM)
	}
}

func (rl *RateLimiter) refillTPMLocked() {
	if rl.limits.TPM <= 0 {
		return
	}
	elapsed := time.Since(rl.tpmUpdated).Seconds()
	rl.tpmUpdated = time.Now()
	rl.tpmTokens += elapsed * float64(rl.limits.TPM) / 60.0
	if rl.tpmTokens > float64(rl.limits.TPM) {
		rl.tpmTokens = float64(rl.limits.TPM)
	}
}

// Allow blocks until an RPM token and a concurrency slot are both available,
// or ctx is done. On success the caller owns a concurrency slot and must
// call Release when the call completes.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rl.mu.Lock()
		rl.refillRPMLocked()
		rpmOK := rl.limits.RPM <= 0 || rl.rpmTokens >= 1
		concurrentOK := rl.limits.MaxConcurrent <= 0 || rl.concurrent < rl.limits.MaxConcurrent
		if rpmOK && concurrentOK {
			if rl.limits.RPM > 0 {
				rl.rpmTokens--
			}
			if rl.limits.MaxConcurrent > 0 {
				rl.concurrent++
			}
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release gives back the concurrency slot acquired by a prior Allow call.
func (rl *RateLimiter) Release() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.concurrent > 0 {
		rl.concurrent--
	}
}

// Wait sleeps for CooldownOnRetry, or returns immediately if it is zero. It
// honors ctx cancellation during the sleep.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limits.CooldownOnRetry <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(rl.limits.CooldownOnRetry):
		return nil
	}
}

// ConsumeTokens blocks until n tokens are available in the TPM bucket, or
// ctx is done. A non-positive n or an unlimited TPM budget returns
// immediately.
func (rl *RateLimiter) ConsumeTokens(ctx context.Context, n int) error {
	if n <= 0 || rl.limits.TPM <= 0 {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rl.mu.Lock()
		rl.refillTPMLocked()
		if rl.tpmTokens >= float64(n) {
			rl.tpmTokens -= float64(n)
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

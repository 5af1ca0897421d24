package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is a CircuitBreaker's current state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned by Execute when the breaker is open and the
// reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// CircuitBreaker trips to StateOpen after failureThreshold consecutive
// failures and rejects calls until resetTimeout elapses, at which point
// calls are let through again as probes (StateHalfOpen).
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
}

// NewCircuitBreaker creates a CircuitBreaker. A failureThreshold <= 0
// defaults to 5, and a resetTimeout <= 0 defaults to 30s.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
	}
}

// State returns the breaker's current state, promoting Open to HalfOpen if
// resetTimeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.resetTimeout {
		cb.state = StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to StateClosed and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
}

// Execute runs fn if the breaker allows it. In StateOpen it rejects
// immediately with ErrCircuitOpen. In StateHalfOpen it lets calls through
// as probes, closing the breaker on a success and reopening it on a
// failure; concurrent calls in this state are not limited to one. In
// StateClosed, consecutive failures trip the breaker once
// failureThreshold is reached; any success resets the failure count.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	cb.mu.Lock()
	state := cb.stateLocked()
	if state == StateOpen {
		cb.mu.Unlock()
		return nil, ErrCircuitOpen
	}
	cb.mu.Unlock()

	result, err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
		return result, err
	}

	cb.state = StateClosed
	cb.failures = 0
	return result, nil
}

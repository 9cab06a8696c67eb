// Package resilience provides the circuit breaker guarding remote embedding
// calls. The breaker is shared across concurrent enrichment workers, so all
// counter updates happen under a mutex.
package resilience

import (
	"sync"
	"time"
)

// State is the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// StateChangeFunc observes breaker transitions for metrics and logging.
type StateChangeFunc func(from, to State)

// Config holds circuit breaker tuning.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit from closed.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before the next
	// CanExecute probe transitions it to half-open.
	Cooldown time.Duration
	// HalfOpenSuccesses is the number of consecutive half-open successes
	// required to close the circuit again.
	HalfOpenSuccesses int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:  5,
		Cooldown:          30 * time.Second,
		HalfOpenSuccesses: 3,
	}
}

// CircuitBreaker implements a closed/open/half-open breaker. It does not run
// the protected operation itself; callers gate on CanExecute and report the
// outcome through RecordSuccess/RecordFailure.
type CircuitBreaker struct {
	config        Config
	onStateChange StateChangeFunc

	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	lastFailure  time.Time
	halfOpenBusy bool

	now func() time.Time
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(config Config, onStateChange StateChangeFunc) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultConfig().Cooldown
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = DefaultConfig().HalfOpenSuccesses
	}

	return &CircuitBreaker{
		config:        config,
		onStateChange: onStateChange,
		state:         StateClosed,
		now:           time.Now,
	}
}

// CanExecute reports whether a call may proceed. The first evaluation after
// the cooldown elapses moves an open circuit to half-open; half-open admits
// exactly one in-flight trial call at a time.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.config.Cooldown {
			cb.transition(StateHalfOpen)
			cb.halfOpenBusy = true
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenBusy {
			return false
		}
		cb.halfOpenBusy = true
		return true
	}

	return false
}

// RecordSuccess reports a successful call. Any success resets the failure
// counter; enough consecutive half-open successes close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.state == StateHalfOpen {
		cb.halfOpenBusy = false
		cb.successes++
		if cb.successes >= cb.config.HalfOpenSuccesses {
			cb.transition(StateClosed)
		}
	}
}

// RecordFailure reports a failed call. Crossing the failure threshold opens
// the circuit; a single half-open failure reopens it immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.halfOpenBusy = false
		cb.transition(StateOpen)
	}
}

// State returns the current state without side effects.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the breaker closed with all counters zeroed. Used by tests
// and operational recovery.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.successes = 0
	cb.lastFailure = time.Time{}
	cb.halfOpenBusy = false

	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
}

// transition must be called with the mutex held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}

	cb.state = to
	cb.successes = 0

	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}

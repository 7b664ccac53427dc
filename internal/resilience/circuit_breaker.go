package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/assist-gateway/internal/observability"
)

// ErrCircuitOpen is returned by Call while the breaker rejects requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	StateClosed   CircuitState = iota // Normal operation
	StateOpen                         // Requests fail immediately
	StateHalfOpen                     // Probing whether the service has recovered
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of breaker counters.
type Stats struct {
	State       CircuitState
	Requests    int64
	Failures    int64
	FailureRate float64 // percent of requests that failed
}

// CircuitBreaker guards calls to a flaky dependency. After maxFailures
// consecutive failures it opens; once resetTimeout has passed it lets up to
// halfOpenMax trial requests through and closes again after that many successes.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	logger       zerolog.Logger
	now          func() time.Time

	mu                sync.Mutex
	state             CircuitState
	failures          int // consecutive, while closed
	openedAt          time.Time
	halfOpenInFlight  int
	halfOpenSuccesses int
	requests          int64
	failuresTotal     int64
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  3,
		logger:       observability.WithComponent("resilience").With().Str("breaker", name).Logger(),
		now:          time.Now,
		state:        StateClosed,
	}
}

// Call runs fn unless the circuit is open, and records its outcome.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.RecordResult(err == nil)
	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.refreshLocked() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.halfOpenInFlight < cb.halfOpenMax {
			cb.halfOpenInFlight++
			return true
		}
	}
	return false
}

// RecordResult records the outcome of a request made outside Call, such as a
// failure reported asynchronously by a streaming connection.
func (cb *CircuitBreaker) RecordResult(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.refreshLocked()
	cb.requests++
	if cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}

	if success {
		switch state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.halfOpenSuccesses++
			if cb.halfOpenSuccesses >= cb.halfOpenMax {
				cb.setStateLocked(StateClosed)
			}
		}
		return
	}

	cb.failuresTotal++
	switch state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.setStateLocked(StateOpen)
		}
	case StateHalfOpen:
		cb.setStateLocked(StateOpen)
	case StateOpen:
		cb.openedAt = cb.now()
	}
}

// refreshLocked moves an open breaker to half-open once resetTimeout has elapsed.
func (cb *CircuitBreaker) refreshLocked() CircuitState {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		cb.setStateLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) setStateLocked(state CircuitState) {
	if cb.state == state {
		return
	}
	cb.logger.Info().
		Str("from", cb.state.String()).
		Str("to", state.String()).
		Msg("Circuit breaker state changed")

	cb.state = state
	cb.failures = 0
	cb.halfOpenInFlight = 0
	cb.halfOpenSuccesses = 0
	if state == StateOpen {
		cb.openedAt = cb.now()
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.refreshLocked()
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := Stats{
		State:    cb.refreshLocked(),
		Requests: cb.requests,
		Failures: cb.failuresTotal,
	}
	if stats.Requests > 0 {
		stats.FailureRate = float64(stats.Failures) / float64(stats.Requests) * 100.0
	}
	return stats
}

// Reset closes the circuit and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setStateLocked(StateClosed)
	cb.failures = 0
	cb.requests = 0
	cb.failuresTotal = 0
}

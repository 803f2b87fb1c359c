package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen lets trial requests through to probe recovery.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker is the interface for the circuit breaker pattern.
type CircuitBreaker interface {
	// Execute runs the given request if the circuit breaker is closed or half-open.
	Execute(req func() (interface{}, error)) (interface{}, error)
	// State returns the current state of the circuit breaker.
	State() State
}

// Option customises a breaker built by New.
type Option func(*breaker)

// OnStateChange registers a callback fired after every transition.
// The callback runs without the breaker lock held.
func OnStateChange(fn func(from, to State)) Option {
	return func(b *breaker) {
		b.onChange = fn
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *breaker) {
		b.now = now
	}
}

type breaker struct {
	failureThreshold     uint32        // Number of failures to trip the circuit.
	successThreshold     uint32        // Number of successes in HalfOpen state to close the circuit.
	timeout              time.Duration // Duration to wait in Open state before transitioning to HalfOpen.
	consecutiveSuccesses uint32
	consecutiveFailures  uint32
	openedAt             time.Time
	state                State
	mutex                sync.Mutex

	now      func() time.Time
	onChange func(from, to State)
}

// New creates a new circuit breaker.
// failureThreshold: consecutive failures required to open the circuit.
// successThreshold: consecutive half-open successes required to close it again.
// timeout: how long the circuit stays open before allowing a trial request.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	b := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            Closed,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state of the circuit breaker.
func (cb *breaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Execute wraps the execution of a function with the circuit breaker logic.
func (cb *breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	cb.mutex.Lock()
	var transitions [][2]State
	if cb.state == Open && cb.now().Sub(cb.openedAt) > cb.timeout {
		transitions = append(transitions, cb.setState(HalfOpen))
		cb.consecutiveSuccesses = 0
	}
	state := cb.state
	cb.mutex.Unlock()
	cb.notify(transitions)

	if state == Open {
		return nil, ErrCircuitOpen
	}

	res, err := req()
	if err != nil {
		cb.onFailure()
		return nil, err
	}
	cb.onSuccess()
	return res, nil
}

func (cb *breaker) onSuccess() {
	cb.mutex.Lock()
	var transitions [][2]State
	switch cb.state {
	case HalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.successThreshold {
			transitions = append(transitions, cb.setState(Closed))
			cb.consecutiveFailures = 0
			cb.consecutiveSuccesses = 0
		}
	case Closed:
		cb.consecutiveFailures = 0
	}
	cb.mutex.Unlock()
	cb.notify(transitions)
}

func (cb *breaker) onFailure() {
	cb.mutex.Lock()
	var transitions [][2]State
	switch cb.state {
	case HalfOpen:
		transitions = append(transitions, cb.trip())
	case Closed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			transitions = append(transitions, cb.trip())
		}
	}
	cb.mutex.Unlock()
	cb.notify(transitions)
}

// trip opens the circuit. Caller holds the lock.
func (cb *breaker) trip() [2]State {
	t := cb.setState(Open)
	cb.openedAt = cb.now()
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	return t
}

func (cb *breaker) setState(to State) [2]State {
	from := cb.state
	cb.state = to
	return [2]State{from, to}
}

func (cb *breaker) notify(transitions [][2]State) {
	if cb.onChange == nil {
		return
	}
	for _, t := range transitions {
		if t[0] != t[1] {
			cb.onChange(t[0], t[1])
		}
	}
}

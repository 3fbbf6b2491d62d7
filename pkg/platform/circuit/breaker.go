// Package circuit provides a consecutive-failure circuit breaker used to stop
// hammering a failing downstream (the audit broker) and fall back to a slower
// path until it recovers.
package circuit

import "sync"

// State of a breaker.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

// StateChange reports a transition caused by the last recorded outcome.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker opens after FailureThreshold consecutive failures and closes again
// after SuccessThreshold consecutive successes.
type Breaker struct {
	mu               sync.Mutex
	name             string
	failureThreshold int
	successThreshold int
	failures         int
	successes        int
	open             bool
}

type Option func(*Breaker)

func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{name: name, failureThreshold: 5, successThreshold: 1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *Breaker) State() State {
	if b.IsOpen() {
		return StateOpen
	}
	return StateClosed
}

// RecordFailure returns whether callers should use the fallback path.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.successes = 0
	if b.open {
		return true, StateChange{}
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.open = true
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess returns whether callers may use the primary path again.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	if !b.open {
		return true, StateChange{}
	}
	b.successes++
	if b.successes >= b.successThreshold {
		b.open = false
		b.successes = 0
		return true, StateChange{Closed: true}
	}
	return false, StateChange{}
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failures = 0
	b.successes = 0
}

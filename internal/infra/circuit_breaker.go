package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerState is closed (calls flow), open (calls fail fast) or half-open
// (a probe is allowed through).
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned by Do while the breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker is open")

type BreakerOptions struct {
	FailureThreshold int           // consecutive failures that trip the breaker
	SuccessThreshold int           // half-open successes needed to close again
	Cooldown         time.Duration // time spent open before probing
}

func DefaultBreakerOptions() BreakerOptions {
	return BreakerOptions{FailureThreshold: 5, SuccessThreshold: 2, Cooldown: time.Minute}
}

// CircuitBreaker guards calls to a flaky dependency (the SMTP relay).
type CircuitBreaker struct {
	name string
	opts BreakerOptions
	now  func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

func NewCircuitBreaker(name string, opts BreakerOptions) *CircuitBreaker {
	def := DefaultBreakerOptions()
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = def.FailureThreshold
	}
	if opts.SuccessThreshold <= 0 {
		opts.SuccessThreshold = def.SuccessThreshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = def.Cooldown
	}
	return &CircuitBreaker{name: name, opts: opts, now: time.Now}
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentLocked()
}

// Do runs fn unless the breaker is open.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if cb.State() == BreakerOpen {
		return ErrBreakerOpen
	}
	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		if cb.state == BreakerHalfOpen || cb.failures >= cb.opts.FailureThreshold {
			cb.transitionLocked(BreakerOpen)
		}
		return err
	}
	switch cb.state {
	case BreakerClosed:
		cb.failures = 0
	case BreakerHalfOpen:
		cb.successes++
		if cb.successes >= cb.opts.SuccessThreshold {
			cb.transitionLocked(BreakerClosed)
		}
	}
	return nil
}

func (cb *CircuitBreaker) currentLocked() BreakerState {
	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.opts.Cooldown {
		cb.transitionLocked(BreakerHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to BreakerState) {
	if cb.state == to {
		return
	}
	log.Warn().Str("breaker", cb.name).Stringer("from", cb.state).Stringer("to", to).Msg("circuit breaker state change")
	cb.state = to
	cb.failures, cb.successes = 0, 0
	if to == BreakerOpen {
		cb.openedAt = cb.now()
	}
}

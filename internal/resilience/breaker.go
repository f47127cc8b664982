// Package resilience guards calls to upstream geodata services with a
// circuit breaker, so a failing Overpass instance is not hammered by every
// catalog build.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the state of a Breaker.
type State int

const (
	// Closed lets calls through.
	Closed State = iota
	// Open rejects calls until the reset timeout elapses.
	Open
	// HalfOpen lets a single trial call through.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned for calls rejected by an open breaker.
var ErrOpen = eris.New("resilience: upstream circuit is open")

// Config controls a Breaker.
type Config struct {
	// FailureThreshold is the number of consecutive upstream failures that
	// opens the breaker. Default: 3.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open. Default: 60s.
	ResetTimeout time.Duration

	// IsFailure decides which errors count. Default: IsUpstreamFailure.
	IsFailure func(err error) bool

	// OnStateChange is called on every transition.
	OnStateChange func(from, to State)
}

// Breaker is a consecutive-failure circuit breaker. It is safe for
// concurrent use.
type Breaker struct {
	cfg Config

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	trialActive bool

	now func() time.Time
}

// NewBreaker creates a closed Breaker.
func NewBreaker(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = IsUpstreamFailure
	}
	return &Breaker{cfg: cfg, state: Closed, now: time.Now}
}

// Call runs fn unless the breaker rejects it with ErrOpen. Once the reset
// timeout has elapsed only one trial call runs at a time; concurrent
// callers are rejected until it finishes.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	trial, err := b.allow()
	if err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(err, trial)
	return v, err
}

// State returns the current state, reporting HalfOpen once an open
// breaker's reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		return HalfOpen
	}
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// allow reports whether a call may run and whether it is the half-open
// trial call.
func (b *Breaker) allow() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.lastFailure) < b.cfg.ResetTimeout {
			return false, ErrOpen
		}
		b.transition(HalfOpen)
		b.trialActive = true
		return true, nil
	case HalfOpen:
		if b.trialActive {
			return false, ErrOpen
		}
		b.trialActive = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(err error, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen && !trial {
		// Admitted before the breaker opened; only the trial decides.
		return
	}
	if trial {
		b.trialActive = false
		if errors.Is(err, context.Canceled) {
			return
		}
	}

	if err == nil || !b.cfg.IsFailure(err) {
		b.failures = 0
		if b.state == HalfOpen {
			b.transition(Closed)
		}
		return
	}

	b.failures++
	b.lastFailure = b.now()
	switch b.state {
	case Closed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(Open)
		}
	case HalfOpen:
		b.transition(Open)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

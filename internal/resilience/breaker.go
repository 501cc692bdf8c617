// Package resilience guards outbound calls with a circuit breaker and a
// jittered retry loop.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is a breaker's position.
type State int

const (
	Closed State = iota
	Open
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
	}
	return "unknown"
}

// ErrOpen is returned without calling through while a breaker is open.
var ErrOpen = eris.New("resilience: circuit open")

// BreakerConfig configures a Breaker. Zero fields take defaults.
type BreakerConfig struct {
	Name string
	// Threshold is the consecutive failure count that opens the circuit.
	Threshold int
	// Cooldown is how long the circuit stays open before one trial request is let through.
	Cooldown time.Duration
	// Trips decides whether an error counts as a failure. Defaults to any non-nil error.
	Trips func(error) bool
}

// Breaker is a consecutive-failure circuit breaker for one upstream.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// NewBreaker returns a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.Trips == nil {
		cfg.Trips = func(err error) bool { return err != nil }
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// State reports the breaker's current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return HalfOpen
	}
	return b.state
}

// Allow reports whether a call may proceed, moving an expired open circuit
// to half-open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return nil
	}
	if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
		return ErrOpen
	}
	b.setState(HalfOpen)
	return nil
}

// Record feeds a call outcome back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil || !b.cfg.Trips(err) {
		b.failures = 0
		if b.state != Closed {
			b.setState(Closed)
		}
		return
	}
	b.failures++
	if b.state == HalfOpen || b.failures >= b.cfg.Threshold {
		b.openedAt = b.now()
		b.setState(Open)
	}
}

// Reset closes the circuit and clears the failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.setState(Closed)
}

func (b *Breaker) setState(to State) {
	if b.state == to {
		return
	}
	zap.L().Info("resilience: breaker state change",
		zap.String("breaker", b.cfg.Name),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
	b.state = to
}

// Call runs fn through the breaker and returns its result.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.Record(err)
	return v, err
}

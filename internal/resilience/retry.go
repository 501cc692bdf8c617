package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls Retry. Zero fields take defaults.
type Policy struct {
	Attempts  int
	Base      time.Duration
	Max       time.Duration
	Jitter    float64 // fraction of the delay, 0.25 means ±25%
	Retryable func(error) bool
	Name      string
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Base <= 0 {
		p.Base = 500 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = 10 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Delay returns the backoff before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := p.Base << attempt
	if d <= 0 || d > p.Max {
		d = p.Max
	}
	if p.Jitter > 0 {
		span := float64(d) * p.Jitter
		d += time.Duration((rand.Float64()*2 - 1) * span)
	}
	return max(d, 0)
}

// Retry calls fn until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx ends. The last error is returned.
func Retry[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	var zero T
	var err error
	for attempt := range p.Attempts {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt == p.Attempts-1 {
			return zero, err
		}
		zap.L().Warn("resilience: retrying",
			zap.String("op", p.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		t := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
	return zero, err
}

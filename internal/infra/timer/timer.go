// Package timer provides randomized suspension points for injection campaigns:
// the mean-time-to-failure timer that spaces injection rounds and the timer
// that bounds how long a transient pulse persists.
package timer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ahrav/see-armada/internal/domain/injection"
)

var _ injection.Timer = (*RandomTimer)(nil)

// Clock waits out a delay in some time base, simulated or wall-clock.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// WallClock sleeps in real time.
type WallClock struct{}

// Sleep blocks for d or until ctx is done.
func (WallClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sampler draws the next delay.
type Sampler interface {
	Sample() time.Duration
}

// RandomTimer waits a freshly sampled delay on every Wait.
type RandomTimer struct {
	clock   Clock
	sampler Sampler
}

// New creates a RandomTimer drawing delays from sampler and waiting on clock.
func New(clock Clock, sampler Sampler) *RandomTimer {
	return &RandomTimer{clock: clock, sampler: sampler}
}

// NewBoundedRandomTimer returns a timer with delays uniform in [lo, hi].
func NewBoundedRandomTimer(clock Clock, lo, hi time.Duration, seed uint64) (*RandomTimer, error) {
	s, err := NewBoundedSampler(lo, hi, seed)
	if err != nil {
		return nil, err
	}
	return New(clock, s), nil
}

// NewExponentialTimer returns a timer with exponentially distributed delays of
// the given mean, the inter-arrival law of a constant failure rate.
func NewExponentialTimer(clock Clock, mean time.Duration, seed uint64) (*RandomTimer, error) {
	s, err := NewExponentialSampler(mean, seed)
	if err != nil {
		return nil, err
	}
	return New(clock, s), nil
}

// Wait samples one delay and waits it out.
func (t *RandomTimer) Wait(ctx context.Context) error {
	return t.clock.Sleep(ctx, t.sampler.Sample())
}

// FixedSampler always returns the same delay.
type FixedSampler time.Duration

// Sample returns the fixed delay.
func (f FixedSampler) Sample() time.Duration { return time.Duration(f) }

// BoundedSampler draws delays uniformly from [lo, hi].
type BoundedSampler struct {
	lo, hi time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBoundedSampler creates a BoundedSampler. The seed makes runs reproducible.
func NewBoundedSampler(lo, hi time.Duration, seed uint64) (*BoundedSampler, error) {
	if lo < 0 || hi < lo {
		return nil, fmt.Errorf("invalid bounds [%s, %s]", lo, hi)
	}
	return &BoundedSampler{lo: lo, hi: hi, rng: newRand(seed)}, nil
}

// Sample returns a delay in [lo, hi].
func (b *BoundedSampler) Sample() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lo + time.Duration(b.rng.Int64N(int64(b.hi-b.lo)+1))
}

// ExponentialSampler draws exponentially distributed delays.
type ExponentialSampler struct {
	mean time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewExponentialSampler creates an ExponentialSampler with the given mean.
func NewExponentialSampler(mean time.Duration, seed uint64) (*ExponentialSampler, error) {
	if mean <= 0 {
		return nil, fmt.Errorf("mean must be positive, got %s", mean)
	}
	return &ExponentialSampler{mean: mean, rng: newRand(seed)}, nil
}

// Sample returns the next delay, at least one nanosecond.
func (e *ExponentialSampler) Sample() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := time.Duration(e.rng.ExpFloat64() * float64(e.mean))
	if d < 1 {
		d = 1
	}
	return d
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

package common

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Pacer limits how fast a loop advances, e.g. how many simulated clock steps
// are taken per wall-clock second. The rate can be changed while the loop runs.
type Pacer struct {
	mu      sync.RWMutex // Protects concurrent access to the limiter
	limiter *rate.Limiter
}

// NewPacer creates a Pacer allowing stepsPerSecond steps with the given burst.
// A non-positive rate means unlimited.
func NewPacer(stepsPerSecond float64, burst int) *Pacer {
	return &Pacer{limiter: rate.NewLimiter(toLimit(stepsPerSecond), max(burst, 1))}
}

// Wait blocks until the next step is allowed or ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.limiter.Wait(ctx)
}

// SetRate changes the pace.
func (p *Pacer) SetRate(stepsPerSecond float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.SetLimit(toLimit(stepsPerSecond))
}

func toLimit(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

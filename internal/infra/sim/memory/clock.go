package memory

import (
	"context"
	"sync"
	"time"
)

// Clock is a simulated time base. Time only moves when Advance or
// AdvanceToNext is called; sleepers wake once simulated time reaches their
// deadline.
type Clock struct {
	mu      sync.Mutex
	now     time.Duration
	waiters []*waiter
}

type waiter struct {
	deadline time.Duration
	ch       chan struct{}
}

// NewClock returns a clock at simulated time zero.
func NewClock() *Clock { return &Clock{} }

// Now returns the current simulated time.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep blocks until simulated time advances by d or ctx is done.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	c.mu.Lock()
	w := &waiter{deadline: c.now + d, ch: make(chan struct{})}
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		c.remove(w)
		return ctx.Err()
	}
}

// Advance moves simulated time forward by d and wakes every sleeper whose
// deadline has been reached.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	c.fireLocked()
}

// AdvanceToNext jumps to the earliest pending deadline. It reports false when
// nobody is sleeping.
func (c *Clock) AdvanceToNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) == 0 {
		return false
	}
	next := c.waiters[0].deadline
	for _, w := range c.waiters[1:] {
		if w.deadline < next {
			next = w.deadline
		}
	}
	if next > c.now {
		c.now = next
	}
	c.fireLocked()
	return true
}

// Pending returns the number of goroutines sleeping on the clock.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *Clock) fireLocked() {
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if w.deadline <= c.now {
			close(w.ch)
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
}

func (c *Clock) remove(target *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == target {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

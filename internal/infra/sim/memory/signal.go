// Package memory provides an in-memory simulated design: a hierarchy of
// scopes, arrays and signals with four-state-lite semantics (defined or
// undefined), force/release overrides and a simulated clock. It stands in for a
// real HDL simulator in tests and in the demo campaign runner.
package memory

import (
	"fmt"
	"sync"

	"github.com/ahrav/see-armada/internal/domain/injection"
)

var (
	_ injection.Signal = (*Signal)(nil)
	_ injection.Signal = (*bitSignal)(nil)
)

// Signal is a vector signal of the in-memory design. The value observed by
// Read is the driven value with every forced bit replaced by its forced value.
type Signal struct {
	name string
	path string

	mu        sync.Mutex
	width     int
	driven    injection.Value
	forced    injection.Value
	forceMask injection.Value
	undefined bool
}

func newSignal(name, path string, width int) *Signal {
	w := uint(width)
	return &Signal{
		name:      name,
		path:      path,
		width:     width,
		driven:    injection.NewValue(w),
		forced:    injection.NewValue(w),
		forceMask: injection.NewValue(w),
	}
}

func (s *Signal) Path() string { return s.path }
func (s *Signal) Name() string { return s.name }
func (s *Signal) Width() int   { return s.width }

// Read returns the effective value or ErrUndefinedValue if the signal has not
// been driven since it was created or marked undefined.
func (s *Signal) Read() (injection.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.undefined && !s.fullyForcedLocked() {
		return injection.Value{}, fmt.Errorf("%s: %w", s.path, injection.ErrUndefinedValue)
	}
	return s.effectiveLocked(), nil
}

// Write deposits v on the driven value. Forced bits keep their forced value
// until released.
func (s *Signal) Write(v injection.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.driven = resize(v, uint(s.width))
	s.undefined = false
	return nil
}

// Force overrides every bit of the signal with v.
func (s *Signal) Force(v injection.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := uint(s.width)
	s.forced = resize(v, w)
	for i := uint(0); i < w; i++ {
		s.forceMask = s.forceMask.WithBit(i, true)
	}
	return nil
}

// Release drops every override.
func (s *Signal) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceMask = injection.NewValue(uint(s.width))
	return nil
}

// Bit returns a single-bit view of bit i.
func (s *Signal) Bit(i int) (injection.Signal, error) {
	if i < 0 || i >= s.width {
		return nil, fmt.Errorf("%s[%d]: %w", s.path, i, injection.ErrBitOutOfRange)
	}
	return &bitSignal{parent: s, index: uint(i)}, nil
}

// SetUint64 drives the signal with the low bits of v. It is how the design's
// own logic updates state.
func (s *Signal) SetUint64(v uint64) {
	_ = s.Write(injection.ValueFromUint64(uint(s.width), v))
}

// Uint64 returns the effective value as an integer, ignoring undefined state.
func (s *Signal) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveLocked().Uint64()
}

// SetUndefined puts the driven value into an undefined state until the next write.
func (s *Signal) SetUndefined() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undefined = true
}

// Forced reports whether any bit currently carries an override.
func (s *Signal) Forced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.forceMask.Equal(injection.NewValue(uint(s.width)))
}

func (s *Signal) effectiveLocked() injection.Value {
	out := s.driven
	for i := uint(0); i < uint(s.width); i++ {
		if s.forceMask.Bit(i) {
			out = out.WithBit(i, s.forced.Bit(i))
		}
	}
	return out
}

func (s *Signal) fullyForcedLocked() bool {
	for i := uint(0); i < uint(s.width); i++ {
		if !s.forceMask.Bit(i) {
			return false
		}
	}
	return s.width > 0
}

// bitSignal is a one-bit view into a parent vector.
type bitSignal struct {
	parent *Signal
	index  uint
}

func (b *bitSignal) Path() string { return fmt.Sprintf("%s[%d]", b.parent.path, b.index) }
func (b *bitSignal) Name() string { return fmt.Sprintf("%s[%d]", b.parent.name, b.index) }
func (b *bitSignal) Width() int   { return 1 }

func (b *bitSignal) Read() (injection.Value, error) {
	p := b.parent
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.undefined && !p.forceMask.Bit(b.index) {
		return injection.Value{}, fmt.Errorf("%s: %w", b.Path(), injection.ErrUndefinedValue)
	}
	return injection.NewValue(1).WithBit(0, p.effectiveLocked().Bit(b.index)), nil
}

func (b *bitSignal) Write(v injection.Value) error {
	p := b.parent
	p.mu.Lock()
	defer p.mu.Unlock()
	p.driven = p.driven.WithBit(b.index, v.Bit(0))
	return nil
}

func (b *bitSignal) Force(v injection.Value) error {
	p := b.parent
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forced = p.forced.WithBit(b.index, v.Bit(0))
	p.forceMask = p.forceMask.WithBit(b.index, true)
	return nil
}

func (b *bitSignal) Release() error {
	p := b.parent
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forceMask = p.forceMask.WithBit(b.index, false)
	return nil
}

func (b *bitSignal) Bit(i int) (injection.Signal, error) {
	if i != 0 {
		return nil, fmt.Errorf("%s[%d]: %w", b.Path(), i, injection.ErrBitOutOfRange)
	}
	return b, nil
}

func resize(v injection.Value, width uint) injection.Value {
	if v.Width() == width {
		return v
	}
	out := injection.NewValue(width)
	for i := uint(0); i < width && i < v.Width(); i++ {
		out = out.WithBit(i, v.Bit(i))
	}
	return out
}

package injection

import (
	"context"
	"fmt"

	domain "github.com/ahrav/see-armada/internal/domain/injection"
)

// FlipPersistent applies an SEU. Register descriptors are flipped by
// read-modify-write; primitive descriptors have their cell driven to logic-1.
// The flip is never reversed.
func FlipPersistent(ev *domain.SEU) error {
	d := ev.Descriptor
	if d.Class == domain.SignalClassPrimitive {
		if d.PrimitiveCell == nil {
			return fmt.Errorf("primitive %s has no cell handle", d.Signal.Path())
		}
		one := domain.ValueFromUint64(uint(d.PrimitiveCell.Width()), 1)
		if err := d.PrimitiveCell.Write(one); err != nil {
			return fmt.Errorf("drive primitive cell %s: %w", d.PrimitiveCell.Path(), err)
		}
		return nil
	}

	sig := d.Signal
	if err := checkBit(sig, ev.BitIndex); err != nil {
		return err
	}
	val, err := sig.Read()
	if err != nil {
		return fmt.Errorf("read %s: %w", sig.Path(), err)
	}
	if err := sig.Write(val.Flip(uint(ev.BitIndex))); err != nil {
		return fmt.Errorf("write %s: %w", sig.Path(), err)
	}
	return nil
}

func checkBit(sig domain.Signal, bit int) error {
	if bit < 0 || bit >= sig.Width() {
		return fmt.Errorf("%s[%d] (width %d): %w", sig.Path(), bit, sig.Width(), domain.ErrBitOutOfRange)
	}
	return nil
}

// Pulser applies and reverts transient pulses. Revert is only called for
// pulses whose Apply succeeded.
type Pulser interface {
	Apply(ctx context.Context, ev *domain.SET) error
	Revert(ctx context.Context, ev *domain.SET) error
}

// NewPulser returns the pulse protocol for mode. An empty mode selects force.
func NewPulser(mode domain.PulseMode) (Pulser, error) {
	switch mode {
	case domain.PulseModeForce, "":
		return ForcePulser{}, nil
	case domain.PulseModeRMW:
		return RMWPulser{}, nil
	default:
		return nil, fmt.Errorf("unknown pulse mode %q", mode)
	}
}

// ForcePulser holds the inverted bit with the simulator's override mechanism
// and releases it on revert. Whatever drives the signal after release wins.
type ForcePulser struct{}

// Apply forces the inverse of the current bit value.
func (ForcePulser) Apply(_ context.Context, ev *domain.SET) error {
	target, err := pulseTarget(ev)
	if err != nil {
		return err
	}
	val, err := target.Read()
	if err != nil {
		return fmt.Errorf("read %s: %w", target.Path(), err)
	}
	if err := target.Force(val.Flip(0)); err != nil {
		return fmt.Errorf("force %s: %w", target.Path(), err)
	}
	return nil
}

// Revert releases the override.
func (ForcePulser) Revert(_ context.Context, ev *domain.SET) error {
	target, err := pulseTarget(ev)
	if err != nil {
		return err
	}
	if err := target.Release(); err != nil {
		return fmt.Errorf("release %s: %w", target.Path(), err)
	}
	return nil
}

// pulseTarget is the whole signal for scalars and the single-bit view otherwise.
func pulseTarget(ev *domain.SET) (domain.Signal, error) {
	if err := checkBit(ev.Signal, ev.BitIndex); err != nil {
		return nil, err
	}
	if ev.Signal.Width() == 1 {
		return ev.Signal, nil
	}
	return ev.Signal.Bit(ev.BitIndex)
}

// RMWPulser emulates a pulse by flipping the bit with read-modify-write and
// flipping it back on revert. It is approximate: the design is not prevented
// from overwriting the bit during the pulse, so revert only restores the bit
// when it still differs from the pre-pulse state. A newer external write is
// never overwritten.
type RMWPulser struct{}

// Apply records the pre-pulse bit in ev.Previous and flips it.
func (RMWPulser) Apply(_ context.Context, ev *domain.SET) error {
	sig := ev.Signal
	if err := checkBit(sig, ev.BitIndex); err != nil {
		return err
	}
	val, err := sig.Read()
	if err != nil {
		return fmt.Errorf("read %s: %w", sig.Path(), err)
	}
	bit := uint(ev.BitIndex)
	ev.Previous = val.Mask(bit)
	if err := sig.Write(val.Flip(bit)); err != nil {
		return fmt.Errorf("write %s: %w", sig.Path(), err)
	}
	return nil
}

// Revert flips the bit back if it still differs from ev.Previous.
func (RMWPulser) Revert(_ context.Context, ev *domain.SET) error {
	sig := ev.Signal
	val, err := sig.Read()
	if err != nil {
		return fmt.Errorf("read %s: %w", sig.Path(), err)
	}
	bit := uint(ev.BitIndex)
	if val.Bit(bit) == ev.Previous.Bit(bit) {
		return nil
	}
	if err := sig.Write(val.Flip(bit)); err != nil {
		return fmt.Errorf("write %s: %w", sig.Path(), err)
	}
	return nil
}

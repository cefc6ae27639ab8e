package injection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ahrav/see-armada/internal/domain/injection"
)

func TestFlipPersistent_Register(t *testing.T) {
	t.Parallel()

	q := newDesign().AddSignal("q", 4)
	q.SetUint64(0b0101)

	ev := domain.NewSEU(domain.NewRegisterDescriptor(q), 1)
	require.NoError(t, FlipPersistent(ev))
	assert.Equal(t, uint64(0b0111), q.Uint64())

	require.NoError(t, FlipPersistent(ev))
	assert.Equal(t, uint64(0b0101), q.Uint64(), "a second flip restores the original value")
}

func TestFlipPersistent_Primitive(t *testing.T) {
	t.Parallel()

	top := newDesign()
	q := top.AddSignal("q", 1)
	cell := top.AddSignal("q_flip", 1)

	ev := domain.NewSEU(domain.NewPrimitiveDescriptor(q, cell, 0), 0)
	require.NoError(t, FlipPersistent(ev))
	assert.Equal(t, uint64(1), cell.Uint64())
	assert.Equal(t, uint64(0), q.Uint64())
}

func TestFlipPersistent_Errors(t *testing.T) {
	t.Parallel()

	q := newDesign().AddSignal("q", 4)
	q.SetUndefined()
	err := FlipPersistent(domain.NewSEU(domain.NewRegisterDescriptor(q), 0))
	assert.ErrorIs(t, err, domain.ErrUndefinedValue)

	q.SetUint64(0)
	err = FlipPersistent(domain.NewSEU(domain.NewRegisterDescriptor(q), 4))
	assert.ErrorIs(t, err, domain.ErrBitOutOfRange)
	assert.Equal(t, uint64(0), q.Uint64())
}

func TestForcePulser_ScalarSequence(t *testing.T) {
	t.Parallel()

	clk := newDesign().AddSignal("en", 1)
	clk.SetUint64(0)
	ev := domain.NewSET(clk, 0)
	p := ForcePulser{}

	require.NoError(t, p.Apply(context.Background(), ev))
	assert.Equal(t, uint64(1), clk.Uint64())

	clk.SetUint64(0)
	assert.Equal(t, uint64(1), clk.Uint64(), "the override holds against the native driver")

	require.NoError(t, p.Revert(context.Background(), ev))
	assert.Equal(t, uint64(0), clk.Uint64())
	assert.False(t, clk.Forced())
}

func TestForcePulser_VectorBit(t *testing.T) {
	t.Parallel()

	bus := newDesign().AddSignal("bus", 4)
	bus.SetUint64(0b1001)
	ev := domain.NewSET(bus, 2)
	p := ForcePulser{}

	require.NoError(t, p.Apply(context.Background(), ev))
	assert.Equal(t, uint64(0b1101), bus.Uint64())

	bus.SetUint64(0b0000)
	assert.Equal(t, uint64(0b0100), bus.Uint64(), "only the pulsed bit is overridden")

	require.NoError(t, p.Revert(context.Background(), ev))
	assert.Equal(t, uint64(0b0000), bus.Uint64())
}

func TestRMWPulser_RestoresBit(t *testing.T) {
	t.Parallel()

	q := newDesign().AddSignal("q", 4)
	q.SetUint64(0b0010)
	ev := domain.NewSET(q, 1)
	p := RMWPulser{}

	require.NoError(t, p.Apply(context.Background(), ev))
	assert.Equal(t, uint64(0b0000), q.Uint64())
	assert.Equal(t, uint64(0b0010), ev.Previous.Uint64())

	require.NoError(t, p.Revert(context.Background(), ev))
	assert.Equal(t, uint64(0b0010), q.Uint64())
}

func TestRMWPulser_DoesNotStompNewerWrite(t *testing.T) {
	t.Parallel()

	base := newDesign().AddSignal("q", 4)
	base.SetUint64(0b0000)
	q := &spySignal{Signal: base}
	ev := domain.NewSET(q, 0)
	p := RMWPulser{}

	require.NoError(t, p.Apply(context.Background(), ev))
	assert.Equal(t, uint64(0b0001), base.Uint64())

	// The design's own logic drives the bit back during the pulse window.
	base.SetUint64(0b1000)

	writesBefore, _ := q.counts()
	require.NoError(t, p.Revert(context.Background(), ev))
	writesAfter, _ := q.counts()

	assert.Equal(t, writesBefore, writesAfter, "revert must not write")
	assert.Equal(t, uint64(0b1000), base.Uint64())
}

func TestNewPulser(t *testing.T) {
	t.Parallel()

	p, err := NewPulser(domain.PulseModeRMW)
	require.NoError(t, err)
	assert.IsType(t, RMWPulser{}, p)

	p, err = NewPulser("")
	require.NoError(t, err)
	assert.IsType(t, ForcePulser{}, p)

	_, err = NewPulser("bogus")
	assert.Error(t, err)
}

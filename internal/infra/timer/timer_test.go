package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClock struct{ slept []time.Duration }

func (c *recordingClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	return nil
}

func TestBoundedRandomTimer_StaysInBounds(t *testing.T) {
	t.Parallel()

	clk := &recordingClock{}
	tm, err := NewBoundedRandomTimer(clk, 100*time.Nanosecond, 200*time.Nanosecond, 1)
	require.NoError(t, err)

	for range 500 {
		require.NoError(t, tm.Wait(context.Background()))
	}
	require.Len(t, clk.slept, 500)
	for _, d := range clk.slept {
		assert.GreaterOrEqual(t, d, 100*time.Nanosecond)
		assert.LessOrEqual(t, d, 200*time.Nanosecond)
	}
}

func TestBoundedSampler_RejectsInvertedBounds(t *testing.T) {
	t.Parallel()

	_, err := NewBoundedSampler(5, 1, 0)
	assert.Error(t, err)
	_, err = NewBoundedSampler(-1, 1, 0)
	assert.Error(t, err)
}

func TestBoundedSampler_DegenerateRange(t *testing.T) {
	t.Parallel()

	s, err := NewBoundedSampler(7, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(7), s.Sample())
}

func TestExponentialTimer_MeanIsClose(t *testing.T) {
	t.Parallel()

	clk := &recordingClock{}
	mean := 1000 * time.Nanosecond
	tm, err := NewExponentialTimer(clk, mean, 42)
	require.NoError(t, err)

	const n = 20000
	for range n {
		require.NoError(t, tm.Wait(context.Background()))
	}
	var total time.Duration
	for _, d := range clk.slept {
		assert.Positive(t, d)
		total += d
	}
	avg := float64(total) / n
	assert.InDelta(t, float64(mean), avg, 0.05*float64(mean))
}

func TestExponentialSampler_RejectsNonPositiveMean(t *testing.T) {
	t.Parallel()

	_, err := NewExponentialSampler(0, 0)
	assert.Error(t, err)
}

func TestSameSeedSameSequence(t *testing.T) {
	t.Parallel()

	a, err := NewBoundedSampler(0, time.Second, 9)
	require.NoError(t, err)
	b, err := NewBoundedSampler(0, time.Second, 9)
	require.NoError(t, err)
	for range 10 {
		assert.Equal(t, a.Sample(), b.Sample())
	}
}

func TestWallClock_SleepHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WallClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, WallClock{}.Sleep(context.Background(), time.Millisecond))
}

func TestFixedSampler(t *testing.T) {
	t.Parallel()

	clk := &recordingClock{}
	tm := New(clk, FixedSampler(3*time.Nanosecond))
	require.NoError(t, tm.Wait(context.Background()))
	assert.Equal(t, []time.Duration{3 * time.Nanosecond}, clk.slept)
}

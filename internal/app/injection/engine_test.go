package injection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/see-armada/internal/domain/events"
	domain "github.com/ahrav/see-armada/internal/domain/injection"
	"github.com/ahrav/see-armada/internal/infra/eventbus/memory"
	"github.com/ahrav/see-armada/pkg/common/logger"
)

func joinWithin(t *testing.T, inj *Injector) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := inj.Join(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "campaign did not finish")
	return err
}

func TestEngine_GoalReachedAfterOneRound(t *testing.T) {
	t.Parallel()

	q := newDesign().AddSignal("q", 4)
	q.SetUint64(0b0101)
	cat := catalogOf(q)
	sink := &recordingSink{}

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		Strategy:          repeat(domain.NewSEU(cat.SEU[0], 1)),
		Goal:              totalFaults(1),
		Sink:              sink,
	}, cat)

	require.NoError(t, inj.Start(context.Background()))
	require.NoError(t, joinWithin(t, inj))

	s := inj.Summary()
	assert.Equal(t, int64(1), s.FaultsInjected)
	assert.Equal(t, int64(1), s.Rounds)
	assert.Equal(t, domain.CampaignStatusStopped, s.Status)
	assert.Equal(t, uint64(0b0111), q.Uint64())
	assert.Equal(t, []int64{1}, sink.ids)
	assert.Equal(t, []string{"SEU_top.q[1] "}, sink.labels)
}

func TestEngine_ZeroGoalRunsNoRounds(t *testing.T) {
	t.Parallel()

	q := newDesign().AddSignal("q", 4)
	strat := repeat(domain.NewSET(q, 0))
	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: blockingTimer(nil),
		Strategy:          strat,
		Goal:              totalFaults(0),
	}, catalogOf(q))

	require.NoError(t, inj.Start(context.Background()))
	require.NoError(t, joinWithin(t, inj))

	assert.Zero(t, inj.Summary().Rounds)
	assert.Zero(t, strat.batchCalls)
	assert.Equal(t, 1, strat.initSEU)
	assert.Equal(t, 1, strat.initSET)
}

func TestEngine_RoundsPerGoalCheck(t *testing.T) {
	t.Parallel()

	q := newDesign().AddSignal("q", 4)
	q.SetUint64(0)
	cat := catalogOf(q)

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer:  immediateTimer,
		Strategy:           repeat(domain.NewSEU(cat.SEU[0], 0)),
		Goal:               totalFaults(1),
		RoundsPerGoalCheck: 3,
	}, cat)

	require.NoError(t, inj.Start(context.Background()))
	require.NoError(t, joinWithin(t, inj))

	assert.Equal(t, int64(3), inj.Summary().Rounds)
	assert.Equal(t, int64(3), inj.Summary().FaultsInjected)
}

func TestEngine_CompositeLabelAndTransientRevert(t *testing.T) {
	t.Parallel()

	top := newDesign()
	q := top.AddSignal("q", 4)
	q.SetUint64(0b0000)
	en := top.AddSignal("en", 1)
	en.SetUint64(0)
	cat := catalogOf(q, en)
	sink := &recordingSink{}

	var forcedDuringPulse bool
	transient := timerFunc(func(ctx context.Context) error {
		forcedDuringPulse = en.Forced() && en.Uint64() == 1
		return ctx.Err()
	})

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		TransientTimer:    transient,
		Strategy:          repeat(domain.NewSEU(cat.SEU[0], 2), domain.NewSET(en, 0)),
		Goal:              totalFaults(2),
		Sink:              sink,
	}, cat)

	require.NoError(t, inj.Start(context.Background()))
	require.NoError(t, joinWithin(t, inj))

	assert.True(t, forcedDuringPulse)
	assert.False(t, en.Forced())
	assert.Equal(t, uint64(0), en.Uint64())
	assert.Equal(t, uint64(0b0100), q.Uint64())
	assert.Equal(t, []string{"SEU_top.q[2] SET_top.en[0] "}, sink.labels)
	assert.Equal(t, int64(1), inj.Summary().TransientsReverted)
}

func TestEngine_WidthGuardDropsEvents(t *testing.T) {
	t.Parallel()

	top := newDesign()
	wide := top.AddSignal("wide", 200)
	q := top.AddSignal("q", 4)
	q.SetUint64(0)
	wideWrites := &spySignal{Signal: wide}
	cat := catalogOf(q)

	strat := &mockStrategy{nextBatch: func(call int) ([]domain.FaultEvent, error) {
		if call == 0 {
			return []domain.FaultEvent{domain.NewSET(wideWrites, 3)}, nil
		}
		return []domain.FaultEvent{domain.NewSEU(cat.SEU[0], 0)}, nil
	}}

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		Strategy:          strat,
		Goal:              totalFaults(1),
	}, cat)

	require.NoError(t, inj.Start(context.Background()))
	require.NoError(t, joinWithin(t, inj))

	writes, _ := wideWrites.counts()
	assert.Zero(t, writes)
	s := inj.Summary()
	assert.Equal(t, int64(1), s.Skipped)
	assert.Equal(t, int64(2), s.Rounds)
	assert.Equal(t, int64(1), s.FaultsInjected)
}

func TestEngine_UndefinedValueSkipsEvent(t *testing.T) {
	t.Parallel()

	top := newDesign()
	x := top.AddSignal("x", 2)
	x.SetUndefined()
	q := top.AddSignal("q", 2)
	q.SetUint64(0)
	cat := catalogOf(x, q)
	sink := &recordingSink{}

	strat := &mockStrategy{nextBatch: func(call int) ([]domain.FaultEvent, error) {
		if call == 0 {
			return []domain.FaultEvent{domain.NewSEU(cat.SEU[0], 0)}, nil
		}
		return []domain.FaultEvent{domain.NewSEU(cat.SEU[1], 1)}, nil
	}}

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		Strategy:          strat,
		Goal:              totalFaults(1),
		Sink:              sink,
	}, cat)

	require.NoError(t, inj.Start(context.Background()))
	require.NoError(t, joinWithin(t, inj))

	s := inj.Summary()
	assert.Equal(t, int64(1), s.FaultsInjected)
	assert.Equal(t, int64(1), s.Skipped)
	assert.Equal(t, int64(2), s.EventID)
	assert.Equal(t, []string{"", "SEU_top.q[1] "}, sink.labels)
	_, err := x.Read()
	assert.ErrorIs(t, err, domain.ErrUndefinedValue, "a skipped event never writes")
}

func TestEngine_UnappliedPulseIsNotReverted(t *testing.T) {
	t.Parallel()

	top := newDesign()
	base := top.AddSignal("en", 1)
	base.SetUndefined()
	en := &spySignal{Signal: base}
	q := top.AddSignal("q", 1)
	q.SetUint64(0)
	cat := catalogOf(q)

	strat := &mockStrategy{nextBatch: func(call int) ([]domain.FaultEvent, error) {
		if call == 0 {
			return []domain.FaultEvent{domain.NewSET(en, 0)}, nil
		}
		return []domain.FaultEvent{domain.NewSEU(cat.SEU[0], 0)}, nil
	}}

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		TransientTimer:    immediateTimer,
		Strategy:          strat,
		Goal:              totalFaults(1),
	}, cat)

	require.NoError(t, inj.Start(context.Background()))
	require.NoError(t, joinWithin(t, inj))

	_, releases := en.counts()
	assert.Zero(t, releases)
	assert.Zero(t, inj.Summary().TransientsReverted)
}

func TestEngine_FatalWriteErrorSurfacesOnJoin(t *testing.T) {
	t.Parallel()

	boom := errors.New("simulator gone")
	base := newDesign().AddSignal("q", 4)
	base.SetUint64(0)
	q := &spySignal{Signal: base, writeErr: boom}
	cat := catalogOf(q)

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		Strategy:          repeat(domain.NewSEU(cat.SEU[0], 0)),
		Goal:              never,
	}, cat)

	require.NoError(t, inj.Start(context.Background()))
	err := joinWithin(t, inj)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.CampaignStatusStopped, inj.Summary().Status)
}

func TestEngine_StrategyErrorSurfacesOnJoin(t *testing.T) {
	t.Parallel()

	q := newDesign().AddSignal("q", 4)
	strat := &mockStrategy{nextBatch: func(int) ([]domain.FaultEvent, error) {
		return nil, domain.ErrNoCandidates
	}}

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		Strategy:          strat,
		Goal:              never,
	}, catalogOf(q))

	require.NoError(t, inj.Start(context.Background()))
	assert.ErrorIs(t, joinWithin(t, inj), domain.ErrNoCandidates)
}

func TestEngine_StopLetsPulseRunItsCourse(t *testing.T) {
	t.Parallel()

	en := newDesign().AddSignal("en", 1)
	en.SetUint64(0)
	transient := newGatedTimer()

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		TransientTimer:    transient,
		Strategy:          repeat(domain.NewSET(en, 0)),
		Goal:              never,
	}, catalogOf(en))

	require.NoError(t, inj.Start(context.Background()))
	<-transient.entered
	require.True(t, en.Forced())

	inj.Stop()

	joined := make(chan error, 1)
	go func() { joined <- inj.Join(context.Background()) }()
	select {
	case err := <-joined:
		t.Fatalf("campaign ended before the pulse elapsed: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.True(t, en.Forced(), "stop must not cut the pulse short")
	assert.False(t, transient.fired.Load())

	transient.open()
	select {
	case err := <-joined:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("campaign did not finish")
	}

	assert.True(t, transient.fired.Load())
	assert.False(t, en.Forced())
	assert.Equal(t, uint64(0), en.Uint64())

	s := inj.Summary()
	assert.Equal(t, int64(1), s.FaultsInjected)
	assert.Equal(t, int64(1), s.Rounds)
	assert.Equal(t, int64(1), s.TransientsReverted)
	assert.Equal(t, domain.CampaignStatusStopped, s.Status)
}

func TestEngine_FatalErrorKeepsAppliedCount(t *testing.T) {
	t.Parallel()

	top := newDesign()
	a := top.AddSignal("a", 4)
	a.SetUint64(0)
	base := top.AddSignal("b", 4)
	base.SetUint64(0)
	boom := errors.New("simulator gone")
	b := &spySignal{Signal: base, writeErr: boom}
	cat := catalogOf(a, b)

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		Strategy:          repeat(domain.NewSEU(cat.SEU[0], 2), domain.NewSEU(cat.SEU[1], 0)),
		Goal:              never,
	}, cat)

	require.NoError(t, inj.Start(context.Background()))
	assert.ErrorIs(t, joinWithin(t, inj), boom)

	assert.Equal(t, uint64(0b0100), a.Uint64())
	assert.Equal(t, int64(1), inj.Summary().FaultsInjected)
}

// cancellingSink cancels the campaign context from inside Record and reports
// whether the context it received was still live.
type cancellingSink struct {
	cancel context.CancelFunc
	ctxErr error
	called bool
}

func (s *cancellingSink) Record(ctx context.Context, _ int64, _ string) error {
	s.cancel()
	s.called = true
	s.ctxErr = ctx.Err()
	return nil
}

func TestEngine_SinkContextSurvivesCancellation(t *testing.T) {
	t.Parallel()

	q := newDesign().AddSignal("q", 2)
	q.SetUint64(0)
	cat := catalogOf(q)

	ctx, cancel := context.WithCancel(context.Background())
	obs := &cancellingSink{cancel: cancel}

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		Strategy:          repeat(domain.NewSEU(cat.SEU[0], 0)),
		Goal:              never,
		Sink:              obs,
	}, cat)

	require.NoError(t, inj.Start(ctx))
	assert.ErrorIs(t, joinWithin(t, inj), context.Canceled)

	assert.True(t, obs.called)
	assert.NoError(t, obs.ctxErr, "an applied round is reported on a live context")
}

func TestEngine_CancelDuringTransientRevertsPulse(t *testing.T) {
	t.Parallel()

	en := newDesign().AddSignal("en", 1)
	en.SetUint64(1)
	entered := make(chan struct{}, 1)

	inj := newTestInjector(t, EngineConfig{
		InterArrivalTimer: immediateTimer,
		TransientTimer:    blockingTimer(entered),
		Strategy:          repeat(domain.NewSET(en, 0)),
		Goal:              never,
		PulseMode:         domain.PulseModeRMW,
	}, catalogOf(en))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, inj.Start(ctx))
	<-entered
	assert.Equal(t, uint64(0), en.Uint64())

	cancel()
	assert.ErrorIs(t, joinWithin(t, inj), context.Canceled)
	assert.Equal(t, uint64(1), en.Uint64())
}

func TestEngine_PublishesLifecycleEvents(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewBroker()
	var (
		mu  sync.Mutex
		got []events.EventType
	)
	require.NoError(t, bus.Subscribe(ctx,
		[]events.EventType{domain.EventTypeCampaignStarted, domain.EventTypeCampaignCompleted},
		func(_ context.Context, evt events.EventEnvelope) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, evt.Type)
			return nil
		}))

	q := newDesign().AddSignal("q", 2)
	q.SetUint64(0)
	cat := catalogOf(q)
	inj, err := NewInjector(InjectorConfig{Engine: EngineConfig{
		InterArrivalTimer: immediateTimer,
		Strategy:          repeat(domain.NewSEU(cat.SEU[0], 0)),
		Goal:              totalFaults(1),
	}}, cat, bus, logger.Noop(), tracer, nil)
	require.NoError(t, err)

	require.NoError(t, inj.Start(ctx))
	require.NoError(t, joinWithin(t, inj))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []events.EventType{domain.EventTypeCampaignStarted, domain.EventTypeCampaignCompleted}, got)
}

package injection

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	domain "github.com/ahrav/see-armada/internal/domain/injection"
	"github.com/ahrav/see-armada/internal/infra/sim/memory"
	"github.com/ahrav/see-armada/pkg/common/logger"
)

var tracer = noop.NewTracerProvider().Tracer("test")

// timerFunc adapts a function to domain.Timer.
type timerFunc func(ctx context.Context) error

func (f timerFunc) Wait(ctx context.Context) error { return f(ctx) }

// immediateTimer returns as soon as it is called.
var immediateTimer = timerFunc(func(ctx context.Context) error { return ctx.Err() })

// blockingTimer signals entered on every wait and then blocks until ctx is done.
func blockingTimer(entered chan<- struct{}) domain.Timer {
	return timerFunc(func(ctx context.Context) error {
		if entered != nil {
			select {
			case entered <- struct{}{}:
			default:
			}
		}
		<-ctx.Done()
		return ctx.Err()
	})
}

// gatedTimer reports every wait on entered and then blocks until open is
// called or ctx is done.
type gatedTimer struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	fired   atomic.Bool
}

func newGatedTimer() *gatedTimer {
	return &gatedTimer{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedTimer) Wait(ctx context.Context) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		g.fired.Store(true)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedTimer) open() { g.once.Do(func() { close(g.release) }) }

// mockStrategy is a func-field fake of domain.Strategy.
type mockStrategy struct {
	mu         sync.Mutex
	initSEU    int
	initSET    int
	nextBatch  func(call int) ([]domain.FaultEvent, error)
	batchCalls int
}

func (m *mockStrategy) Initialize(seu []*domain.SignalDescriptor, set []domain.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initSEU, m.initSET = len(seu), len(set)
}

func (m *mockStrategy) NextBatch() ([]domain.FaultEvent, error) {
	m.mu.Lock()
	call := m.batchCalls
	m.batchCalls++
	m.mu.Unlock()
	return m.nextBatch(call)
}

// repeat returns a strategy yielding the same batch on every call.
func repeat(batch ...domain.FaultEvent) *mockStrategy {
	return &mockStrategy{nextBatch: func(int) ([]domain.FaultEvent, error) { return batch, nil }}
}

// goalFunc adapts a function to domain.Goal.
type goalFunc func(injected, candidates int) bool

func (f goalFunc) Evaluate(injected, candidates int) bool { return f(injected, candidates) }

func totalFaults(n int) domain.Goal {
	return goalFunc(func(injected, _ int) bool { return injected >= n })
}

var never = goalFunc(func(int, int) bool { return false })

// recordingSink captures every round reported to it.
type recordingSink struct {
	mu     sync.Mutex
	ids    []int64
	labels []string
}

func (s *recordingSink) Record(_ context.Context, id int64, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.labels = append(s.labels, label)
	return nil
}

// spySignal wraps a signal and counts calls or fails writes.
type spySignal struct {
	domain.Signal

	mu       sync.Mutex
	writes   int
	releases int
	writeErr error
}

func (s *spySignal) Write(v domain.Value) error {
	s.mu.Lock()
	s.writes++
	err := s.writeErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Signal.Write(v)
}

func (s *spySignal) Release() error {
	s.mu.Lock()
	s.releases++
	s.mu.Unlock()
	return s.Signal.Release()
}

func (s *spySignal) counts() (writes, releases int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes, s.releases
}

// catalogOf builds a catalog covering sigs for both fault kinds.
func catalogOf(sigs ...domain.Signal) Catalog {
	cat := Catalog{}
	for _, s := range sigs {
		cat.SEU = append(cat.SEU, domain.NewRegisterDescriptor(s))
		cat.SET = append(cat.SET, s)
	}
	return cat
}

func newTestInjector(t *testing.T, cfg EngineConfig, cat Catalog) *Injector {
	t.Helper()
	inj, err := NewInjector(InjectorConfig{Engine: cfg}, cat, nil, logger.Noop(), tracer, nil)
	require.NoError(t, err)
	return inj
}

func newDesign() *memory.Scope { return memory.NewDesign("top", "top") }

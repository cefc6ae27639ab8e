// Package strategy provides injection strategies and campaign goals.
package strategy

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ahrav/see-armada/internal/domain/injection"
)

var _ injection.Strategy = (*RandomStrategy)(nil)

// RandomConfig configures a RandomStrategy.
type RandomConfig struct {
	// FaultsPerRound is the batch size; values below one mean one.
	FaultsPerRound int
	// SEURatio is the probability that a fault is an SEU rather than a SET.
	// When the chosen kind has no candidates the other kind is used.
	SEURatio float64
	// Seed makes the sequence reproducible.
	Seed uint64
}

// RandomStrategy draws faults uniformly: kind by SEURatio, then a candidate,
// then a bit within the candidate's width. Primitive descriptors always use
// their own bit index.
type RandomStrategy struct {
	cfg RandomConfig

	mu  sync.Mutex
	rng *rand.Rand
	seu []*injection.SignalDescriptor
	set []injection.Signal
}

// NewRandom creates a RandomStrategy.
func NewRandom(cfg RandomConfig) (*RandomStrategy, error) {
	if cfg.SEURatio < 0 || cfg.SEURatio > 1 {
		return nil, fmt.Errorf("seu ratio must be within [0, 1], got %v", cfg.SEURatio)
	}
	if cfg.FaultsPerRound < 1 {
		cfg.FaultsPerRound = 1
	}
	return &RandomStrategy{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xda942042e4dd58b5)),
	}, nil
}

// Initialize stores the candidate sets.
func (s *RandomStrategy) Initialize(seu []*injection.SignalDescriptor, set []injection.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seu = seu
	s.set = set
}

// NextBatch returns FaultsPerRound freshly drawn events.
func (s *RandomStrategy) NextBatch() ([]injection.FaultEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.seu) == 0 && len(s.set) == 0 {
		return nil, injection.ErrNoCandidates
	}

	batch := make([]injection.FaultEvent, 0, s.cfg.FaultsPerRound)
	for range s.cfg.FaultsPerRound {
		if s.pickSEU() {
			d := s.seu[s.rng.IntN(len(s.seu))]
			bit := d.BitIndex
			if d.Class == injection.SignalClassRegister {
				bit = s.randomBit(d.Signal)
			}
			batch = append(batch, injection.NewSEU(d, bit))
			continue
		}
		sig := s.set[s.rng.IntN(len(s.set))]
		batch = append(batch, injection.NewSET(sig, s.randomBit(sig)))
	}
	return batch, nil
}

func (s *RandomStrategy) pickSEU() bool {
	switch {
	case len(s.set) == 0:
		return true
	case len(s.seu) == 0:
		return false
	default:
		return s.rng.Float64() < s.cfg.SEURatio
	}
}

func (s *RandomStrategy) randomBit(sig injection.Signal) int {
	if w := sig.Width(); w > 1 {
		return s.rng.IntN(w)
	}
	return 0
}

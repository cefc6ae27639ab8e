package strategy

import (
	"fmt"
	"math"

	"github.com/ahrav/see-armada/internal/domain/injection"
)

var (
	_ injection.Goal = TotalFaults(0)
	_ injection.Goal = CandidateCoverage(0)
)

// TotalFaults is satisfied once at least that many faults have been injected.
type TotalFaults int

// Evaluate implements injection.Goal.
func (g TotalFaults) Evaluate(injected, _ int) bool { return injected >= int(g) }

// CandidateCoverage is satisfied once the number of injected faults reaches the
// given fraction of the candidate count. An empty candidate set is trivially
// covered.
type CandidateCoverage float64

// NewCandidateCoverage validates ratio and returns the goal.
func NewCandidateCoverage(ratio float64) (CandidateCoverage, error) {
	if ratio < 0 || ratio > 1 || math.IsNaN(ratio) {
		return 0, fmt.Errorf("coverage ratio must be within [0, 1], got %v", ratio)
	}
	return CandidateCoverage(ratio), nil
}

// Evaluate implements injection.Goal.
func (g CandidateCoverage) Evaluate(injected, candidates int) bool {
	if candidates == 0 {
		return true
	}
	return injected >= int(math.Ceil(float64(g)*float64(candidates)))
}

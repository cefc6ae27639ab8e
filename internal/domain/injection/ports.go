// Package injection holds the domain model of fault-injection campaigns: the
// contracts a simulation backend must satisfy, the fault events a strategy
// produces, and the ports through which timing, goals and observability are
// plugged into a campaign.
package injection

import (
	"context"
	"strings"
)

// Strategy decides which faults a campaign injects. Initialize hands it the
// candidate sets once, at campaign start; NextBatch then yields successive
// batches lazily. A strategy is restartable only by constructing a new one.
type Strategy interface {
	Initialize(seu []*SignalDescriptor, set []Signal)
	NextBatch() ([]FaultEvent, error)
}

// Goal decides when a campaign is done, given the cumulative number of
// injected faults and the total candidate count.
type Goal interface {
	Evaluate(injected, candidates int) bool
}

// Timer is a suspension point. Each Wait samples and waits out one delay.
type Timer interface {
	Wait(ctx context.Context) error
}

// ObservabilitySink mirrors the running event id and the composite label of the
// last round to an external monitor.
type ObservabilitySink interface {
	Record(ctx context.Context, eventID int64, label string) error
}

// PulseMode selects the transient pulse protocol.
type PulseMode string

const (
	// PulseModeForce uses the simulator's override (force/release) mechanism.
	PulseModeForce PulseMode = "force"
	// PulseModeRMW emulates a pulse with read-modify-write. Only correct when no
	// other driver writes the same bit during the pulse window.
	PulseModeRMW PulseMode = "rmw"
)

// String returns the string representation of the PulseMode.
func (m PulseMode) String() string { return string(m) }

// PulseModeForSimulator picks the pulse protocol for a simulator name. Icarus
// has no usable override mechanism and falls back to read-modify-write.
func PulseModeForSimulator(simulator string) PulseMode {
	if strings.HasPrefix(strings.ToLower(simulator), "icarus") {
		return PulseModeRMW
	}
	return PulseModeForce
}

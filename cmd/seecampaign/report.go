package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/see-armada/internal/app/injection"
	"github.com/ahrav/see-armada/internal/domain/events"
	domain "github.com/ahrav/see-armada/internal/domain/injection"
)

// Report is the YAML document written at the end of a run.
type Report struct {
	CampaignID         string        `yaml:"campaign_id"`
	Name               string        `yaml:"name"`
	Status             string        `yaml:"status"`
	Simulator          string        `yaml:"simulator,omitempty"`
	PulseMode          string        `yaml:"pulse_mode"`
	SimTime            string        `yaml:"sim_time"`
	FaultsInjected     int64         `yaml:"faults_injected"`
	Rounds             int64         `yaml:"rounds"`
	Skipped            int64         `yaml:"skipped"`
	TransientsReverted int64         `yaml:"transients_reverted"`
	SEUCandidates      int           `yaml:"seu_candidates"`
	SETCandidates      int           `yaml:"set_candidates"`
	Error              string        `yaml:"error,omitempty"`
	History            []RoundRecord `yaml:"history,omitempty"`
}

// RoundRecord is one injection round as seen on the event bus.
type RoundRecord struct {
	EventID int64  `yaml:"event_id"`
	Label   string `yaml:"label"`
}

func newReport(s injection.Summary) Report {
	return Report{
		CampaignID:         s.CampaignID.String(),
		Name:               s.Name,
		Status:             s.Status.String(),
		FaultsInjected:     s.FaultsInjected,
		Rounds:             s.Rounds,
		Skipped:            s.Skipped,
		TransientsReverted: s.TransientsReverted,
		SEUCandidates:      s.SEUCandidates,
		SETCandidates:      s.SETCandidates,
	}
}

// roundCollector records every FaultRoundInjectedEvent dispatched to it.
type roundCollector struct {
	mu     sync.Mutex
	rounds []RoundRecord
}

func (c *roundCollector) onRound(_ context.Context, evt events.EventEnvelope) error {
	round, ok := evt.Payload.(domain.FaultRoundInjectedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T", evt.Payload)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rounds = append(c.rounds, RoundRecord{EventID: round.EventID, Label: round.Label})
	return nil
}

func (c *roundCollector) history() []RoundRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RoundRecord, len(c.rounds))
	copy(out, c.rounds)
	return out
}

func writeReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// writeReportFile writes r to path, or to out when path is "-".
func writeReportFile(path string, out io.Writer, r Report) error {
	if path == "" {
		return nil
	}
	if path == "-" {
		return writeReport(out, r)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()
	return writeReport(f, r)
}

// catalogListing is the YAML form of a candidate catalog.
type catalogListing struct {
	SEU []string `yaml:"seu"`
	SET []string `yaml:"set"`
}

func writeCatalog(w io.Writer, cat injection.Catalog) error {
	listing := catalogListing{
		SEU: make([]string, 0, len(cat.SEU)),
		SET: make([]string, 0, len(cat.SET)),
	}
	for _, d := range cat.SEU {
		listing.SEU = append(listing.SEU, d.Signal.Path())
	}
	for _, s := range cat.SET {
		listing.SET = append(listing.SET, s.Path())
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(listing); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return enc.Close()
}

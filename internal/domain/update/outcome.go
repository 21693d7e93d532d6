// Package update defines the per-device and fleet-level results of a
// reconciliation run.
package update

import "time"

// Outcome is the terminal result of reconciling one device. Every
// reconcile call produces exactly one Outcome, whatever path it took.
//
// When an update was attempted, Success implies UpdateCompleted implies
// UpdateStarted. A no-op run (already up to date, check-only) reports
// Success with both flags false because no command was ever issued.
type Outcome struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	DNSName string `json:"dns_name,omitempty"`

	Success bool   `json:"success"`
	Message string `json:"message"`

	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version"`

	NeedsUpdate     bool `json:"needs_update"`
	UpdateStarted   bool `json:"update_started"`
	UpdateCompleted bool `json:"update_completed"`

	Elapsed        time.Duration `json:"-"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
	TimeoutSeconds int           `json:"timeout_seconds,omitempty"`
}

// FinishedAfter stamps the elapsed time on the outcome.
func (o *Outcome) FinishedAfter(elapsed time.Duration) *Outcome {
	o.Elapsed = elapsed
	o.ElapsedSeconds = elapsed.Seconds()
	return o
}

// FleetSummary aggregates one fleet run. Outcomes keep the input device
// order regardless of completion order.
type FleetSummary struct {
	Total       int        `json:"total"`
	NeedsUpdate int        `json:"needs_update"`
	Updated     int        `json:"updated"`
	Checked     int        `json:"checked"`
	Outcomes    []*Outcome `json:"outcomes"`
}

// Summarize builds the aggregate counts from ordered per-device outcomes.
func Summarize(outcomes []*Outcome) *FleetSummary {
	s := &FleetSummary{
		Total:    len(outcomes),
		Outcomes: outcomes,
	}
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		s.Checked++
		if o.NeedsUpdate {
			s.NeedsUpdate++
		}
		if o.Success && o.UpdateCompleted {
			s.Updated++
		}
	}
	return s
}

// Package detect evaluates probes against the local system and collects the
// results into a report.
package detect

import (
	"time"

	"github.com/chatta-voice/chatta-setup/internal/probe"
)

// Report is the outcome of one detection run. Results follow registry order.
// Score and MissingRequired are filled in by the readiness scorer.
type Report struct {
	Results         []probe.Result `json:"results"`
	Score           int            `json:"score"`
	MissingRequired []string       `json:"missing_required"`
	StartedAt       time.Time      `json:"started_at"`
	Duration        time.Duration  `json:"duration_ns"`
}

// Result returns the result recorded for the named probe.
func (r *Report) Result(name string) (probe.Result, bool) {
	if r == nil {
		return probe.Result{}, false
	}
	for _, res := range r.Results {
		if res.ProbeName == name {
			return res, true
		}
	}
	return probe.Result{}, false
}

// Counts tallies results by status.
func (r *Report) Counts() map[probe.Status]int {
	counts := make(map[probe.Status]int)
	if r == nil {
		return counts
	}
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

// HasErrors reports whether any probe failed to execute.
func (r *Report) HasErrors() bool {
	return r.Counts()[probe.StatusError] > 0
}

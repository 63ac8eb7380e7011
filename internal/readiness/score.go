// Package readiness turns a detection report into a readiness score.
package readiness

import (
	"math"

	"github.com/chatta-voice/chatta-setup/internal/detect"
	"github.com/chatta-voice/chatta-setup/internal/probe"
)

// Weights holds the scoring weight of a required and an optional probe.
type Weights struct {
	Required float64
	Optional float64
}

// weight returns the weight of p.
func (w Weights) weight(p probe.Probe) float64 {
	if p.Required {
		return w.Required
	}
	return w.Optional
}

// Score computes a 0-100 readiness score:
//
//	100 × Σ weight(present or degraded) / Σ weight(all)
//
// rounded to the nearest integer. A probe without a result in the report
// counts as missing. Zero total weight scores 0.
func Score(probes []probe.Probe, report *detect.Report, w Weights) int {
	var total, detected float64
	for _, p := range probes {
		pw := w.weight(p)
		total += pw
		if res, ok := report.Result(p.Name); ok && res.Status.Satisfied() {
			detected += pw
		}
	}
	if total <= 0 {
		return 0
	}

	score := int(math.Round(100 * detected / total))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// MissingRequired returns the names of required probes that are absent or
// errored, in registry order. Optional probes are never included.
func MissingRequired(probes []probe.Probe, report *detect.Report) []string {
	missing := []string{}
	for _, p := range probes {
		if !p.Required {
			continue
		}
		res, ok := report.Result(p.Name)
		if !ok || res.Status == probe.StatusAbsent || res.Status == probe.StatusError {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// Apply fills report.Score and report.MissingRequired.
func Apply(probes []probe.Probe, report *detect.Report, w Weights) {
	if report == nil {
		return
	}
	report.Score = Score(probes, report, w)
	report.MissingRequired = MissingRequired(probes, report)
}

package readiness

import (
	"github.com/chatta-voice/chatta-setup/internal/detect"
	"github.com/chatta-voice/chatta-setup/internal/probe"
)

// Level is a coarse readiness classification.
type Level string

const (
	LevelReady    Level = "ready"
	LevelPartial  Level = "partial"
	LevelNotReady Level = "not-ready"
)

// Classify maps a score to a level. Any missing required component rules
// out LevelReady.
func Classify(score int, missingRequired int) Level {
	switch {
	case score < 40:
		return LevelNotReady
	case score >= 80 && missingRequired == 0:
		return LevelReady
	default:
		return LevelPartial
	}
}

// CategorySummary counts detected probes within one category.
type CategorySummary struct {
	Category probe.Category `json:"category"`
	Detected int            `json:"detected"`
	Total    int            `json:"total"`
	Errors   int            `json:"errors"`
}

// ByCategory summarizes the report per category, in display order. Empty
// categories are omitted.
func ByCategory(probes []probe.Probe, report *detect.Report) []CategorySummary {
	counts := make(map[probe.Category]*CategorySummary)
	for _, p := range probes {
		s, ok := counts[p.Category]
		if !ok {
			s = &CategorySummary{Category: p.Category}
			counts[p.Category] = s
		}
		s.Total++
		res, ok := report.Result(p.Name)
		if !ok {
			continue
		}
		if res.Status.Satisfied() {
			s.Detected++
		}
		if res.Status == probe.StatusError {
			s.Errors++
		}
	}

	var out []CategorySummary
	for _, c := range probe.Categories {
		if s, ok := counts[c]; ok {
			out = append(out, *s)
		}
	}
	return out
}

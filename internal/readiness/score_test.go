package readiness

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatta-voice/chatta-setup/internal/detect"
	"github.com/chatta-voice/chatta-setup/internal/probe"
)

var defaultWeights = Weights{Required: 3, Optional: 1}

func reportOf(statuses map[string]probe.Status, probes []probe.Probe) *detect.Report {
	r := &detect.Report{}
	for _, p := range probes {
		if s, ok := statuses[p.Name]; ok {
			r.Results = append(r.Results, probe.Result{ProbeName: p.Name, Status: s})
		}
	}
	return r
}

func scenarioProbes() []probe.Probe {
	return []probe.Probe{
		{Name: "git", Kind: probe.KindCommand, Target: "git", Required: true, Category: probe.CategoryDependency},
		{Name: "port-8880", Kind: probe.KindPort, Target: "8880", Required: true, Category: probe.CategoryService},
		{Name: "voices", Kind: probe.KindFile, Target: ".voices.txt", Category: probe.CategoryConfig},
	}
}

func TestScore_MixedScenario(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{
		"git":       probe.StatusPresent,
		"port-8880": probe.StatusAbsent,
		"voices":    probe.StatusAbsent,
	}, probes)

	Apply(probes, report, defaultWeights)

	// round(100 × 3/7) = 43
	assert.Equal(t, 43, report.Score)
	assert.Equal(t, []string{"port-8880"}, report.MissingRequired)
}

func TestScore_AllPresent(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{
		"git": probe.StatusPresent, "port-8880": probe.StatusPresent, "voices": probe.StatusPresent,
	}, probes)

	assert.Equal(t, 100, Score(probes, report, defaultWeights))
	assert.Empty(t, MissingRequired(probes, report))
}

func TestScore_AllAbsent(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{
		"git": probe.StatusAbsent, "port-8880": probe.StatusAbsent, "voices": probe.StatusAbsent,
	}, probes)

	assert.Equal(t, 0, Score(probes, report, defaultWeights))
	assert.Equal(t, []string{"git", "port-8880"}, MissingRequired(probes, report))
}

func TestScore_DegradedCountsAsDetected(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{
		"git": probe.StatusDegraded, "port-8880": probe.StatusPresent, "voices": probe.StatusDegraded,
	}, probes)

	assert.Equal(t, 100, Score(probes, report, defaultWeights))
	assert.Empty(t, MissingRequired(probes, report))
}

func TestScore_ErrorCountsAsMissing(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{
		"git": probe.StatusPresent, "port-8880": probe.StatusError, "voices": probe.StatusPresent,
	}, probes)

	// round(100 × 4/7) = 57
	assert.Equal(t, 57, Score(probes, report, defaultWeights))
	assert.Equal(t, []string{"port-8880"}, MissingRequired(probes, report))
}

func TestScore_OptionalErrorNeverMissing(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{
		"git": probe.StatusPresent, "port-8880": probe.StatusPresent, "voices": probe.StatusError,
	}, probes)

	assert.Empty(t, MissingRequired(probes, report))
}

func TestScore_NoProbes(t *testing.T) {
	report := &detect.Report{}
	Apply(nil, report, defaultWeights)
	assert.Equal(t, 0, report.Score)
	assert.Empty(t, report.MissingRequired)
}

func TestScore_ZeroWeights(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{"git": probe.StatusPresent}, probes)
	assert.Equal(t, 0, Score(probes, report, Weights{}))
}

func TestScore_MissingResultCountsAsAbsent(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{"git": probe.StatusPresent}, probes)

	assert.Equal(t, 43, Score(probes, report, defaultWeights))
	assert.Equal(t, []string{"port-8880"}, MissingRequired(probes, report))
}

func TestScore_CustomWeights(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{
		"git": probe.StatusAbsent, "port-8880": probe.StatusAbsent, "voices": probe.StatusPresent,
	}, probes)

	// Equal weights: 1/3.
	assert.Equal(t, 33, Score(probes, report, Weights{Required: 1, Optional: 1}))
}

func TestScore_RangeAndDeterminism(t *testing.T) {
	statuses := []probe.Status{probe.StatusAbsent, probe.StatusPresent, probe.StatusDegraded, probe.StatusError}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		n := rng.Intn(12)
		var probes []probe.Probe
		m := map[string]probe.Status{}
		for j := 0; j < n; j++ {
			name := fmt.Sprintf("p%d", j)
			probes = append(probes, probe.Probe{Name: name, Required: rng.Intn(2) == 0, Category: probe.CategoryDependency})
			m[name] = statuses[rng.Intn(len(statuses))]
		}
		report := reportOf(m, probes)

		first := Score(probes, report, defaultWeights)
		assert.GreaterOrEqual(t, first, 0)
		assert.LessOrEqual(t, first, 100)
		assert.Equal(t, first, Score(probes, report, defaultWeights))

		for _, name := range MissingRequired(probes, report) {
			var p probe.Probe
			for _, q := range probes {
				if q.Name == name {
					p = q
				}
			}
			assert.True(t, p.Required)
			assert.Contains(t, []probe.Status{probe.StatusAbsent, probe.StatusError}, m[name])
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score   int
		missing int
		want    Level
	}{
		{100, 0, LevelReady},
		{80, 0, LevelReady},
		{95, 1, LevelPartial},
		{79, 0, LevelPartial},
		{40, 2, LevelPartial},
		{39, 0, LevelNotReady},
		{0, 0, LevelNotReady},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Classify(tc.score, tc.missing), "score=%d missing=%d", tc.score, tc.missing)
	}
}

func TestByCategory(t *testing.T) {
	probes := scenarioProbes()
	report := reportOf(map[string]probe.Status{
		"git": probe.StatusPresent, "port-8880": probe.StatusError, "voices": probe.StatusAbsent,
	}, probes)

	got := ByCategory(probes, report)
	assert.Equal(t, []CategorySummary{
		{Category: probe.CategoryDependency, Detected: 1, Total: 1},
		{Category: probe.CategoryService, Detected: 0, Total: 1, Errors: 1},
		{Category: probe.CategoryConfig, Detected: 0, Total: 1},
	}, got)
}

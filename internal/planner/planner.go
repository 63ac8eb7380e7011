package planner

import (
	"slices"

	"github.com/chatta-voice/chatta-setup/internal/detect"
)

// Catalog is the ordered, validated set of install steps.
type Catalog struct {
	steps []Step
}

// NewCatalog validates steps and returns a catalog preserving their order.
// It fails with *PlanningError on duplicate or empty IDs, a missing
// ensure-installed step, a step with both or neither of Command and Action,
// or a Requires entry that does not name an earlier step.
func NewCatalog(steps ...Step) (*Catalog, error) {
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s.ID == "" {
			return nil, &PlanningError{Reason: "step has no id"}
		}
		if seen[s.ID] {
			return nil, &PlanningError{StepID: s.ID, Reason: "duplicate id"}
		}
		if (len(s.Command) == 0) == (s.Action == "") {
			return nil, &PlanningError{StepID: s.ID, Reason: "exactly one of command and action must be set"}
		}
		if s.SkipIfPresent && s.DependsOnProbe == "" {
			return nil, &PlanningError{StepID: s.ID, Reason: "skip_if_present needs depends_on_probe"}
		}
		for _, req := range s.Requires {
			if !seen[req] {
				return nil, &PlanningError{StepID: s.ID, Reason: "requires unknown or later step " + req}
			}
		}
		seen[s.ID] = true
	}
	if !seen[EnsureInstalledID] {
		return nil, &PlanningError{Reason: "no " + EnsureInstalledID + " step"}
	}

	c := &Catalog{steps: make([]Step, len(steps))}
	for i, s := range steps {
		s.Requires = slices.Clone(s.Requires)
		s.Command = slices.Clone(s.Command)
		c.steps[i] = s
	}
	return c, nil
}

// Steps returns every step in catalog order.
func (c *Catalog) Steps() []Step {
	return slices.Clone(c.steps)
}

// Step returns the step with the given ID.
func (c *Catalog) Step(id string) (Step, bool) {
	for _, s := range c.steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Plan returns the steps to execute, in catalog order. It is pure: the same
// report and mode always give the same plan.
//
//   - SkipWizard plans only ensure-installed, whatever the report says.
//   - A nil report (detection skipped) plans every step.
//   - Otherwise a step is planned unless SkipIfPresent is set and its probe
//     is present or degraded.
func (c *Catalog) Plan(report *detect.Report, mode Mode) []Step {
	if mode.SkipWizard {
		s, _ := c.Step(EnsureInstalledID)
		return []Step{s}
	}

	planned := []Step{}
	for _, s := range c.steps {
		if report != nil && satisfied(s, report) {
			continue
		}
		planned = append(planned, s)
	}
	return planned
}

// satisfied reports whether the report shows step s is unnecessary.
func satisfied(s Step, report *detect.Report) bool {
	if !s.SkipIfPresent || s.DependsOnProbe == "" {
		return false
	}
	res, ok := report.Result(s.DependsOnProbe)
	return ok && res.Status.Satisfied()
}

// IDs returns the IDs of steps.
func IDs(steps []Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	return ids
}

// CheckProbes verifies that every DependsOnProbe names a known probe.
func (c *Catalog) CheckProbes(known func(name string) bool) error {
	for _, s := range c.steps {
		if s.DependsOnProbe != "" && !known(s.DependsOnProbe) {
			return &PlanningError{StepID: s.ID, Reason: "depends on unknown probe " + s.DependsOnProbe}
		}
	}
	return nil
}

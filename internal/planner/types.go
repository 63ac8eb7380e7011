// Package planner decides which installation steps a wizard run executes.
package planner

import "fmt"

// EnsureInstalledID is the step that installs or upgrades the base tool.
// It is the only step a skip-wizard run executes.
const EnsureInstalledID = "ensure-installed"

// Step is a unit of installation or configuration work.
type Step struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`

	// DependsOnProbe names the probe whose absence triggers this step.
	DependsOnProbe string `json:"depends_on_probe,omitempty"`

	// SkipIfPresent skips the step when DependsOnProbe is present or degraded.
	SkipIfPresent bool `json:"skip_if_present"`

	// Requires lists steps that must succeed before this one runs. Each
	// must be declared earlier in the catalog.
	Requires []string `json:"requires,omitempty"`

	// Command is executed when set. Exactly one of Command and Action is set.
	Command []string `json:"command,omitempty"`

	// Action names a built-in in-process action.
	Action string `json:"action,omitempty"`
}

// Mode is the set of CLI mode flags. The zero value is interactive.
type Mode struct {
	Express       bool
	SkipWizard    bool
	CheckOnly     bool
	SkipDetection bool
	DryRun        bool
}

// Interactive reports whether the wizard prompts before each step.
func (m Mode) Interactive() bool {
	return !m.Express && !m.SkipWizard && !m.CheckOnly && !m.SkipDetection && !m.DryRun
}

// Executes reports whether planned steps are run. Check-only and dry-run
// only print the plan.
func (m Mode) Executes() bool {
	return !m.CheckOnly && !m.DryRun
}

// Detects reports whether the detection phase runs.
func (m Mode) Detects() bool {
	return !m.SkipWizard && !m.SkipDetection
}

// String names the mode for logs and report footers.
func (m Mode) String() string {
	switch {
	case m.SkipWizard:
		return "skip-wizard"
	case m.CheckOnly:
		return "check-only"
	case m.DryRun:
		return "dry-run"
	case m.SkipDetection:
		return "skip-detection"
	case m.Express:
		return "express"
	default:
		return "interactive"
	}
}

// PlanningError reports a malformed step catalog. A well-formed catalog
// never produces one at planning time.
type PlanningError struct {
	StepID string
	Reason string
}

func (e *PlanningError) Error() string {
	if e.StepID == "" {
		return "invalid step catalog: " + e.Reason
	}
	return fmt.Sprintf("invalid step %q: %s", e.StepID, e.Reason)
}

// Package report renders wizard results for people and machines and maps
// them to a process exit code.
package report

import (
	"github.com/chatta-voice/chatta-setup/internal/detect"
	"github.com/chatta-voice/chatta-setup/internal/installer"
	"github.com/chatta-voice/chatta-setup/internal/planner"
	"github.com/chatta-voice/chatta-setup/internal/probe"
)

// Exit codes.
const (
	ExitOK              = 0
	ExitMissingRequired = 1
	ExitProbeError      = 2
	ExitStepFailed      = 3
)

// Summary is everything one wizard run has to show.
type Summary struct {
	Version string
	Mode    planner.Mode
	Probes  []probe.Probe

	// Report is nil when detection was skipped.
	Report *detect.Report

	Planned []planner.Step

	// Outcome is nil when no steps were executed.
	Outcome *installer.Outcome
}

// ExitCode picks the process exit code.
//
// When steps are executed: ExitStepFailed if any step failed, else
// ExitProbeError if any probe errored, else ExitOK. In check-only and dry-run
// modes: ExitProbeError if any probe errored, ExitMissingRequired if a
// required component is missing, else ExitOK.
func ExitCode(s Summary) int {
	if s.Mode.Executes() {
		if s.Outcome != nil && len(s.Outcome.Failed) > 0 {
			return ExitStepFailed
		}
		if s.Report.HasErrors() {
			return ExitProbeError
		}
		return ExitOK
	}
	if s.Report == nil {
		return ExitOK
	}
	if s.Report.HasErrors() {
		return ExitProbeError
	}
	if len(s.Report.MissingRequired) > 0 {
		return ExitMissingRequired
	}
	return ExitOK
}

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/chatta-voice/chatta-setup/internal/installer"
	"github.com/chatta-voice/chatta-setup/internal/output"
	"github.com/chatta-voice/chatta-setup/internal/planner"
	"github.com/chatta-voice/chatta-setup/internal/probe"
	"github.com/chatta-voice/chatta-setup/internal/readiness"
)

// Render writes the human-readable report. It always prints a readiness
// summary, including when detection was skipped or probes failed.
func Render(w io.Writer, s Summary) {
	fmt.Fprintln(w, output.Section("Readiness"))
	fmt.Fprintln(w)

	if s.Report == nil {
		fmt.Fprintf(w, " %s\n", output.StyleMuted.Render("Detection skipped ("+s.Mode.String()+")."))
	} else {
		renderProbes(w, s)
		renderScore(w, s)
	}

	renderPlan(w, s)

	if s.Outcome != nil {
		RenderOutcome(w, s.Outcome)
	}

	switch {
	case s.Mode.DryRun:
		fmt.Fprintf(w, " %s\n\n", output.StyleMuted.Render("Dry run: nothing was executed."))
	case s.Mode.CheckOnly:
		fmt.Fprintf(w, " %s\n\n", output.StyleMuted.Render("Check only: nothing was executed."))
	}
}

func renderProbes(w io.Writer, s Summary) {
	tbl := output.NewTable("", "Component", "Category", "Required", "Detail")
	for _, c := range probe.Categories {
		for _, p := range s.Probes {
			if p.Category != c {
				continue
			}
			res, ok := s.Report.Result(p.Name)
			if !ok {
				continue
			}
			req := ""
			if p.Required {
				req = "yes"
			}
			tbl.AddRow(indicator(res.Status, p.Required), p.Name, string(p.Category), req, output.StyleMuted.Render(res.Detail))
		}
	}
	tbl.Fprint(w)
	fmt.Fprintln(w)
}

// indicator is the one-character status marker for a probe row.
func indicator(status probe.Status, required bool) string {
	switch status {
	case probe.StatusPresent:
		return output.StyleSuccess.Render("✓")
	case probe.StatusDegraded:
		return output.StyleWarning.Render("~")
	case probe.StatusError:
		return output.StyleError.Render("!")
	default:
		if required {
			return output.StyleError.Render("✗")
		}
		return output.StyleWarning.Render("✗")
	}
}

func renderScore(w io.Writer, s Summary) {
	r := s.Report
	level := readiness.Classify(r.Score, len(r.MissingRequired))

	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Readiness score:"), output.ScoreBar(r.Score, 20))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Status:"), levelStyle(level))

	var parts []string
	for _, c := range readiness.ByCategory(s.Probes, r) {
		parts = append(parts, fmt.Sprintf("%s %d/%d", c.Category, c.Detected, c.Total))
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("By category:"), strings.Join(parts, ", "))
	}

	if len(r.MissingRequired) > 0 {
		fmt.Fprintf(w, " %s %s\n",
			output.StyleLabel.Render("Missing required:"),
			output.StyleError.Render(strings.Join(r.MissingRequired, ", ")))
	}
	if n := r.Counts()[probe.StatusError]; n > 0 {
		fmt.Fprintf(w, " %s %s\n",
			output.StyleLabel.Render("Probe errors:"),
			output.StyleError.Render(fmt.Sprintf("%d", n)))
	}
	fmt.Fprintln(w)
}

func levelStyle(l readiness.Level) string {
	switch l {
	case readiness.LevelReady:
		return output.StyleSuccess.Render(string(l))
	case readiness.LevelPartial:
		return output.StyleWarning.Render(string(l))
	default:
		return output.StyleError.Render(string(l))
	}
}

func renderPlan(w io.Writer, s Summary) {
	fmt.Fprintln(w, output.Section("Planned steps"))
	fmt.Fprintln(w)
	if len(s.Planned) == 0 {
		fmt.Fprintf(w, " %s\n\n", output.StyleSuccess.Render("Nothing to do: every step is already satisfied."))
		return
	}
	for i, step := range s.Planned {
		desc := step.Description
		if desc == "" {
			desc = strings.Join(step.Command, " ")
		}
		fmt.Fprintf(w, " %2d. %-20s %s\n", i+1, output.StyleBold.Render(step.ID), output.StyleMuted.Render(desc))
	}
	fmt.Fprintln(w)
}

// RenderOutcome writes the execution summary line.
func RenderOutcome(w io.Writer, o *installer.Outcome) {
	summary := fmt.Sprintf("%d ran, %d skipped, %d failed", len(o.Ran), len(o.Skipped), len(o.Failed))
	if len(o.Failed) > 0 {
		fmt.Fprintf(w, " %s\n", output.StyleError.Render(summary))
		fmt.Fprintf(w, " %s\n", output.StyleLabel.Render("Failed steps:"))
		for _, id := range o.Failed {
			fmt.Fprintf(w, "   %s %s\n", output.StyleError.Render(id), output.StyleMuted.Render(o.Errors[id]))
		}
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, " %s\n\n", output.StyleSuccess.Render(summary))
}

// jsonResult is one probe row in JSON output.
type jsonResult struct {
	probe.Result
	Kind     probe.Kind     `json:"kind"`
	Category probe.Category `json:"category"`
	Required bool           `json:"required"`
}

// jsonOutput is the JSON-serializable wizard result.
type jsonOutput struct {
	Version         string                      `json:"version,omitempty"`
	Mode            string                      `json:"mode"`
	DetectionRan    bool                        `json:"detection_ran"`
	Score           *int                        `json:"score,omitempty"`
	Level           readiness.Level             `json:"level,omitempty"`
	MissingRequired []string                    `json:"missing_required"`
	Results         []jsonResult                `json:"results"`
	Categories      []readiness.CategorySummary `json:"categories,omitempty"`
	Planned         []planner.Step              `json:"planned"`
	Executed        bool                        `json:"executed"`
	Outcome         *installer.Outcome          `json:"outcome,omitempty"`
	ExitCode        int                         `json:"exit_code"`
}

// RenderJSON writes the machine-readable report.
func RenderJSON(w io.Writer, s Summary) error {
	out := jsonOutput{
		Version:         s.Version,
		Mode:            s.Mode.String(),
		DetectionRan:    s.Report != nil,
		MissingRequired: []string{},
		Results:         []jsonResult{},
		Planned:         s.Planned,
		Executed:        s.Outcome != nil,
		Outcome:         s.Outcome,
		ExitCode:        ExitCode(s),
	}
	if out.Planned == nil {
		out.Planned = []planner.Step{}
	}
	if r := s.Report; r != nil {
		score := r.Score
		out.Score = &score
		out.Level = readiness.Classify(r.Score, len(r.MissingRequired))
		if r.MissingRequired != nil {
			out.MissingRequired = r.MissingRequired
		}
		out.Categories = readiness.ByCategory(s.Probes, r)
		for _, p := range s.Probes {
			res, ok := r.Result(p.Name)
			if !ok {
				continue
			}
			out.Results = append(out.Results, jsonResult{Result: res, Kind: p.Kind, Category: p.Category, Required: p.Required})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

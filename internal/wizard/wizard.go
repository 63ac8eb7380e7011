// Package wizard wires detection, scoring, planning, reporting and
// execution into one setup run.
package wizard

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/chatta-voice/chatta-setup/internal/config"
	"github.com/chatta-voice/chatta-setup/internal/detect"
	"github.com/chatta-voice/chatta-setup/internal/installer"
	"github.com/chatta-voice/chatta-setup/internal/output"
	"github.com/chatta-voice/chatta-setup/internal/planner"
	"github.com/chatta-voice/chatta-setup/internal/probe"
	"github.com/chatta-voice/chatta-setup/internal/readiness"
	"github.com/chatta-voice/chatta-setup/internal/report"
)

// Detector evaluates probes. *detect.Runner is the production implementation.
type Detector interface {
	Run(ctx context.Context, probes []probe.Probe) *detect.Report
}

// Wizard runs one setup pass.
type Wizard struct {
	Version  string
	Registry *probe.Registry
	Catalog  *planner.Catalog
	Weights  readiness.Weights
	Detector Detector
	Executor *installer.Executor

	// Prompter confirms steps in interactive mode. Nil runs them unasked.
	Prompter installer.Prompter

	Logger *zap.Logger
	Out    io.Writer

	// JSON switches the report to machine-readable output.
	JSON bool
}

// New builds a Wizard from cfg with the built-in or configured catalogs.
func New(cfg *config.Config, logger *zap.Logger, out io.Writer) (*Wizard, error) {
	registry, err := probe.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("building probe registry: %w", err)
	}
	catalog, err := planner.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := catalog.CheckProbes(func(name string) bool {
		_, ok := registry.Lookup(name)
		return ok
	}); err != nil {
		return nil, err
	}

	exec := installer.New(cfg, logger)
	exec.Stdout = out

	return &Wizard{
		Registry: registry,
		Catalog:  catalog,
		Weights:  readiness.Weights{Required: cfg.Weights.Required, Optional: cfg.Weights.Optional},
		Detector: detect.NewRunner(cfg, logger),
		Executor: exec,
		Logger:   logger,
		Out:      out,
	}, nil
}

// Run performs detection (unless the mode skips it), scores and plans,
// reports, and executes the plan when the mode allows. It returns the
// process exit code. The error is non-nil only when the report itself could
// not be written; step failures are reflected in the exit code.
func (w *Wizard) Run(ctx context.Context, mode planner.Mode) (int, error) {
	log := w.logger().With(zap.Stringer("mode", mode))
	probes := w.Registry.List()

	var rep *detect.Report
	if mode.Detects() {
		rep = w.Detector.Run(ctx, probes)
		readiness.Apply(probes, rep, w.Weights)
		log.Debug("detection scored",
			zap.Int("score", rep.Score),
			zap.Strings("missing_required", rep.MissingRequired))
	}

	planned := w.Catalog.Plan(rep, mode)
	log.Debug("plan ready", zap.Strings("steps", planner.IDs(planned)))

	summary := report.Summary{
		Version: w.Version,
		Mode:    mode,
		Probes:  probes,
		Report:  rep,
		Planned: planned,
	}

	if !w.JSON {
		report.Render(w.out(), summary)
	}

	if mode.Executes() {
		outcome, err := w.execute(ctx, mode, planned)
		if err != nil {
			log.Warn("install steps failed", zap.Error(err))
		}
		summary.Outcome = outcome
		if !w.JSON {
			report.RenderOutcome(w.out(), outcome)
		}
	}

	if w.JSON {
		if err := report.RenderJSON(w.out(), summary); err != nil {
			return report.ExitProbeError, fmt.Errorf("writing report: %w", err)
		}
	}
	return report.ExitCode(summary), nil
}

func (w *Wizard) execute(ctx context.Context, mode planner.Mode, planned []planner.Step) (*installer.Outcome, error) {
	if len(planned) == 0 {
		return installer.NewOutcome(), nil
	}

	exec := *w.Executor
	exec.Prompter = nil
	if w.JSON {
		// Keep stdout a single JSON document.
		exec.Stdout = exec.Stderr
	}
	if mode.Interactive() {
		exec.Prompter = w.Prompter
	}

	if !w.JSON {
		fmt.Fprintln(w.out(), output.Section("Installing"))
		fmt.Fprintln(w.out())
	}
	return exec.Execute(ctx, planned)
}

func (w *Wizard) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

func (w *Wizard) out() io.Writer {
	if w.Out == nil {
		return io.Discard
	}
	return w.Out
}

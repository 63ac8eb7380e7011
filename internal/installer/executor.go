// Package installer executes planned install steps.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/chatta-voice/chatta-setup/internal/config"
	"github.com/chatta-voice/chatta-setup/internal/output"
	"github.com/chatta-voice/chatta-setup/internal/planner"
)

// ErrPrerequisiteFailed marks a step that did not run because a step it
// requires failed.
var ErrPrerequisiteFailed = errors.New("prerequisite step failed")

// ExecutionError reports a failed install step.
type ExecutionError struct {
	StepID string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %s: %v", e.StepID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// CommandRunner runs an external command.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Dir is the working directory; empty means the current directory.
	Dir string
}

// Run implements CommandRunner.
func (r ExecRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Prompter asks the user to confirm a step.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// Outcome lists step IDs by what happened to them.
type Outcome struct {
	Ran     []string `json:"ran"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`

	// Errors maps each failed step ID to its error message.
	Errors map[string]string `json:"errors,omitempty"`
}

// NewOutcome returns an empty Outcome.
func NewOutcome() *Outcome {
	return &Outcome{Ran: []string{}, Skipped: []string{}, Failed: []string{}, Errors: map[string]string{}}
}

// Executor runs install steps in order.
type Executor struct {
	Commands CommandRunner

	// Prompter confirms each step when set. Nil runs every step.
	Prompter Prompter

	Logger     *zap.Logger
	ProjectDir string
	Package    string
	Services   config.Services

	Stdout io.Writer
	Stderr io.Writer
}

// New returns an Executor configured from cfg.
func New(cfg *config.Config, logger *zap.Logger) *Executor {
	return &Executor{
		Commands:   ExecRunner{},
		Logger:     logger,
		ProjectDir: cfg.ProjectDir,
		Package:    cfg.Package,
		Services:   cfg.Services,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// Execute runs steps in order. A failed step never stops independent steps
// that follow it; steps whose Requires include a failed step are not run and
// fail with ErrPrerequisiteFailed. Steps declined at the prompt, and steps
// requiring them, are skipped. The returned error aggregates every
// *ExecutionError.
func (e *Executor) Execute(ctx context.Context, steps []planner.Step) (*Outcome, error) {
	out := NewOutcome()
	var result *multierror.Error

	fail := func(id string, err error) {
		out.Failed = append(out.Failed, id)
		out.Errors[id] = err.Error()
		result = multierror.Append(result, &ExecutionError{StepID: id, Err: err})
		e.logger().Warn("step failed", zap.String("step", id), zap.Error(err))
		fmt.Fprintf(e.stdout(), "  %s  %s %s\n", output.StyleError.Render("✗"), id, output.StyleMuted.Render(err.Error()))
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			fail(s.ID, err)
			continue
		}
		if req := firstIn(s.Requires, out.Failed); req != "" {
			fail(s.ID, fmt.Errorf("%w: %s", ErrPrerequisiteFailed, req))
			continue
		}
		if req := firstIn(s.Requires, out.Skipped); req != "" {
			out.Skipped = append(out.Skipped, s.ID)
			e.logger().Info("step skipped", zap.String("step", s.ID), zap.String("requires", req))
			continue
		}

		desc := e.expand(s.Description)
		if e.Prompter != nil {
			ok, err := e.Prompter.Confirm(fmt.Sprintf("%s (%s)?", desc, s.ID))
			if err != nil {
				fail(s.ID, fmt.Errorf("prompt: %w", err))
				continue
			}
			if !ok {
				out.Skipped = append(out.Skipped, s.ID)
				continue
			}
		}

		fmt.Fprintf(e.stdout(), "  %s  %s %s\n", output.StyleHeader.Render("→"), output.StyleBold.Render(s.ID), output.StyleMuted.Render(desc))
		if err := e.run(ctx, s); err != nil {
			fail(s.ID, err)
			continue
		}
		out.Ran = append(out.Ran, s.ID)
		e.logger().Debug("step completed", zap.String("step", s.ID))
		fmt.Fprintf(e.stdout(), "  %s  %s\n", output.StyleSuccess.Render("✓"), s.ID)
	}

	return out, result.ErrorOrNil()
}

// run executes a single step.
func (e *Executor) run(ctx context.Context, s planner.Step) error {
	if s.Action != "" {
		action, ok := actions[s.Action]
		if !ok {
			return fmt.Errorf("unknown action %q", s.Action)
		}
		return action(e, ctx)
	}

	args := make([]string, len(s.Command))
	for i, a := range s.Command {
		args[i] = e.expand(a)
	}
	e.logger().Debug("running command", zap.String("step", s.ID), zap.Strings("argv", args))
	if err := e.commands().Run(ctx, args[0], args[1:], e.stdout(), e.stderr()); err != nil {
		return fmt.Errorf("%s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func (e *Executor) expand(s string) string {
	return strings.ReplaceAll(s, planner.PackagePlaceholder, e.pkg())
}

func (e *Executor) pkg() string {
	if e.Package == "" {
		return config.DefaultPackage
	}
	return e.Package
}

func (e *Executor) commands() CommandRunner {
	if e.Commands == nil {
		return ExecRunner{}
	}
	return e.Commands
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Executor) stdout() io.Writer {
	if e.Stdout == nil {
		return io.Discard
	}
	return e.Stdout
}

func (e *Executor) stderr() io.Writer {
	if e.Stderr == nil {
		return io.Discard
	}
	return e.Stderr
}

// firstIn returns the first element of wanted that appears in have.
func firstIn(wanted, have []string) string {
	for _, w := range wanted {
		if slices.Contains(have, w) {
			return w
		}
	}
	return ""
}

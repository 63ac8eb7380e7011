// Package app contains the Cobra command tree for chatta-setup.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chatta-voice/chatta-setup/internal/config"
	"github.com/chatta-voice/chatta-setup/internal/installer"
	"github.com/chatta-voice/chatta-setup/internal/output"
	"github.com/chatta-voice/chatta-setup/internal/planner"
	"github.com/chatta-voice/chatta-setup/internal/report"
	"github.com/chatta-voice/chatta-setup/internal/wizard"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
	flagEnvFile string
	flagYes     bool

	flagExpress       bool
	flagSkipWizard    bool
	flagCheckOnly     bool
	flagSkipDetection bool
	flagDryRun        bool
)

// exitCode is set by the command that ran and returned from Execute.
var exitCode = report.ExitOK

var rootCmd = &cobra.Command{
	Use:   "chatta-setup",
	Short: "Set up the CHATTA voice assistant",
	Long: `chatta-setup checks this machine for everything the CHATTA voice assistant
needs (dependencies, local speech services, MCP configuration and credentials),
prints a readiness score, and installs whatever is missing.

Run without flags for the interactive wizard, which asks before each step.

Exit codes: 0 ready or success, 1 required components missing (--check-only
and --dry-run), 2 probe execution error, 3 an install step failed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runWizard,
}

// Execute is the entry point called from main. It exits the process with
// the wizard's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(report.ExitProbeError)
	}
	os.Exit(exitCode)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/chatta/config.yaml)")
	pf.StringVar(&flagEnvFile, "env-file", "", "Dotenv file read before detection (default: env_file from config)")
	pf.BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&flagJSON, "json", false, "Output as JSON")
	pf.BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")

	f := rootCmd.Flags()
	f.BoolVarP(&flagExpress, "express", "e", false, "Detect, then install only what is missing without prompting")
	f.BoolVar(&flagSkipWizard, "skip-wizard", false, "Skip detection and only install or upgrade the base tool")
	f.BoolVarP(&flagCheckOnly, "check-only", "c", false, "Detect and print the readiness report; install nothing")
	f.BoolVarP(&flagSkipDetection, "skip-detection", "s", false, "Skip detection and run every install step")
	f.BoolVarP(&flagDryRun, "dry-run", "d", false, "Detect and print the planned steps; install nothing")
	f.BoolVarP(&flagYes, "yes", "y", false, "Answer yes to every prompt in interactive mode")
}

// currentMode maps the mode flags to a planner.Mode.
func currentMode() planner.Mode {
	return planner.Mode{
		Express:       flagExpress,
		SkipWizard:    flagSkipWizard,
		CheckOnly:     flagCheckOnly,
		SkipDetection: flagSkipDetection,
		DryRun:        flagDryRun,
	}
}

// setup loads configuration, the launcher's dotenv file and the logger
// shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	if flagNoColor || flagJSON || !output.ColorWanted(os.Stdout) {
		output.SetNoColor(true)
	}

	logger, err := newLogger(flagVerbose)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	envFile := cfg.EnvFile
	if flagEnvFile != "" {
		envFile = flagEnvFile
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		logger.Warn("ignoring env file", zap.Error(err))
	}
	return cfg, logger, nil
}

// promptOutput is where confirmation prompts go. With --json stdout holds
// only the JSON document.
func promptOutput(cmd *cobra.Command) io.Writer {
	if flagJSON {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	w, err := wizard.New(cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	w.Version = appVersion
	w.JSON = flagJSON

	mode := currentMode()
	if mode.Interactive() && !flagYes {
		if output.IsTerminal(os.Stdin) {
			w.Prompter = &installer.LinePrompter{In: os.Stdin, Out: promptOutput(cmd)}
		} else {
			logger.Warn("stdin is not a terminal; running steps without prompting")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := w.Run(ctx, mode)
	exitCode = code
	return err
}

package detect

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chatta-voice/chatta-setup/internal/config"
	"github.com/chatta-voice/chatta-setup/internal/probe"
)

// detailCancelled marks probes that never completed because the run was
// cancelled.
const detailCancelled = "cancelled"

// Dialer opens network connections for port probes.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Runner evaluates probes with a bounded worker pool. The zero value is
// usable; unset collaborators fall back to the operating system.
type Runner struct {
	Concurrency    int
	NetworkTimeout time.Duration
	FileTimeout    time.Duration

	// Host is dialed by port probes.
	Host string

	Logger     *zap.Logger
	Dialer     Dialer
	HTTPClient *http.Client

	LookPath      func(file string) (string, error)
	Getenv        func(key string) string
	CommandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)
	Now           func() time.Time
}

// NewRunner returns a Runner configured from cfg.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		Concurrency:    cfg.Concurrency,
		NetworkTimeout: cfg.NetworkTimeout,
		FileTimeout:    cfg.FileTimeout,
		Host:           cfg.Services.Host,
		Logger:         logger,
	}
}

// Run evaluates every probe and returns a report with exactly one result per
// probe, in input order. A failing probe is recorded with StatusError and
// never aborts the run. Probes still pending when ctx is cancelled are
// recorded as errors with detail "cancelled".
func (r *Runner) Run(ctx context.Context, probes []probe.Probe) *Report {
	started := r.now()
	results := make([]probe.Result, len(probes))

	var g errgroup.Group
	g.SetLimit(max(1, r.Concurrency))
	for i, p := range probes {
		i, p := i, p
		g.Go(func() error {
			results[i] = r.evaluate(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		Results:   results,
		StartedAt: started,
		Duration:  r.now().Sub(started),
	}
	r.logger().Debug("detection finished",
		zap.Int("probes", len(probes)),
		zap.Duration("elapsed", report.Duration))
	return report
}

// evaluate runs a single probe under its timeout.
func (r *Runner) evaluate(ctx context.Context, p probe.Probe) probe.Result {
	if ctx.Err() != nil {
		return r.result(p, probe.StatusError, detailCancelled)
	}

	eval, ok := evaluators[p.Kind]
	if !ok {
		return r.result(p, probe.StatusError, "unsupported probe kind "+string(p.Kind))
	}

	pctx, cancel := context.WithTimeout(ctx, r.timeoutFor(p.Kind))
	defer cancel()

	start := time.Now()
	status, detail := eval(r, pctx, p)
	if status == probe.StatusError && ctx.Err() != nil {
		detail = detailCancelled
	}

	log := r.logger().With(
		zap.String("probe", p.Name),
		zap.String("kind", string(p.Kind)),
		zap.Stringer("status", status),
		zap.Duration("elapsed", time.Since(start)))
	if status == probe.StatusError {
		log.Warn("probe failed", zap.String("detail", detail))
	} else {
		log.Debug("probe evaluated", zap.String("detail", detail))
	}

	return r.result(p, status, detail)
}

func (r *Runner) result(p probe.Probe, status probe.Status, detail string) probe.Result {
	return probe.Result{
		ProbeName: p.Name,
		Status:    status,
		Detail:    detail,
		CheckedAt: r.now(),
	}
}

func (r *Runner) timeoutFor(k probe.Kind) time.Duration {
	switch k {
	case probe.KindFile, probe.KindEnv:
		if r.FileTimeout > 0 {
			return r.FileTimeout
		}
		return config.DefaultFileTimeout
	default:
		if r.NetworkTimeout > 0 {
			return r.NetworkTimeout
		}
		return config.DefaultNetworkTimeout
	}
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func (r *Runner) host() string {
	if r.Host == "" {
		return "127.0.0.1"
	}
	return r.Host
}

func (r *Runner) dialer() Dialer {
	if r.Dialer == nil {
		return &net.Dialer{}
	}
	return r.Dialer
}

func (r *Runner) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{
		// 3xx counts as healthy; report it instead of following it.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (r *Runner) lookPath(file string) (string, error) {
	if r.LookPath != nil {
		return r.LookPath(file)
	}
	return exec.LookPath(file)
}

func (r *Runner) getenv(key string) string {
	if r.Getenv != nil {
		return r.Getenv(key)
	}
	return os.Getenv(key)
}

func (r *Runner) commandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.CommandOutput != nil {
		return r.CommandOutput(ctx, name, args...)
	}
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

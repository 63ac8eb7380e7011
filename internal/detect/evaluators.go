package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-version"

	"github.com/chatta-voice/chatta-setup/internal/probe"
)

// evaluator checks one probe and returns its status with a short detail.
type evaluator func(r *Runner, ctx context.Context, p probe.Probe) (probe.Status, string)

var evaluators = map[probe.Kind]evaluator{
	probe.KindCommand: (*Runner).checkCommand,
	probe.KindPort:    (*Runner).checkPort,
	probe.KindHTTP:    (*Runner).checkHTTP,
	probe.KindFile:    (*Runner).checkFile,
	probe.KindEnv:     (*Runner).checkEnv,
}

// versionPattern matches the first dotted version number in tool output,
// e.g. "Python 3.12.1" or "uv 0.4.18 (Homebrew)".
var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

func (r *Runner) checkCommand(ctx context.Context, p probe.Probe) (probe.Status, string) {
	path, err := r.lookPath(p.Target)
	if err != nil {
		return probe.StatusAbsent, fmt.Sprintf("%s not found on PATH", p.Target)
	}
	if p.MinVersion == "" {
		return probe.StatusPresent, path
	}

	constraint, err := version.NewConstraint(p.MinVersion)
	if err != nil {
		return probe.StatusError, fmt.Sprintf("invalid version constraint %q", p.MinVersion)
	}

	out, err := r.commandOutput(ctx, path, "--version")
	if err != nil {
		if ctx.Err() != nil {
			return probe.StatusError, "version check timed out"
		}
		return probe.StatusPresent, path + " (version unknown)"
	}

	raw := versionPattern.FindString(string(out))
	if raw == "" {
		return probe.StatusPresent, path + " (version unknown)"
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return probe.StatusPresent, path + " (version unknown)"
	}
	if !constraint.Check(v) {
		return probe.StatusDegraded, fmt.Sprintf("version %s does not satisfy %s", v, p.MinVersion)
	}
	return probe.StatusPresent, fmt.Sprintf("%s (%s)", path, v)
}

func (r *Runner) checkPort(ctx context.Context, p probe.Probe) (probe.Status, string) {
	port, err := probe.ParsePort(p.Target)
	if err != nil {
		return probe.StatusError, err.Error()
	}
	addr := net.JoinHostPort(r.host(), strconv.Itoa(port))

	conn, err := r.dialer().DialContext(ctx, "tcp", addr)
	if err == nil {
		_ = conn.Close()
		return probe.StatusPresent, "listening on " + addr
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return probe.StatusAbsent, "connection refused on " + addr
	}
	if isTimeout(ctx, err) {
		return probe.StatusError, fmt.Sprintf("connect to %s timed out after %s", addr, r.timeoutFor(p.Kind))
	}
	return probe.StatusError, err.Error()
}

func (r *Runner) checkHTTP(ctx context.Context, p probe.Probe) (probe.Status, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Target, nil)
	if err != nil {
		return probe.StatusError, err.Error()
	}

	resp, err := r.httpClient().Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return probe.StatusError, fmt.Sprintf("timed out after %s", r.timeoutFor(p.Kind))
		}
		if ctx.Err() != nil {
			return probe.StatusError, ctx.Err().Error()
		}
		return probe.StatusAbsent, "unreachable"
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	detail := fmt.Sprintf("HTTP %d", resp.StatusCode)
	if resp.StatusCode >= 200 && resp.StatusCode <= 399 {
		return probe.StatusPresent, detail
	}
	return probe.StatusDegraded, detail
}

func (r *Runner) checkFile(ctx context.Context, p probe.Probe) (probe.Status, string) {
	type statResult struct {
		info os.FileInfo
		err  error
	}

	// os.Open has no deadline of its own; a hung mount would otherwise
	// stall the pool.
	done := make(chan statResult, 1)
	go func() {
		f, err := os.Open(p.Target)
		if err != nil {
			done <- statResult{err: err}
			return
		}
		info, err := f.Stat()
		_ = f.Close()
		done <- statResult{info: info, err: err}
	}()

	select {
	case <-ctx.Done():
		return probe.StatusError, fmt.Sprintf("stat timed out after %s", r.timeoutFor(p.Kind))
	case res := <-done:
		switch {
		case errors.Is(res.err, os.ErrNotExist):
			return probe.StatusAbsent, "not found: " + p.Target
		case res.err != nil:
			return probe.StatusAbsent, "not readable: " + p.Target
		case res.info.IsDir():
			return probe.StatusPresent, p.Target + " (directory)"
		default:
			return probe.StatusPresent, fmt.Sprintf("%s (%s)", p.Target, humanize.Bytes(uint64(res.info.Size())))
		}
	}
}

func (r *Runner) checkEnv(_ context.Context, p probe.Probe) (probe.Status, string) {
	val := r.getenv(p.Target)
	if strings.TrimSpace(val) == "" {
		return probe.StatusAbsent, p.Target + " is not set"
	}
	return probe.StatusPresent, fmt.Sprintf("%s set (%s)", p.Target, mask(val))
}

// mask shows only a short prefix of a value that may be a secret.
func mask(val string) string {
	runes := []rune(val)
	n := min(8, len(runes)/2)
	return string(runes[:n]) + "..."
}

// isTimeout reports whether err came from the probe's deadline rather than
// an answer from the remote side.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

package detect

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chatta-voice/chatta-setup/internal/probe"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		Concurrency:    4,
		NetworkTimeout: 500 * time.Millisecond,
		FileTimeout:    500 * time.Millisecond,
		Logger:         zaptest.NewLogger(t),
	}
}

func single(t *testing.T, r *Runner, p probe.Probe) probe.Result {
	t.Helper()
	report := r.Run(context.Background(), []probe.Probe{p})
	require.Len(t, report.Results, 1)
	require.Equal(t, p.Name, report.Results[0].ProbeName)
	return report.Results[0]
}

// blockingDialer never connects; it waits for the context to expire.
type blockingDialer struct {
	calls atomic.Int32
}

func (d *blockingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.calls.Add(1)
	<-ctx.Done()
	return nil, &net.OpError{Op: "dial", Net: network, Err: ctx.Err()}
}

func TestCheckCommand(t *testing.T) {
	r := newTestRunner(t)
	r.LookPath = func(file string) (string, error) {
		if file == "git" {
			return "/usr/bin/git", nil
		}
		return "", errors.New("not found")
	}

	res := single(t, r, probe.Probe{Name: "git", Kind: probe.KindCommand, Target: "git", Category: probe.CategoryDependency})
	assert.Equal(t, probe.StatusPresent, res.Status)
	assert.Equal(t, "/usr/bin/git", res.Detail)

	res = single(t, r, probe.Probe{Name: "ffmpeg", Kind: probe.KindCommand, Target: "ffmpeg", Category: probe.CategoryDependency})
	assert.Equal(t, probe.StatusAbsent, res.Status)
}

func TestCheckCommand_MinVersion(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   probe.Status
		detail string
	}{
		{"satisfied", "Python 3.12.1\n", nil, probe.StatusPresent, "3.12.1"},
		{"too old", "Python 3.8.10\n", nil, probe.StatusDegraded, "does not satisfy"},
		{"unparsable", "no version here", nil, probe.StatusPresent, "version unknown"},
		{"command fails", "", errors.New("exit status 2"), probe.StatusPresent, "version unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRunner(t)
			r.LookPath = func(string) (string, error) { return "/usr/bin/python3", nil }
			r.CommandOutput = func(ctx context.Context, name string, args ...string) ([]byte, error) {
				assert.Equal(t, "/usr/bin/python3", name)
				assert.Equal(t, []string{"--version"}, args)
				return []byte(tc.output), tc.err
			}

			res := single(t, r, probe.Probe{
				Name: "python3", Kind: probe.KindCommand, Target: "python3",
				Category: probe.CategoryDependency, MinVersion: ">= 3.10",
			})
			assert.Equal(t, tc.want, res.Status)
			assert.Contains(t, res.Detail, tc.detail)
		})
	}
}

func TestCheckPort_Open(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	res := single(t, newTestRunner(t), probe.Probe{Name: "tts-port", Kind: probe.KindPort, Target: fmt.Sprint(port), Category: probe.CategoryService})
	assert.Equal(t, probe.StatusPresent, res.Status)
}

func TestCheckPort_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	res := single(t, newTestRunner(t), probe.Probe{Name: "stt-port", Kind: probe.KindPort, Target: fmt.Sprint(port), Category: probe.CategoryService})
	assert.Equal(t, probe.StatusAbsent, res.Status)
	assert.Contains(t, res.Detail, "refused")
}

func TestCheckPort_TimeoutIsError(t *testing.T) {
	r := newTestRunner(t)
	r.NetworkTimeout = 100 * time.Millisecond
	r.Dialer = &blockingDialer{}

	start := time.Now()
	res := single(t, r, probe.Probe{Name: "tts-port", Kind: probe.KindPort, Target: "8880", Category: probe.CategoryService})
	assert.Equal(t, probe.StatusError, res.Status)
	assert.Contains(t, res.Detail, "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRun_TimeoutBoundedByPoolSize(t *testing.T) {
	r := newTestRunner(t)
	r.Concurrency = 2
	r.NetworkTimeout = 100 * time.Millisecond
	dialer := &blockingDialer{}
	r.Dialer = dialer

	var probes []probe.Probe
	for i := 0; i < 4; i++ {
		probes = append(probes, probe.Probe{
			Name: fmt.Sprintf("port-%d", i), Kind: probe.KindPort,
			Target: fmt.Sprint(9000 + i), Category: probe.CategoryService,
		})
	}

	start := time.Now()
	report := r.Run(context.Background(), probes)
	elapsed := time.Since(start)

	require.Len(t, report.Results, 4)
	for _, res := range report.Results {
		assert.Equal(t, probe.StatusError, res.Status)
	}
	assert.Equal(t, int32(4), dialer.calls.Load())
	// timeout × ceil(4/2) = 200ms, plus scheduling slack.
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 1500*time.Millisecond)
}

func TestCheckHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/elsewhere", http.StatusFound) })
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) })
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tests := []struct {
		path   string
		want   probe.Status
		detail string
	}{
		{"/ok", probe.StatusPresent, "HTTP 200"},
		{"/redirect", probe.StatusPresent, "HTTP 302"},
		{"/broken", probe.StatusDegraded, "HTTP 503"},
		{"/slow", probe.StatusError, "timed out"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			r := newTestRunner(t)
			r.NetworkTimeout = 200 * time.Millisecond
			res := single(t, r, probe.Probe{Name: "health", Kind: probe.KindHTTP, Target: srv.URL + tc.path, Category: probe.CategoryService})
			assert.Equal(t, tc.want, res.Status)
			assert.Contains(t, res.Detail, tc.detail)
		})
	}
}

func TestCheckHTTP_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := single(t, newTestRunner(t), probe.Probe{Name: "health", Kind: probe.KindHTTP, Target: url + "/health", Category: probe.CategoryService})
	assert.Equal(t, probe.StatusAbsent, res.Status)
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers":{}}`), 0o644))

	r := newTestRunner(t)

	res := single(t, r, probe.Probe{Name: "mcp", Kind: probe.KindFile, Target: path, Category: probe.CategoryConfig})
	assert.Equal(t, probe.StatusPresent, res.Status)

	res = single(t, r, probe.Probe{Name: "voices", Kind: probe.KindFile, Target: filepath.Join(dir, ".voices.txt"), Category: probe.CategoryConfig})
	assert.Equal(t, probe.StatusAbsent, res.Status)

	res = single(t, r, probe.Probe{Name: "dir", Kind: probe.KindFile, Target: dir, Category: probe.CategoryConfig})
	assert.Equal(t, probe.StatusPresent, res.Status)
	assert.Contains(t, res.Detail, "directory")
}

func TestCheckEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY": "sk-proj-abcdefghijklmnop",
		"BLANK":          "   ",
	}
	r := newTestRunner(t)
	r.Getenv = func(k string) string { return env[k] }

	res := single(t, r, probe.Probe{Name: "key", Kind: probe.KindEnv, Target: "OPENAI_API_KEY", Category: probe.CategoryCredential})
	assert.Equal(t, probe.StatusPresent, res.Status)
	assert.NotContains(t, res.Detail, "abcdefghijklmnop")

	res = single(t, r, probe.Probe{Name: "blank", Kind: probe.KindEnv, Target: "BLANK", Category: probe.CategoryCredential})
	assert.Equal(t, probe.StatusAbsent, res.Status)

	res = single(t, r, probe.Probe{Name: "unset", Kind: probe.KindEnv, Target: "UNSET", Category: probe.CategoryCredential})
	assert.Equal(t, probe.StatusAbsent, res.Status)
}

func TestRun_OrderFollowsRegistry(t *testing.T) {
	r := newTestRunner(t)
	r.Concurrency = 8
	r.LookPath = func(file string) (string, error) {
		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
		if strings.HasSuffix(file, "-missing") {
			return "", errors.New("not found")
		}
		return "/bin/" + file, nil
	}

	var probes []probe.Probe
	for i := 0; i < 32; i++ {
		target := fmt.Sprintf("tool%d", i)
		if i%3 == 0 {
			target += "-missing"
		}
		probes = append(probes, probe.Probe{Name: fmt.Sprintf("p%02d", i), Kind: probe.KindCommand, Target: target, Category: probe.CategoryDependency})
	}

	report := r.Run(context.Background(), probes)
	require.Len(t, report.Results, len(probes))
	for i, res := range report.Results {
		assert.Equal(t, probes[i].Name, res.ProbeName)
		if i%3 == 0 {
			assert.Equal(t, probe.StatusAbsent, res.Status)
		} else {
			assert.Equal(t, probe.StatusPresent, res.Status)
		}
	}
}

func TestRun_CancelledRecordsEveryProbe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(t)
	probes := []probe.Probe{
		{Name: "a", Kind: probe.KindCommand, Target: "git", Category: probe.CategoryDependency},
		{Name: "b", Kind: probe.KindPort, Target: "8880", Category: probe.CategoryService},
		{Name: "c", Kind: probe.KindEnv, Target: "HOME", Category: probe.CategoryCredential},
	}

	report := r.Run(ctx, probes)
	require.Len(t, report.Results, 3)
	for i, res := range report.Results {
		assert.Equal(t, probes[i].Name, res.ProbeName)
		assert.Equal(t, probe.StatusError, res.Status)
		assert.Equal(t, "cancelled", res.Detail)
	}
	assert.True(t, report.HasErrors())
}

func TestRun_CancelMidFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := newTestRunner(t)
	r.Concurrency = 1
	r.NetworkTimeout = 5 * time.Second
	r.Dialer = &blockingDialer{}

	probes := []probe.Probe{
		{Name: "a", Kind: probe.KindPort, Target: "8880", Category: probe.CategoryService},
		{Name: "b", Kind: probe.KindPort, Target: "2022", Category: probe.CategoryService},
	}

	time.AfterFunc(50*time.Millisecond, cancel)
	start := time.Now()
	report := r.Run(ctx, probes)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, report.Results, 2)
	for _, res := range report.Results {
		assert.Equal(t, probe.StatusError, res.Status)
		assert.Equal(t, "cancelled", res.Detail)
	}
}

func TestRun_CancelMidFlightHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())

	r := newTestRunner(t)
	r.NetworkTimeout = 5 * time.Second

	probes := []probe.Probe{
		{Name: "tts-health", Kind: probe.KindHTTP, Target: srv.URL + "/health", Category: probe.CategoryService},
	}

	time.AfterFunc(100*time.Millisecond, cancel)
	start := time.Now()
	report := r.Run(ctx, probes)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, report.Results, 1)
	assert.Equal(t, probe.StatusError, report.Results[0].Status)
	assert.Equal(t, "cancelled", report.Results[0].Detail)
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sk-abcdefghijklmnop", "sk-abcde..."},
		{"ab", "a..."},
		{"x", "..."},
		{"ключ-секрет", "ключ-..."},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := mask(tc.in)
			assert.Equal(t, tc.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestRun_UnsupportedKind(t *testing.T) {
	res := single(t, newTestRunner(t), probe.Probe{Name: "x", Kind: "ping", Target: "1.1.1.1", Category: probe.CategoryService})
	assert.Equal(t, probe.StatusError, res.Status)
}

func TestRun_Empty(t *testing.T) {
	report := newTestRunner(t).Run(context.Background(), nil)
	assert.Empty(t, report.Results)
	assert.False(t, report.HasErrors())
}

func TestReport_Lookup(t *testing.T) {
	report := &Report{Results: []probe.Result{
		{ProbeName: "a", Status: probe.StatusPresent},
		{ProbeName: "b", Status: probe.StatusError},
	}}

	res, ok := report.Result("b")
	assert.True(t, ok)
	assert.Equal(t, probe.StatusError, res.Status)

	_, ok = report.Result("c")
	assert.False(t, ok)

	var nilReport *Report
	_, ok = nilReport.Result("a")
	assert.False(t, ok)
	assert.Equal(t, map[probe.Status]int{probe.StatusPresent: 1, probe.StatusError: 1}, report.Counts())
}

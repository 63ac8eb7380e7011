package installer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"github.com/chatta-voice/chatta-setup/internal/output"
	"github.com/chatta-voice/chatta-setup/internal/planner"
)

// MCPServerName is the key the voice server is registered under in .mcp.json.
const MCPServerName = "chatta"

// DefaultVoices seeds .voices.txt, one voice per line in preference order.
var DefaultVoices = []string{"af_sky", "af_sarah", "am_adam", "alloy"}

type action func(e *Executor, ctx context.Context) error

var actions = map[string]action{
	planner.ActionWriteMCPConfig: (*Executor).writeMCPConfig,
	planner.ActionWriteVoices:    (*Executor).writeVoices,
	planner.ActionAPIKeyHint:     (*Executor).apiKeyHint,
	planner.ActionFFmpegHint:     (*Executor).ffmpegHint,
}

// mcpServer is one entry under "mcpServers" in .mcp.json.
type mcpServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// writeMCPConfig registers the voice server in .mcp.json. Existing servers
// and unknown top-level keys are preserved; an existing chatta entry is left
// untouched.
func (e *Executor) writeMCPConfig(_ context.Context) error {
	path := filepath.Join(e.ProjectDir, ".mcp.json")

	doc := map[string]json.RawMessage{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("reading %s: %w", path, err)
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := doc["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return fmt.Errorf("parsing mcpServers in %s: %w", path, err)
		}
	}
	if _, ok := servers[MCPServerName]; ok {
		e.logger().Info("mcp server already registered", zap.String("path", path))
		return nil
	}

	entry, err := json.Marshal(mcpServer{
		Command: "uvx",
		Args:    []string{e.pkg()},
		Env: map[string]string{
			"STT_BASE_URL": fmt.Sprintf("http://%s:%d/v1", e.Services.Host, e.Services.STTPort),
			"TTS_BASE_URL": fmt.Sprintf("http://%s:%d/v1", e.Services.Host, e.Services.TTSPort),
			"PREFER_LOCAL": "true",
		},
	})
	if err != nil {
		return err
	}
	servers[MCPServerName] = entry

	rawServers, err := json.Marshal(servers)
	if err != nil {
		return err
	}
	doc["mcpServers"] = rawServers

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	e.logger().Info("wrote mcp config", zap.String("path", path))
	return nil
}

// writeVoices creates .voices.txt with the default voice list. An existing
// file is kept.
func (e *Executor) writeVoices(_ context.Context) error {
	path := filepath.Join(e.ProjectDir, ".voices.txt")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	var content []byte
	for _, v := range DefaultVoices {
		content = append(content, v...)
		content = append(content, '\n')
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (e *Executor) apiKeyHint(_ context.Context) error {
	fmt.Fprintln(e.stdout(), output.StyleMuted.Render(
		"     OPENAI_API_KEY is not set. Local services work without it; for cloud fallback add\n"+
			"     OPENAI_API_KEY=sk-... to your shell profile or the .env file next to .mcp.json."))
	return nil
}

func (e *Executor) ffmpegHint(_ context.Context) error {
	var cmd string
	switch runtime.GOOS {
	case "darwin":
		cmd = "brew install ffmpeg"
	case "windows":
		cmd = "winget install ffmpeg"
	default:
		cmd = "sudo apt install ffmpeg  (or your distribution's package manager)"
	}
	fmt.Fprintln(e.stdout(), output.StyleMuted.Render("     Install ffmpeg with: "+cmd))
	return nil
}

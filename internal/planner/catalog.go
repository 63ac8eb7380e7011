package planner

import (
	"github.com/chatta-voice/chatta-setup/internal/config"
)

// Built-in actions run in process by the installer.
const (
	ActionWriteMCPConfig = "write-mcp-config"
	ActionWriteVoices    = "write-voices"
	ActionAPIKeyHint     = "api-key-hint"
	ActionFFmpegHint     = "ffmpeg-hint"
)

// PackagePlaceholder in a step command is replaced by the configured package.
const PackagePlaceholder = "{package}"

// Default returns the built-in step catalog. Probe names refer to the
// built-in probe catalog.
func Default() []Step {
	return []Step{
		{
			ID:             "install-uv",
			Description:    "Install the uv package manager",
			DependsOnProbe: "uv",
			SkipIfPresent:  true,
			Command:        []string{"sh", "-c", "curl -LsSf https://astral.sh/uv/install.sh | sh"},
		},
		{
			ID:             EnsureInstalledID,
			Description:    "Install or upgrade " + PackagePlaceholder,
			DependsOnProbe: "chatta",
			SkipIfPresent:  true,
			Requires:       []string{"install-uv"},
			Command:        []string{"uv", "tool", "install", "--upgrade", PackagePlaceholder},
		},
		{
			ID:             "install-ffmpeg",
			Description:    "Install ffmpeg for audio conversion",
			DependsOnProbe: "ffmpeg",
			SkipIfPresent:  true,
			Action:         ActionFFmpegHint,
		},
		{
			ID:             "install-tts",
			Description:    "Install the local text-to-speech service",
			DependsOnProbe: "tts-port",
			SkipIfPresent:  true,
			Requires:       []string{EnsureInstalledID},
			Command:        []string{PackagePlaceholder, "service", "install", "kokoro"},
		},
		{
			ID:             "install-stt",
			Description:    "Install the local speech-to-text service",
			DependsOnProbe: "stt-port",
			SkipIfPresent:  true,
			Requires:       []string{EnsureInstalledID},
			Command:        []string{PackagePlaceholder, "service", "install", "whisper"},
		},
		{
			ID:             "write-mcp-config",
			Description:    "Register the voice MCP server in .mcp.json",
			DependsOnProbe: "mcp-config",
			SkipIfPresent:  true,
			Action:         ActionWriteMCPConfig,
		},
		{
			ID:             "write-voices",
			Description:    "Create a default .voices.txt",
			DependsOnProbe: "voices-file",
			SkipIfPresent:  true,
			Action:         ActionWriteVoices,
		},
		{
			ID:             "configure-api-key",
			Description:    "Configure OPENAI_API_KEY for cloud fallback",
			DependsOnProbe: "openai-api-key",
			SkipIfPresent:  true,
			Action:         ActionAPIKeyHint,
		},
	}
}

// FromConfig builds the catalog for cfg: the steps declared in the config
// file, or the built-in catalog when none are declared.
func FromConfig(cfg *config.Config) (*Catalog, error) {
	if len(cfg.Steps) == 0 {
		return NewCatalog(Default()...)
	}

	steps := make([]Step, 0, len(cfg.Steps))
	for _, s := range cfg.Steps {
		steps = append(steps, Step{
			ID:             s.ID,
			Description:    s.Description,
			DependsOnProbe: s.DependsOnProbe,
			SkipIfPresent:  s.SkipIfPresent,
			Requires:       s.Requires,
			Command:        s.Command,
			Action:         s.Action,
		})
	}
	return NewCatalog(steps...)
}

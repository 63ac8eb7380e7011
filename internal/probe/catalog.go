package probe

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/chatta-voice/chatta-setup/internal/config"
)

// Default returns the built-in probe catalog for cfg.
func Default(cfg *config.Config) []Probe {
	host := cfg.Services.Host
	tts := strconv.Itoa(cfg.Services.TTSPort)
	stt := strconv.Itoa(cfg.Services.STTPort)

	return []Probe{
		{Name: "uv", Kind: KindCommand, Target: "uv", Required: true, Category: CategoryDependency},
		{Name: "python3", Kind: KindCommand, Target: "python3", Required: true, Category: CategoryDependency, MinVersion: ">= 3.10"},
		{Name: "ffmpeg", Kind: KindCommand, Target: "ffmpeg", Category: CategoryDependency},
		{Name: "chatta", Kind: KindCommand, Target: cfg.Package, Required: true, Category: CategoryCLITool},
		{Name: "claude", Kind: KindCommand, Target: "claude", Category: CategoryCLITool},
		{Name: "tts-port", Kind: KindPort, Target: tts, Category: CategoryService},
		{Name: "stt-port", Kind: KindPort, Target: stt, Category: CategoryService},
		{Name: "tts-health", Kind: KindHTTP, Target: fmt.Sprintf("http://%s:%s/health", host, tts), Category: CategoryService},
		{Name: "stt-health", Kind: KindHTTP, Target: fmt.Sprintf("http://%s:%s/health", host, stt), Category: CategoryService},
		{Name: "mcp-config", Kind: KindFile, Target: filepath.Join(cfg.ProjectDir, ".mcp.json"), Required: true, Category: CategoryConfig},
		{Name: "voices-file", Kind: KindFile, Target: filepath.Join(cfg.ProjectDir, ".voices.txt"), Category: CategoryConfig},
		{Name: "openai-api-key", Kind: KindEnv, Target: "OPENAI_API_KEY", Category: CategoryCredential},
		{Name: "stt-base-url", Kind: KindEnv, Target: "STT_BASE_URL", Category: CategoryCredential},
		{Name: "tts-base-url", Kind: KindEnv, Target: "TTS_BASE_URL", Category: CategoryCredential},
	}
}

// FromConfig builds the registry for cfg: the probes declared in the config
// file, or the built-in catalog when none are declared.
func FromConfig(cfg *config.Config) (*Registry, error) {
	if len(cfg.Probes) == 0 {
		return NewRegistry(Default(cfg)...)
	}

	probes := make([]Probe, 0, len(cfg.Probes))
	for _, s := range cfg.Probes {
		target := s.Target
		if Kind(s.Kind) == KindFile {
			target = config.ExpandPath(target)
		}
		probes = append(probes, Probe{
			Name:       s.Name,
			Kind:       Kind(s.Kind),
			Target:     target,
			Required:   s.Required,
			Category:   Category(s.Category),
			MinVersion: s.MinVersion,
		})
	}
	return NewRegistry(probes...)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level chatta-setup configuration.
type Config struct {
	Package        string        `mapstructure:"package"`
	Concurrency    int           `mapstructure:"concurrency"`
	NetworkTimeout time.Duration `mapstructure:"network_timeout"`
	FileTimeout    time.Duration `mapstructure:"file_timeout"`
	ProjectDir     string        `mapstructure:"project_dir"`
	EnvFile        string        `mapstructure:"env_file"`
	Weights        Weights       `mapstructure:"weights"`
	Services       Services      `mapstructure:"services"`
	Probes         []ProbeSpec   `mapstructure:"probes"`
	Steps          []StepSpec    `mapstructure:"steps"`
}

// Weights defines the readiness scoring weight of a required and an
// optional probe.
type Weights struct {
	Required float64 `mapstructure:"required"`
	Optional float64 `mapstructure:"optional"`
}

// Services locates the local speech services.
type Services struct {
	Host    string `mapstructure:"host"`
	TTSPort int    `mapstructure:"tts_port"`
	STTPort int    `mapstructure:"stt_port"`
}

// ProbeSpec is a probe declared in the config file. An empty list keeps the
// built-in catalog.
type ProbeSpec struct {
	Name       string `mapstructure:"name"`
	Kind       string `mapstructure:"kind"`
	Target     string `mapstructure:"target"`
	Required   bool   `mapstructure:"required"`
	Category   string `mapstructure:"category"`
	MinVersion string `mapstructure:"min_version"`
}

// StepSpec is an install step declared in the config file. An empty list
// keeps the built-in catalog.
type StepSpec struct {
	ID             string   `mapstructure:"id"`
	Description    string   `mapstructure:"description"`
	DependsOnProbe string   `mapstructure:"depends_on_probe"`
	SkipIfPresent  bool     `mapstructure:"skip_if_present"`
	Requires       []string `mapstructure:"requires"`
	Command        []string `mapstructure:"command"`
	Action         string   `mapstructure:"action"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ExpandPath is expandPath for callers outside the package.
func ExpandPath(path string) string {
	return expandPath(path)
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. Keys can also be set
// through CHATTA_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults.
	v.SetDefault("package", DefaultPackage)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("network_timeout", DefaultNetworkTimeout)
	v.SetDefault("file_timeout", DefaultFileTimeout)
	v.SetDefault("project_dir", DefaultProjectDir)
	v.SetDefault("env_file", DefaultEnvFile)
	v.SetDefault("weights.required", DefaultWeights.Required)
	v.SetDefault("weights.optional", DefaultWeights.Optional)
	v.SetDefault("services.host", DefaultServices.Host)
	v.SetDefault("services.tts_port", DefaultServices.TTSPort)
	v.SetDefault("services.stt_port", DefaultServices.STTPort)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = filepath.Join(ConfigDir(), DefaultConfigFile)
	}
	v.SetConfigFile(expandPath(cfgFile))

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.NetworkTimeout <= 0 {
		cfg.NetworkTimeout = DefaultNetworkTimeout
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = DefaultFileTimeout
	}
	if cfg.Weights.Required < 0 || cfg.Weights.Optional < 0 {
		return nil, fmt.Errorf("weights must not be negative (required=%v, optional=%v)",
			cfg.Weights.Required, cfg.Weights.Optional)
	}

	// Expand paths.
	cfg.ProjectDir = expandPath(cfg.ProjectDir)
	cfg.EnvFile = expandPath(cfg.EnvFile)

	return &cfg, nil
}

// LoadEnvFile loads a dotenv file into the process environment. Variables
// that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	path = expandPath(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}

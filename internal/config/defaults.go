// Package config provides configuration loading and defaults for chatta-setup.
package config

import "time"

// DefaultConfigDir is the default location for chatta configuration.
const DefaultConfigDir = "~/.config/chatta"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// EnvPrefix is prepended to configuration keys read from the environment,
// e.g. CHATTA_CONCURRENCY=8.
const EnvPrefix = "CHATTA"

// DefaultPackage is the base tool the wizard installs and upgrades.
const DefaultPackage = "chatta"

// DefaultConcurrency is the number of probes evaluated at once.
const DefaultConcurrency = 4

// DefaultNetworkTimeout bounds port and HTTP probes.
const DefaultNetworkTimeout = 2 * time.Second

// DefaultFileTimeout bounds file probes.
const DefaultFileTimeout = 500 * time.Millisecond

// DefaultProjectDir is where .mcp.json and .voices.txt are expected.
const DefaultProjectDir = "."

// DefaultEnvFile is the dotenv file shared with the MCP launcher.
const DefaultEnvFile = ".env"

// DefaultWeights weighs required probes three times as heavily as optional ones.
var DefaultWeights = Weights{
	Required: 3,
	Optional: 1,
}

// DefaultServices holds the local voice service endpoints.
var DefaultServices = Services{
	Host:    "127.0.0.1",
	TTSPort: 8880,
	STTPort: 2022,
}

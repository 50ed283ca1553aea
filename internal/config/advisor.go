package config

import (
	"os"
	"time"

	"github.com/agentictax/taxpilot/internal/advisor"
	"github.com/spf13/viper"
)

// LoadAdvisorConfig assembles the advisor collaborator settings with this
// precedence: Viper configuration (config file or TAXPILOT_ env vars),
// then direct environment variables, then defaults.
func LoadAdvisorConfig() advisor.Config {
	cfg := advisor.Config{
		Provider: "anthropic",
	}

	if v := viper.GetString("advisor.provider"); v != "" {
		cfg.Provider = v
	}
	if v := viper.GetString("advisor.model"); v != "" {
		cfg.Model = v
	}
	if v := viper.GetString("advisor.api_key"); v != "" {
		cfg.APIKey = v
	}
	if v := viper.GetInt("advisor.max_tokens"); v > 0 {
		cfg.MaxTokens = v
	}
	if v := viper.GetFloat64("advisor.temperature"); v > 0 {
		cfg.Temperature = v
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return cfg
}

// AdvisorTimeout returns the per-request advisor timeout.
func AdvisorTimeout() time.Duration {
	if v := viper.GetDuration("advisor.timeout"); v > 0 {
		return v
	}
	return 60 * time.Second
}

// ArchiveDBPath returns the archive database location.
func ArchiveDBPath() string {
	if v := viper.GetString("archive.db_path"); v != "" {
		return ExpandPath(v)
	}
	return ExpandPath("~/.local/share/taxpilot/archive.db")
}

// ServerAddr returns the HTTP listen address.
func ServerAddr() string {
	if v := viper.GetString("server.addr"); v != "" {
		return v
	}
	return ":8080"
}

// StageLatency returns the simulated per-stage work latency; zero disables
// pacing entirely.
func StageLatency() time.Duration {
	if viper.IsSet("pipeline.stage_latency") {
		return viper.GetDuration("pipeline.stage_latency")
	}
	return 1200 * time.Millisecond
}

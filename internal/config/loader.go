package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/textcast/orchestrator/pkg/types"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the configuration file
// It also supports environment variable overrides with TR_ prefix
func Load(configPath string) (*types.Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg types.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate fills in defaults for unset Conversion options. It rejects no
// configuration and always returns nil.
func Validate(cfg *types.Config) error {
	validateConversionConfig(&cfg.Conversion)
	return nil
}

// validateConversionConfig fills in defaults for the Conversion Orchestrator
// section.
func validateConversionConfig(c *types.ConversionConfig) {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 4
	}
	if c.LLMThreads <= 0 {
		c.LLMThreads = 1
	}
	if c.NarratorVoice == "" {
		c.NarratorVoice = "narrator"
	}
	if c.OutputFormat == "" {
		c.OutputFormat = "opus"
	}
	if c.SilenceGapMs < 0 {
		c.SilenceGapMs = 0
	}
	if c.OpusMinBitrateKbps <= 0 {
		c.OpusMinBitrateKbps = 32
	}
	if c.OpusMaxBitrateKbps <= 0 {
		c.OpusMaxBitrateKbps = 64
	}
	if c.OpusCompressionLevel <= 0 {
		c.OpusCompressionLevel = 10
	}
	if c.RatePercent == 0 {
		c.RatePercent = 1.0
	}
	if c.ReasoningLevel == "" {
		c.ReasoningLevel = "medium"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.TopP == 0 {
		c.TopP = 1.0
	}
	if c.TargetDurationMinutes <= 0 {
		c.TargetDurationMinutes = 20
	}
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *types.Config) {
	// Apply provider API key overrides
	applyProviderEnvOverrides(cfg)

	// Conversion Orchestrator overrides (CVT_ prefix)
	applyConversionEnvOverrides(cfg)
}

// applyConversionEnvOverrides applies CVT_-prefixed overrides for the
// Conversion Orchestrator's own settings.
func applyConversionEnvOverrides(cfg *types.Config) {
	if val := os.Getenv("CVT_MAX_WORKERS"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Conversion.MaxWorkers)
	}
	if val := os.Getenv("CVT_LLM_THREADS"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Conversion.LLMThreads)
	}
	if val := os.Getenv("CVT_NARRATOR_VOICE"); val != "" {
		cfg.Conversion.NarratorVoice = val
	}
	if val := os.Getenv("CVT_OUTPUT_FORMAT"); val != "" {
		cfg.Conversion.OutputFormat = val
	}
}

// applyProviderEnvOverrides applies provider-specific env vars
func applyProviderEnvOverrides(cfg *types.Config) {
	// LLM providers
	for i := range cfg.Providers.LLM {
		prefix := fmt.Sprintf("TR_LLM_%s_", strings.ToUpper(cfg.Providers.LLM[i].Name))
		if val := os.Getenv(prefix + "API_KEY"); val != "" {
			cfg.Providers.LLM[i].APIKey = val
		}
		if val := os.Getenv(prefix + "ENDPOINT"); val != "" {
			cfg.Providers.LLM[i].Endpoint = val
		}
	}

	// TTS providers
	for i := range cfg.Providers.TTS {
		prefix := fmt.Sprintf("TR_TTS_%s_", strings.ToUpper(cfg.Providers.TTS[i].Name))
		if val := os.Getenv(prefix + "API_KEY"); val != "" {
			cfg.Providers.TTS[i].APIKey = val
		}
		if val := os.Getenv(prefix + "ENDPOINT"); val != "" {
			cfg.Providers.TTS[i].Endpoint = val
		}
	}
}

// GetDefault returns a default configuration
func GetDefault() *types.Config {
	return &types.Config{
		Conversion: types.ConversionConfig{
			MaxWorkers:           4,
			LLMThreads:           1,
			NarratorVoice:        "narrator",
			OutputFormat:         "opus",
			SilenceGapMs:         500,
			EQ:                   true,
			DeEss:                true,
			SilenceRemoval:       false,
			Compressor:           true,
			Normalization:        true,
			FadeIn:               false,
			StereoWidth:          false,
			OpusMinBitrateKbps:   32,
			OpusMaxBitrateKbps:   64,
			OpusCompressionLevel: 10,
			RatePercent:          1.0,
			PitchHz:              0,
			Voting:               false,
			ReasoningLevel:       "medium",
			UseStreaming:         false,
			Temperature:          0.7,
			TopP:                 1.0,
			TargetDurationMinutes: 20,
		},
	}
}

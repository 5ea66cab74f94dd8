package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/textcast/orchestrator/pkg/types"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
providers:
  llm:
    - name: "anthropic"
      enabled: true
      model: "claude-3-5-sonnet"
  tts:
    - name: "google"
      enabled: true

conversion:
  max_workers: 2
  llm_threads: 3
  narrator_voice: "en-US-Standard-A"
  output_format: "mp3"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Load configuration
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if len(cfg.Providers.LLM) != 1 || cfg.Providers.LLM[0].Name != "anthropic" {
		t.Errorf("Expected one anthropic LLM provider, got %+v", cfg.Providers.LLM)
	}
	if cfg.Conversion.MaxWorkers != 2 {
		t.Errorf("Expected max_workers 2, got %d", cfg.Conversion.MaxWorkers)
	}
	if cfg.Conversion.LLMThreads != 3 {
		t.Errorf("Expected llm_threads 3, got %d", cfg.Conversion.LLMThreads)
	}
	if cfg.Conversion.NarratorVoice != "en-US-Standard-A" {
		t.Errorf("Expected narrator_voice 'en-US-Standard-A', got '%s'", cfg.Conversion.NarratorVoice)
	}
	if cfg.Conversion.OutputFormat != "mp3" {
		t.Errorf("Expected output_format 'mp3', got '%s'", cfg.Conversion.OutputFormat)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*types.Config)
	}{
		{
			name:   "valid config",
			modify: func(c *types.Config) {},
		},
		{
			name: "zero max workers gets a default",
			modify: func(c *types.Config) {
				c.Conversion.MaxWorkers = 0
			},
		},
		{
			name: "zero llm threads gets a default",
			modify: func(c *types.Config) {
				c.Conversion.LLMThreads = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefault()
			tt.modify(cfg)
			if err := Validate(cfg); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if cfg.Conversion.MaxWorkers <= 0 {
				t.Error("Validate() left MaxWorkers non-positive")
			}
			if cfg.Conversion.LLMThreads <= 0 {
				t.Error("Validate() left LLMThreads non-positive")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
providers:
  llm:
    - name: "anthropic"
      enabled: true

conversion:
  max_workers: 2
  narrator_voice: "narrator"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Set environment variables
	os.Setenv("CVT_MAX_WORKERS", "9")
	os.Setenv("CVT_NARRATOR_VOICE", "en-US-Override")
	os.Setenv("TR_LLM_ANTHROPIC_API_KEY", "env-key")
	defer func() {
		os.Unsetenv("CVT_MAX_WORKERS")
		os.Unsetenv("CVT_NARRATOR_VOICE")
		os.Unsetenv("TR_LLM_ANTHROPIC_API_KEY")
	}()

	// Load configuration
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify environment overrides were applied
	if cfg.Conversion.MaxWorkers != 9 {
		t.Errorf("Expected max_workers 9 from env override, got %d", cfg.Conversion.MaxWorkers)
	}
	if cfg.Conversion.NarratorVoice != "en-US-Override" {
		t.Errorf("Expected narrator_voice override, got '%s'", cfg.Conversion.NarratorVoice)
	}
	if cfg.Providers.LLM[0].APIKey != "env-key" {
		t.Errorf("Expected anthropic API key from env override, got '%s'", cfg.Providers.LLM[0].APIKey)
	}
}

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()
	if cfg == nil {
		t.Fatal("GetDefault() returned nil")
	}
	if cfg.Conversion.MaxWorkers <= 0 {
		t.Error("Default config has invalid max_workers")
	}
	if cfg.Conversion.NarratorVoice == "" {
		t.Error("Default config has empty narrator voice")
	}
}

package types

// Config represents the overall application configuration
type Config struct {
	Providers  ProvidersConfig  `yaml:"providers" json:"providers"`
	Conversion ConversionConfig `yaml:"conversion" json:"conversion"`
}

// ConversionConfig holds the options recognized by the Conversion
// Orchestrator, per the spec's external-interfaces configuration list.
type ConversionConfig struct {
	MaxWorkers           int     `yaml:"max_workers" json:"max_workers"`
	LLMThreads           int     `yaml:"llm_threads" json:"llm_threads"`
	NarratorVoice        string  `yaml:"narrator_voice" json:"narrator_voice"`
	EnabledVoices        []string `yaml:"enabled_voices" json:"enabled_voices"`
	OutputFormat         string  `yaml:"output_format" json:"output_format"` // "opus" or "mp3"
	SilenceGapMs         int     `yaml:"silence_gap_ms" json:"silence_gap_ms"`
	EQ                   bool    `yaml:"eq" json:"eq"`
	DeEss                bool    `yaml:"de_ess" json:"de_ess"`
	SilenceRemoval       bool    `yaml:"silence_removal" json:"silence_removal"`
	Compressor           bool    `yaml:"compressor" json:"compressor"`
	Normalization        bool    `yaml:"normalization" json:"normalization"`
	FadeIn               bool    `yaml:"fade_in" json:"fade_in"`
	StereoWidth          bool    `yaml:"stereo_width" json:"stereo_width"`
	OpusMinBitrateKbps   int     `yaml:"opus_min_bitrate" json:"opus_min_bitrate"`
	OpusMaxBitrateKbps   int     `yaml:"opus_max_bitrate" json:"opus_max_bitrate"`
	OpusCompressionLevel int     `yaml:"opus_compression_level" json:"opus_compression_level"`
	RatePercent          float64 `yaml:"rate" json:"rate"`
	PitchHz              float64 `yaml:"pitch" json:"pitch"`
	Voting               bool    `yaml:"voting" json:"voting"`
	ReasoningLevel       string  `yaml:"reasoning_level" json:"reasoning_level"`
	UseStreaming         bool    `yaml:"use_streaming" json:"use_streaming"`
	Temperature          float64 `yaml:"temperature" json:"temperature"`
	TopP                 float64 `yaml:"top_p" json:"top_p"`
	TargetDurationMinutes int    `yaml:"target_duration_minutes" json:"target_duration_minutes"`
}

// ProvidersConfig holds all provider configurations
type ProvidersConfig struct {
	LLM []LLMProviderConfig `yaml:"llm" json:"llm"`
	TTS []TTSProviderConfig `yaml:"tts" json:"tts"`
}

// LLMProviderConfig configures an LLM provider
type LLMProviderConfig struct {
	Name          string            `yaml:"name" json:"name"`
	Enabled       bool              `yaml:"enabled" json:"enabled"`
	Endpoint      string            `yaml:"endpoint" json:"endpoint"`
	APIKey        string            `yaml:"api_key" json:"api_key"`
	Model         string            `yaml:"model" json:"model"`
	ContextWindow int               `yaml:"context_window" json:"context_window"`
	Concurrency   int               `yaml:"concurrency" json:"concurrency"`
	RateLimitQPS  float64           `yaml:"rate_limit_qps" json:"rate_limit_qps"`
	Options       map[string]string `yaml:"options" json:"options"`
}

// TTSProviderConfig configures a TTS provider
type TTSProviderConfig struct {
	Name           string            `yaml:"name" json:"name"`
	Enabled        bool              `yaml:"enabled" json:"enabled"`
	Endpoint       string            `yaml:"endpoint" json:"endpoint"`
	APIKey         string            `yaml:"api_key" json:"api_key"`
	MaxSegmentSize int               `yaml:"max_segment_size" json:"max_segment_size"` // characters
	Concurrency    int               `yaml:"concurrency" json:"concurrency"`
	RateLimitQPS   float64           `yaml:"rate_limit_qps" json:"rate_limit_qps"`
	TimestampPrec  string            `yaml:"timestamp_precision" json:"timestamp_precision"` // "word" or "sentence"
	Options        map[string]string `yaml:"options" json:"options"`
}


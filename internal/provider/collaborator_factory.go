package provider

import (
	"context"
	"fmt"

	"github.com/textcast/orchestrator/internal/collaborator"
	"github.com/textcast/orchestrator/pkg/types"
)

// BuildLLMService resolves the conversion core's LLMService collaborator
// from the configured LLM providers, preferring an Anthropic provider (named
// "anthropic") over a configured OpenAI-compatible endpoint, and returning
// an error when neither is configured. concurrency bounds the Anthropic provider's parallel
// character-extraction calls (ConversionConfig.LLMThreads).
func BuildLLMService(cfg types.ProvidersConfig, temperature float64, concurrency int) (collaborator.LLMService, error) {
	for _, llmCfg := range cfg.LLM {
		if !llmCfg.Enabled {
			continue
		}
		if llmCfg.Name == "anthropic" {
			return NewAnthropicLLMService(llmCfg.Model, llmCfg.APIKey, temperature, concurrency), nil
		}
	}
	for _, llmCfg := range cfg.LLM {
		if !llmCfg.Enabled {
			continue
		}
		if llmCfg.Endpoint != "" && llmCfg.Model != "" {
			p, err := NewOpenAILLMProvider(llmCfg)
			if err != nil {
				return nil, fmt.Errorf("build openai llm provider: %w", err)
			}
			return NewOpenAILLMServiceAdapter(p), nil
		}
	}
	return nil, fmt.Errorf("no enabled LLM provider configured")
}

// BuildVoicePool splits a provider's voice catalog into the male/female
// pool the voice allocator consumes, keeping only the voices named in
// enabled (all voices if enabled is empty) and dropping unknown-gender
// entries, which the allocator cannot place.
func BuildVoicePool(voices []Voice, enabled []string) types.VoicePool {
	var allow map[string]bool
	if len(enabled) > 0 {
		allow = make(map[string]bool, len(enabled))
		for _, id := range enabled {
			allow[id] = true
		}
	}

	var pool types.VoicePool
	for _, v := range voices {
		if allow != nil && !allow[v.ID] {
			continue
		}
		switch v.Gender {
		case "male":
			pool.Male = append(pool.Male, types.VoiceID(v.ID))
		case "female":
			pool.Female = append(pool.Female, types.VoiceID(v.ID))
		}
	}
	return pool
}

// BuildTTSSynth resolves the conversion core's TTSSynth collaborator,
// preferring a configured Google Cloud TTS provider (named "google"), then
// an OpenAI-compatible TTS endpoint.
func BuildTTSSynth(ctx context.Context, cfg types.ProvidersConfig) (collaborator.TTSSynth, error) {
	for _, ttsCfg := range cfg.TTS {
		if !ttsCfg.Enabled {
			continue
		}
		if ttsCfg.Name == "google" {
			lang := ttsCfg.Options["language_code"]
			return NewGoogleTTSSynth(ctx, lang)
		}
	}
	for _, ttsCfg := range cfg.TTS {
		if !ttsCfg.Enabled {
			continue
		}
		if ttsCfg.Endpoint != "" {
			p, err := NewOpenAITTSProvider(ttsCfg)
			if err != nil {
				return nil, fmt.Errorf("build openai tts provider: %w", err)
			}
			return NewOpenAITTSServiceAdapter(p), nil
		}
	}
	return nil, fmt.Errorf("no enabled TTS provider configured")
}

// VoiceCatalog fetches the voice list from whichever TTS provider
// BuildTTSSynth would select, so the caller can derive a VoicePool without
// holding onto the concrete provider type.
func VoiceCatalog(ctx context.Context, cfg types.ProvidersConfig) ([]Voice, error) {
	for _, ttsCfg := range cfg.TTS {
		if !ttsCfg.Enabled {
			continue
		}
		if ttsCfg.Name == "google" {
			lang := ttsCfg.Options["language_code"]
			synth, err := NewGoogleTTSSynth(ctx, lang)
			if err != nil {
				return nil, err
			}
			defer synth.Close()
			return synth.ListVoices(ctx)
		}
	}
	for _, ttsCfg := range cfg.TTS {
		if !ttsCfg.Enabled {
			continue
		}
		if ttsCfg.Endpoint != "" {
			p, err := NewOpenAITTSProvider(ttsCfg)
			if err != nil {
				return nil, fmt.Errorf("build openai tts provider: %w", err)
			}
			defer p.Close()
			return p.ListVoices(ctx)
		}
	}
	return nil, fmt.Errorf("no enabled TTS provider configured")
}

// Package collaborator declares the external services the conversion core
// consumes but does not implement itself: the LLM client, the TTS client for
// a single utterance, and the audio post-processing encoder. Concrete
// adapters live in internal/provider and internal/assembly.
package collaborator

import (
	"context"

	"github.com/textcast/orchestrator/pkg/types"
)

// LLMService extracts characters from source text and assigns a speaker to
// every sentence.
type LLMService interface {
	// ExtractCharacters returns a merged, deduplicated character list
	// (including variations and gender) for the given ordered text blocks.
	// onProgress reports (blocksDone, blocksTotal).
	ExtractCharacters(ctx context.Context, textBlocks []string, onProgress func(done, total int)) ([]types.Character, error)

	// AssignSpeakers returns exactly one SpeakerAssignment per sentence in
	// input order; Speaker is either a canonical character name or
	// "narrator". onProgress reports (blocksDone, blocksTotal).
	AssignSpeakers(ctx context.Context, textBlocks []string, voiceMap types.ConversionVoiceMap, characters []types.Character, onProgress func(done, total int)) ([]types.SpeakerAssignment, error)
}

// TTSSynth synthesizes a single utterance to raw MP3 bytes.
type TTSSynth interface {
	Synthesize(ctx context.Context, text string, voice types.VoiceID, rate, pitch, volume float64) ([]byte, error)
}

// FilterChain lists which optional audio filters the encoder should apply,
// in the canonical order: EQ, de-esser, silence removal, compressor,
// loudness normalization + limiter, fade-in, stereo width.
type FilterChain struct {
	EQ              bool
	DeEsser         bool
	SilenceRemoval  bool
	Compressor      bool
	Normalization   bool
	FadeIn          bool
	StereoWidth     bool
}

// CodecOptions configures the output container's encoder.
type CodecOptions struct {
	Format             string // "opus" or "mp3"
	OpusMinBitrateKbps int
	OpusMaxBitrateKbps int
	OpusCompression    int
}

// AudioEncoder concatenates a set of raw audio inputs with an inter-chunk
// silence gap, applies the requested filter chain, and re-encodes to the
// requested codec.
type AudioEncoder interface {
	ConcatAndFilter(ctx context.Context, inputs [][]byte, interGapMs int, chain FilterChain, codec CodecOptions) ([]byte, error)
}

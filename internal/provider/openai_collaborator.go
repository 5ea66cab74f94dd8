package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/textcast/orchestrator/internal/collaborator"
	"github.com/textcast/orchestrator/pkg/types"
)

// OpenAILLMServiceAdapter adapts the generic OpenAILLMProvider (built around
// a per-block Segment call) to the collaborator.LLMService shape the
// conversion pipeline consumes.
type OpenAILLMServiceAdapter struct {
	inner *OpenAILLMProvider
}

func NewOpenAILLMServiceAdapter(inner *OpenAILLMProvider) *OpenAILLMServiceAdapter {
	return &OpenAILLMServiceAdapter{inner: inner}
}

var _ collaborator.LLMService = (*OpenAILLMServiceAdapter)(nil)

func (a *OpenAILLMServiceAdapter) ExtractCharacters(ctx context.Context, textBlocks []string, onProgress func(done, total int)) ([]types.Character, error) {
	merged := make(map[string]*types.Character)
	order := make([]string, 0)

	for i, block := range textBlocks {
		resp, err := a.inner.Segment(ctx, SegmentRequest{Text: block})
		if err != nil {
			return nil, fmt.Errorf("segment block %d: %w", i, err)
		}
		for _, seg := range resp.Segments {
			if seg.Person == "" || strings.EqualFold(seg.Person, types.Narrator) {
				continue
			}
			if _, ok := merged[seg.Person]; !ok {
				merged[seg.Person] = &types.Character{CanonicalName: seg.Person, Gender: types.GenderUnknown}
				order = append(order, seg.Person)
			}
		}
		if onProgress != nil {
			onProgress(i+1, len(textBlocks))
		}
	}

	out := make([]types.Character, 0, len(order))
	for _, name := range order {
		out = append(out, *merged[name])
	}
	return out, nil
}

func (a *OpenAILLMServiceAdapter) AssignSpeakers(ctx context.Context, textBlocks []string, voiceMap types.ConversionVoiceMap, characters []types.Character, onProgress func(done, total int)) ([]types.SpeakerAssignment, error) {
	known := make([]string, 0, len(characters))
	for _, c := range characters {
		known = append(known, c.CanonicalName)
	}

	var out []types.SpeakerAssignment
	cursor := 0
	for i, block := range textBlocks {
		resp, err := a.inner.Segment(ctx, SegmentRequest{Text: block, KnownPersons: known})
		if err != nil {
			return nil, fmt.Errorf("segment block %d: %w", i, err)
		}
		for _, seg := range resp.Segments {
			speaker := seg.Person
			if speaker == "" {
				speaker = types.Narrator
			}
			for _, sentence := range splitSentences(seg.Text) {
				out = append(out, types.SpeakerAssignment{SentenceIndex: cursor, Text: sentence, Speaker: speaker})
				cursor++
			}
		}
		if onProgress != nil {
			onProgress(i+1, len(textBlocks))
		}
	}
	return out, nil
}

// OpenAITTSServiceAdapter adapts OpenAITTSProvider to collaborator.TTSSynth.
type OpenAITTSServiceAdapter struct {
	inner *OpenAITTSProvider
}

func NewOpenAITTSServiceAdapter(inner *OpenAITTSProvider) *OpenAITTSServiceAdapter {
	return &OpenAITTSServiceAdapter{inner: inner}
}

var _ collaborator.TTSSynth = (*OpenAITTSServiceAdapter)(nil)

func (a *OpenAITTSServiceAdapter) Synthesize(ctx context.Context, text string, voice types.VoiceID, rate, pitch, volume float64) ([]byte, error) {
	resp, err := a.inner.Synthesize(ctx, TTSRequest{Text: text, VoiceID: string(voice)})
	if err != nil {
		return nil, err
	}
	return resp.AudioData, nil
}

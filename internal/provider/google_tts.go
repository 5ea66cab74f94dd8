package provider

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/textcast/orchestrator/internal/collaborator"
	"github.com/textcast/orchestrator/pkg/types"
)

// GoogleTTSSynth implements collaborator.TTSSynth using Google Cloud's
// Text-to-Speech API.
type GoogleTTSSynth struct {
	client       *texttospeech.Client
	languageCode string
}

// NewGoogleTTSSynth dials the Google Cloud TTS client. languageCode defaults
// to "en-US" when empty.
func NewGoogleTTSSynth(ctx context.Context, languageCode string) (*GoogleTTSSynth, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create Google TTS client: %w", err)
	}
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &GoogleTTSSynth{client: client, languageCode: languageCode}, nil
}

var _ collaborator.TTSSynth = (*GoogleTTSSynth)(nil)

func (g *GoogleTTSSynth) Synthesize(ctx context.Context, text string, voice types.VoiceID, rate, pitch, volume float64) ([]byte, error) {
	cfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	if rate != 0 {
		cfg.SpeakingRate = rate
	}
	if pitch != 0 {
		cfg.Pitch = pitch
	}
	if volume != 0 {
		cfg.VolumeGainDb = volume
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			Name:         string(voice),
		},
		AudioConfig: cfg,
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Google TTS synthesize: %w", err)
	}
	return resp.AudioContent, nil
}

// ListVoices returns the voices Google Cloud TTS offers for g's configured
// language, translating its SSML gender enum to the provider-neutral Voice
// shape.
func (g *GoogleTTSSynth) ListVoices(ctx context.Context) ([]Voice, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{
		LanguageCode: g.languageCode,
	})
	if err != nil {
		return nil, fmt.Errorf("Google TTS list voices: %w", err)
	}

	voices := make([]Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voices = append(voices, Voice{
			ID:        v.Name,
			Name:      v.Name,
			Languages: v.LanguageCodes,
			Gender:    googleGenderString(v.SsmlGender),
		})
	}
	return voices, nil
}

func googleGenderString(g texttospeechpb.SsmlVoiceGender) string {
	switch g {
	case texttospeechpb.SsmlVoiceGender_MALE:
		return "male"
	case texttospeechpb.SsmlVoiceGender_FEMALE:
		return "female"
	default:
		return "neutral"
	}
}

func (g *GoogleTTSSynth) Close() error {
	return g.client.Close()
}

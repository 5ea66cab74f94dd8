package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/errgroup"

	"github.com/textcast/orchestrator/internal/collaborator"
	"github.com/textcast/orchestrator/pkg/types"
)

const (
	anthropicDefaultModel  = "claude-sonnet-4-5-20250929"
	anthropicMaxTokens     = 8192
	anthropicMaxRetries    = 3
	anthropicInitialBackoff = 1 * time.Second
	anthropicBackoffMult   = 2
)

// AnthropicLLMService implements collaborator.LLMService against the
// Anthropic Messages API.
type AnthropicLLMService struct {
	client      anthropic.Client
	model       string
	temperature float64
	concurrency int
}

// NewAnthropicLLMService builds a collaborator.LLMService backed by Claude.
// apiKey empty means fall back to ANTHROPIC_API_KEY. concurrency bounds how
// many blocks ExtractCharacters sends to the API at once; values below 1
// are treated as 1.
func NewAnthropicLLMService(model, apiKey string, temperature float64, concurrency int) *AnthropicLLMService {
	var client anthropic.Client
	if apiKey != "" {
		client = anthropic.NewClient(option.WithAPIKey(apiKey))
	} else {
		client = anthropic.NewClient()
	}
	if model == "" {
		model = anthropicDefaultModel
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &AnthropicLLMService{client: client, model: model, temperature: temperature, concurrency: concurrency}
}

var _ collaborator.LLMService = (*AnthropicLLMService)(nil)

// ExtractCharacters fans out one API call per non-empty block, bounded by
// s.concurrency, since character extraction from one block never depends on
// another's result. Results are merged back in original block order so the
// output is identical regardless of which block's call finished first.
func (s *AnthropicLLMService) ExtractCharacters(ctx context.Context, textBlocks []string, onProgress func(done, total int)) ([]types.Character, error) {
	perBlock := make([][]types.Character, len(textBlocks))
	var done int32
	var mu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for i, block := range textBlocks {
		i, block := i, block
		if strings.TrimSpace(block) == "" {
			mu.Lock()
			done++
			if onProgress != nil {
				onProgress(int(done), len(textBlocks))
			}
			mu.Unlock()
			continue
		}

		group.Go(func() error {
			chars, err := s.extractCharactersFromBlock(gctx, block)
			if err != nil {
				return fmt.Errorf("extract characters from block %d: %w", i, err)
			}
			perBlock[i] = chars

			mu.Lock()
			done++
			if onProgress != nil {
				onProgress(int(done), len(textBlocks))
			}
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]*types.Character)
	order := make([]string, 0)
	for _, chars := range perBlock {
		for _, c := range chars {
			existing, ok := merged[c.CanonicalName]
			if !ok {
				cp := c
				merged[c.CanonicalName] = &cp
				order = append(order, c.CanonicalName)
				continue
			}
			existing.Variations = mergeVariations(existing.Variations, c.Variations)
		}
	}

	out := make([]types.Character, 0, len(order))
	for _, name := range order {
		out = append(out, *merged[name])
	}
	return out, nil
}

func mergeVariations(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			a = append(a, v)
			seen[v] = true
		}
	}
	return a
}

type characterExtraction struct {
	Characters []struct {
		Name       string   `json:"name"`
		Gender     string   `json:"gender"`
		Variations []string `json:"variations"`
	} `json:"characters"`
}

func (s *AnthropicLLMService) extractCharactersFromBlock(ctx context.Context, block string) ([]types.Character, error) {
	sysPrompt := "You identify named speaking characters in a passage of narrative text. " +
		"Return a JSON object {\"characters\": [{\"name\": canonical name, \"gender\": \"male\"|\"female\"|\"unknown\", \"variations\": [alternate names/titles/pronoun referents]}]}. " +
		"Do not include the narrator. Provide ONLY the JSON object."

	text, err := s.complete(ctx, sysPrompt, block)
	if err != nil {
		return nil, err
	}

	var parsed characterExtraction
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil {
		log.Printf("[anthropic-llm] failed to parse character extraction, treating block as narrator-only: %v", err)
		return nil, nil
	}

	chars := make([]types.Character, 0, len(parsed.Characters))
	for _, c := range parsed.Characters {
		if c.Name == "" {
			continue
		}
		chars = append(chars, types.Character{
			CanonicalName: c.Name,
			Gender:        parseGender(c.Gender),
			Variations:    c.Variations,
		})
	}
	return chars, nil
}

func parseGender(g string) types.Gender {
	switch strings.ToLower(g) {
	case "male":
		return types.GenderMale
	case "female":
		return types.GenderFemale
	default:
		return types.GenderUnknown
	}
}

type speakerAssignmentResult struct {
	Assignments []struct {
		SentenceIndex int    `json:"sentence_index"`
		Speaker       string `json:"speaker"`
	} `json:"assignments"`
}

func (s *AnthropicLLMService) AssignSpeakers(ctx context.Context, textBlocks []string, voiceMap types.ConversionVoiceMap, characters []types.Character, onProgress func(done, total int)) ([]types.SpeakerAssignment, error) {
	names := make([]string, 0, len(characters))
	for _, c := range characters {
		names = append(names, c.CanonicalName)
	}

	sysPrompt := fmt.Sprintf(
		"You attribute sentences of narrative text to speakers. Known characters: %s. "+
			"For every sentence, return its zero-based sentence index within the block and a speaker, "+
			"either one of the known characters exactly as spelled, or \"narrator\". "+
			"Return a JSON object {\"assignments\": [{\"sentence_index\": int, \"speaker\": string}]}, one entry per sentence, in order. Provide ONLY the JSON object.",
		strings.Join(names, ", "))

	var out []types.SpeakerAssignment
	cursor := 0
	for i, block := range textBlocks {
		text, err := s.complete(ctx, sysPrompt, block)
		if err != nil {
			return nil, fmt.Errorf("assign speakers for block %d: %w", i, err)
		}

		var parsed speakerAssignmentResult
		sentences := splitSentences(block)
		if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil || len(parsed.Assignments) == 0 {
			for _, sentence := range sentences {
				out = append(out, types.SpeakerAssignment{SentenceIndex: cursor, Text: sentence, Speaker: types.Narrator})
				cursor++
			}
		} else {
			for _, a := range parsed.Assignments {
				if a.SentenceIndex < 0 || a.SentenceIndex >= len(sentences) {
					continue
				}
				speaker := a.Speaker
				if speaker == "" {
					speaker = types.Narrator
				}
				out = append(out, types.SpeakerAssignment{SentenceIndex: cursor, Text: sentences[a.SentenceIndex], Speaker: speaker})
				cursor++
			}
		}
		if onProgress != nil {
			onProgress(i+1, len(textBlocks))
		}
	}
	return out, nil
}

// splitSentences performs a conservative sentence split; the real pipeline
// uses a shared sentence segmenter upstream, this mirrors its boundaries
// for prompts sent one block at a time.
func splitSentences(block string) []string {
	re := regexp.MustCompile(`[^.!?]+[.!?]*`)
	matches := re.FindAllString(block, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

func (s *AnthropicLLMService) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	backoff := anthropicInitialBackoff

	for attempt := 1; attempt <= anthropicMaxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(s.model),
			MaxTokens:   anthropicMaxTokens,
			Temperature: anthropic.Float(s.temperature),
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			lastErr = fmt.Errorf("anthropic API error (attempt %d/%d): %w", attempt, anthropicMaxRetries, err)
			if attempt < anthropicMaxRetries {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= time.Duration(anthropicBackoffMult)
			}
			continue
		}

		text := extractAnthropicText(message)
		if text == "" {
			lastErr = fmt.Errorf("empty response from Claude (attempt %d/%d)", attempt, anthropicMaxRetries)
			continue
		}
		return text, nil
	}

	return "", lastErr
}

func extractAnthropicText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	re := regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
	if matches := re.FindStringSubmatch(text); len(matches) > 1 {
		text = matches[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/textcast/orchestrator/internal/collaborator"
	"github.com/textcast/orchestrator/internal/merge"
	"github.com/textcast/orchestrator/internal/resume"
	"github.com/textcast/orchestrator/internal/ttsqueue"
	"github.com/textcast/orchestrator/internal/voice"
	"github.com/textcast/orchestrator/pkg/types"
)

// sentenceSplitRE mirrors the conservative sentence boundary the LLM
// collaborators use when attributing a block's sentences back to a global
// cursor, so a chapter boundary expressed as a sentence ordinal lines up
// exactly with the sentences AssignSpeakers emits.
var sentenceSplitRE = regexp.MustCompile(`[^.!?]+[.!?]*`)

func splitSentences(text string) []string {
	matches := sentenceSplitRE.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// textBlocks splits pctx.Text into LLM-sized blocks. The core does not
// define chunking policy beyond "ordered text blocks"; this pipeline treats
// each declared chapter (per FileNames) as one block, falling back to the
// whole text as a single block when no chapter boundaries were declared.
// FileNameEntry.StartSentenceIndex is a sentence ordinal (not a character
// offset), matching the ordinal SpeakerAssignment.SentenceIndex produced by
// LLMService.AssignSpeakers and consumed by merge.Plan's chapter boundary
// lookup.
func textBlocks(pctx *Context) []string {
	if len(pctx.FileNames) == 0 {
		return []string{pctx.Text}
	}
	sentences := splitSentences(pctx.Text)
	blocks := make([]string, 0, len(pctx.FileNames))
	for i, fn := range pctx.FileNames {
		start := fn.StartSentenceIndex
		end := len(sentences)
		if i+1 < len(pctx.FileNames) {
			end = pctx.FileNames[i+1].StartSentenceIndex
		}
		if start < 0 {
			start = 0
		}
		if end > len(sentences) {
			end = len(sentences)
		}
		if start >= end {
			blocks = append(blocks, "")
			continue
		}
		blocks = append(blocks, strings.Join(sentences[start:end], " "))
	}
	return blocks
}

// hasPronounceableContent reports whether s has at least one Unicode letter
// or number codepoint.
func hasPronounceableContent(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// ExtractCharactersStep calls LLMService.ExtractCharacters over the input
// text blocks.
type ExtractCharactersStep struct {
	LLM collaborator.LLMService
}

func (s *ExtractCharactersStep) Name() string           { return "ExtractCharacters" }
func (s *ExtractCharactersStep) RequiredKeys() []string { return []string{KeyText} }
func (s *ExtractCharactersStep) DropsKeys() []string     { return nil }

func (s *ExtractCharactersStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	if !hasPronounceableContent(pctx.Text) {
		return pctx, NewError(KindNoPronounceableContent, s.Name(), "input has no pronounceable content", nil)
	}

	blocks := textBlocks(pctx)
	characters, err := s.LLM.ExtractCharacters(ctx, blocks, func(done, total int) {
		sink(ProgressEvent{Current: done, Total: total, Message: "extracting characters"})
	})
	if err != nil {
		return pctx, NewError(KindFatal, s.Name(), "extractCharacters failed", err)
	}
	pctx.SetCharacters(characters)
	return pctx, nil
}

// AssignVoicesInitialStep runs VoiceAllocator.AllocateByGender before any
// speaker assignment exists.
type AssignVoicesInitialStep struct {
	Pool     types.VoicePool
	Narrator types.VoiceID
}

func (s *AssignVoicesInitialStep) Name() string           { return "AssignVoices" }
func (s *AssignVoicesInitialStep) RequiredKeys() []string { return []string{KeyCharacters} }
func (s *AssignVoicesInitialStep) DropsKeys() []string     { return nil }

func (s *AssignVoicesInitialStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	vm := voice.AllocateByGender(pctx.Characters, s.Pool, s.Narrator)
	pctx.SetVoiceMap(vm)
	return pctx, nil
}

// AssignSpeakersStep calls LLMService.AssignSpeakers for every sentence.
type AssignSpeakersStep struct {
	LLM collaborator.LLMService
}

func (s *AssignSpeakersStep) Name() string { return "AssignSpeakers" }
func (s *AssignSpeakersStep) RequiredKeys() []string {
	return []string{KeyCharacters, KeyVoiceMap}
}
func (s *AssignSpeakersStep) DropsKeys() []string { return nil }

func (s *AssignSpeakersStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	blocks := textBlocks(pctx)
	assignments, err := s.LLM.AssignSpeakers(ctx, blocks, pctx.VoiceMap, pctx.Characters, func(done, total int) {
		sink(ProgressEvent{Current: done, Total: total, Message: "assigning speakers"})
	})
	if err != nil {
		return pctx, NewError(KindFatal, s.Name(), "assignSpeakers failed", err)
	}
	pctx.SetAssignments(assignments)
	return pctx, nil
}

// RemapVoicesStep performs the post-assignment frequency-based remap. Its
// pause point (registered by the Orchestrator) sits between this step and
// Sanitize, per spec §2.
type RemapVoicesStep struct {
	Pool     types.VoicePool
	Narrator types.VoiceID
}

func (s *RemapVoicesStep) Name() string { return "RemapVoices" }
func (s *RemapVoicesStep) RequiredKeys() []string {
	return []string{KeyCharacters, KeyAssignments, KeyVoiceMap}
}
func (s *RemapVoicesStep) DropsKeys() []string { return nil }

func (s *RemapVoicesStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	vm := voice.AllocateByFrequency(pctx.Characters, pctx.Assignments, s.Pool, s.Narrator)
	pctx.SetVoiceMap(vm)
	pctx.SetAssignments(voice.RemapAssignments(pctx.Assignments, vm, s.Narrator))
	return pctx, nil
}

// SanitizeStep strips non-pronounceable sentences from the assignment list
// before TTS, so the worker pool never submits an empty or symbol-only task.
type SanitizeStep struct{}

func (s *SanitizeStep) Name() string            { return "Sanitize" }
func (s *SanitizeStep) RequiredKeys() []string  { return []string{KeyAssignments} }
func (s *SanitizeStep) DropsKeys() []string     { return nil }

func (s *SanitizeStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	filtered := pctx.Assignments[:0:0]
	for _, a := range pctx.Assignments {
		a.Text = strings.TrimSpace(a.Text)
		if hasPronounceableContent(a.Text) {
			filtered = append(filtered, a)
		}
	}
	pctx.SetAssignments(filtered)
	return pctx, nil
}

// DictionaryRule rewrites a literal substring before TTS (e.g. expanding an
// abbreviation or correcting mispronunciation). Dictionary rule parsing
// itself is an out-of-scope leaf utility; this step only applies already
// parsed rules.
type DictionaryRule struct {
	From, To string
}

// ApplyDictionaryStep rewrites sentence text using pronunciation rules.
type ApplyDictionaryStep struct {
	Rules []DictionaryRule
}

func (s *ApplyDictionaryStep) Name() string           { return "ApplyDictionary" }
func (s *ApplyDictionaryStep) RequiredKeys() []string { return []string{KeyAssignments} }
func (s *ApplyDictionaryStep) DropsKeys() []string     { return nil }

func (s *ApplyDictionaryStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	if len(s.Rules) == 0 {
		return pctx, nil
	}
	out := make([]types.SpeakerAssignment, len(pctx.Assignments))
	for i, a := range pctx.Assignments {
		for _, rule := range s.Rules {
			a.Text = strings.ReplaceAll(a.Text, rule.From, rule.To)
		}
		out[i] = a
	}
	pctx.SetAssignments(out)
	return pctx, nil
}

// TTSConvertStep drives the WorkerPool over every assignment, skipping any
// partIndex whose chunk file already exists with size > 0 (resume
// idempotence), and recording failures as a PartialSynthesisFailure warning
// rather than aborting.
type TTSConvertStep struct {
	Pool          *ttsqueue.Pool
	PreScanExists func(partIndex int) bool
	ChapterName   func(partIndex int) (name, num string)
}

func (s *TTSConvertStep) Name() string { return "TTSConvert" }
func (s *TTSConvertStep) RequiredKeys() []string {
	return []string{KeyAssignments}
}
func (s *TTSConvertStep) DropsKeys() []string { return []string{KeyCharacters} }

func (s *TTSConvertStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	audioMap := make(map[int]string)
	failed := make(map[int]error)

	var tasks []ttsqueue.Task
	for _, a := range pctx.Assignments {
		if s.PreScanExists != nil && s.PreScanExists(a.SentenceIndex) {
			audioMap[a.SentenceIndex] = fmt.Sprintf("chunk_%06d.bin", a.SentenceIndex)
			continue
		}
		name, num := "", ""
		if s.ChapterName != nil {
			name, num = s.ChapterName(a.SentenceIndex)
		}
		tasks = append(tasks, ttsqueue.Task{
			PartIndex: a.SentenceIndex,
			Text:      a.Text,
			FileName:  name,
			FileNum:   num,
			Voice:     a.VoiceID,
		})
	}

	total := len(tasks)
	done := 0
	step := clamp(total/100, 50, 500)

	s.Pool.Callbacks.OnTaskComplete = func(partIndex int, filename string) {
		audioMap[partIndex] = filename
		done++
		if step > 0 && done%step == 0 {
			sink(ProgressEvent{Current: done, Total: total, Message: "synthesizing"})
		}
	}
	s.Pool.Callbacks.OnTaskError = func(partIndex int, err error) {
		failed[partIndex] = err
		done++
	}

	s.Pool.AddTasks(ctx, tasks)
	s.Pool.Run(ctx)

	pctx.SetAudioMap(audioMap)
	pctx.SetFailedTasks(failed)

	if ctx.Err() != nil {
		return pctx, NewError(KindCancelled, s.Name(), "cancelled during synthesis", ctx.Err())
	}
	if len(failed) > 0 {
		failedIdx := make([]int, 0, len(failed))
		for idx := range failed {
			failedIdx = append(failedIdx, idx)
		}
		sort.Ints(failedIdx)
		sink(ProgressEvent{Current: done, Total: total, Message: fmt.Sprintf("PartialSynthesisFailure: %d of %d tasks failed: %v", len(failed), total, failedIdx)})
	}
	return pctx, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AudioMergeStep drives the MergePlanner and Renderer to produce final
// output files.
type AudioMergeStep struct {
	Renderer   *merge.Renderer
	TargetMs   int64
	ChunkPath  func(partIndex int) string
	ChapterDir func(group types.MergeGroup) string
}

func (s *AudioMergeStep) Name() string            { return "AudioMerge" }
func (s *AudioMergeStep) RequiredKeys() []string  { return []string{KeyAudioMap, KeyFileNames} }
func (s *AudioMergeStep) DropsKeys() []string     { return []string{KeyAudioMap} }

func (s *AudioMergeStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	var chunks []merge.Chunk
	for partIndex := range pctx.AudioMap {
		chunks = append(chunks, merge.Chunk{PartIndex: partIndex, Path: s.ChunkPath(partIndex)})
	}

	groups, err := merge.Plan(chunks, pctx.FileNames, s.TargetMs, merge.ChunkDurationFromDisk)
	if err != nil {
		return pctx, NewError(KindFatal, s.Name(), "merge planning failed", err)
	}

	saved, err := s.Renderer.Render(ctx, groups, s.ChunkPath, s.ChapterDir)
	if err != nil {
		return pctx, NewError(KindFatal, s.Name(), "merge rendering failed", err)
	}

	pctx.SavedFileCount = saved
	return pctx, nil
}

// CleanupStep removes the in-memory failedTasks and tempDirHandle
// bookkeeping now that output files are written to disk (audioMap is
// already dropped by AudioMergeStep). The temp chunk files themselves
// are intentionally left in place so a later run can resume.
type CleanupStep struct{}

func (s *CleanupStep) Name() string           { return "Cleanup" }
func (s *CleanupStep) RequiredKeys() []string { return nil }
func (s *CleanupStep) DropsKeys() []string {
	return []string{KeyFailedTasks, KeyTempDirHandle}
}

func (s *CleanupStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	return pctx, nil
}

// SpeakerAssignmentPersistStep writes pipeline_state.json best-effort after
// speaker assignment, per spec §4.6. Failure logs a warning via sink and
// does not abort the run.
type SpeakerAssignmentPersistStep struct {
	OutputDir string
}

func (s *SpeakerAssignmentPersistStep) Name() string { return "PersistPipelineState" }
func (s *SpeakerAssignmentPersistStep) RequiredKeys() []string {
	return []string{KeyAssignments, KeyVoiceMap, KeyCharacters}
}
func (s *SpeakerAssignmentPersistStep) DropsKeys() []string { return nil }

func (s *SpeakerAssignmentPersistStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	cvm := make(map[string]string, len(pctx.VoiceMap))
	for k, v := range pctx.VoiceMap {
		cvm[k] = string(v)
	}
	state := &types.PipelineState{
		Assignments:       pctx.Assignments,
		CharacterVoiceMap: cvm,
		Characters:        pctx.Characters,
		FileNames:         pctx.FileNames,
	}
	if err := resume.SaveState(s.OutputDir, state); err != nil {
		sink(ProgressEvent{Message: fmt.Sprintf("warning: failed to persist pipeline state: %v", err)})
	}
	return pctx, nil
}

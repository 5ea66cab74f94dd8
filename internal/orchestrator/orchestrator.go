// Package orchestrator wires the conversion core's pipeline steps,
// collaborators, and human-review pause points into the single entry point
// described by the external Orchestrator contract: run an input snapshot
// through text extraction, voice assignment, TTS synthesis, and final
// merge, suspending once for voice review and, on resume, skipping the LLM
// steps entirely in favor of a saved pipeline state.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/textcast/orchestrator/internal/collaborator"
	"github.com/textcast/orchestrator/internal/merge"
	"github.com/textcast/orchestrator/internal/pipeline"
	"github.com/textcast/orchestrator/internal/resume"
	"github.com/textcast/orchestrator/internal/ttsqueue"
	"github.com/textcast/orchestrator/pkg/types"
)

var sentenceSplitRE = regexp.MustCompile(`[^.!?]+[.!?]*`)

// splitIntoSentences breaks raw text into sentence-sized units the same way
// provider.AssignSpeakers does when falling back to all-narrator attribution.
func splitIntoSentences(text string) []string {
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

// ServicesBundle collects the collaborators a Conversion needs. All three
// are injected so the orchestrator never constructs a concrete provider
// itself.
type ServicesBundle struct {
	LLM     collaborator.LLMService
	TTS     collaborator.TTSSynth
	Encoder collaborator.AudioEncoder
	Logger  *slog.Logger
}

// RunInput is the snapshot of conversion options read once at the start of
// a run. The orchestrator never re-reads configuration mid-run: a change to
// the caller's Config after Run starts has no effect on that run.
type RunInput struct {
	Text      string
	FileNames []types.FileNameEntry
	Pool      types.VoicePool
	Narrator  types.VoiceID
	Dict      []pipeline.DictionaryRule

	OutputDir string
	Conv      types.ConversionConfig

	// LLMConfigured is false when no LLM provider is enabled; in that case
	// extraction and speaker assignment are skipped and every sentence is
	// attributed to the narrator. RemapVoices still runs, over those
	// narrator-only assignments.
	LLMConfigured bool
}

// VoiceReviewResult is what the UI returns from AwaitVoiceReview: a
// possibly-edited voice map and, if the operator loaded a previously saved
// mapping profile, the loaded map to use instead.
type VoiceReviewResult struct {
	VoiceMap     types.ConversionVoiceMap
	LoadedProfile types.ConversionVoiceMap
}

// Callbacks is the callback bundle the caller supplies to observe and steer
// a run. Every field is optional; a nil callback is simply not invoked.
type Callbacks struct {
	OnConversionStart    func()
	OnProgress           func(step string, current, total int, message string)
	OnCharactersReady    func(characters []types.Character)
	OnVoiceMapReady      func(voiceMap types.ConversionVoiceMap)
	OnAssignmentsReady   func(assignments []types.SpeakerAssignment)
	AwaitVoiceReview     func(ctx context.Context, characters []types.Character, voiceMap types.ConversionVoiceMap) (VoiceReviewResult, error)
	AwaitResumeConfirmation func(ctx context.Context, info *resume.Info) (bool, error)
	OnError              func(message string, code string)
	OnConversionComplete func(savedFiles int)
}

// KeepAwakeLease is a process-global best-effort resource acquired for the
// duration of a run so the host does not sleep mid-conversion. No example
// in this corpus wraps a platform keep-awake API; Acquire/Release are a
// logging no-op rather than a fabricated binding to one.
type KeepAwakeLease struct {
	mu   sync.Mutex
	held bool
}

var globalKeepAwake KeepAwakeLease

// Acquire takes the process-global lease. It never fails: on platforms
// without a keep-awake facility this is simply advisory bookkeeping.
func (l *KeepAwakeLease) Acquire(logger *slog.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return
	}
	l.held = true
	logger.Info("keep-awake lease acquired")
}

// Release gives up the process-global lease.
func (l *KeepAwakeLease) Release(logger *slog.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	l.held = false
	logger.Info("keep-awake lease released")
}

// Orchestrator is the single entry point for driving a conversion from
// source text to finished audio files.
type Orchestrator struct {
	services ServicesBundle

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds an Orchestrator over the given collaborators.
func New(services ServicesBundle) *Orchestrator {
	if services.Logger == nil {
		services.Logger = slog.Default()
	}
	return &Orchestrator{services: services}
}

// Cancel requests cooperative cancellation of the in-flight run, if any.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Run drives one conversion to completion. It takes the input snapshot and
// callback bundle once; the same Orchestrator value may be reused for
// another Run after this one returns.
func (o *Orchestrator) Run(ctx context.Context, input RunInput, cb Callbacks) error {
	logger := o.services.Logger.With("run_id", newRunID())

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	globalKeepAwake.Acquire(logger)
	defer globalKeepAwake.Release(logger)

	if cb.OnConversionStart != nil {
		cb.OnConversionStart()
	}

	info, err := resume.Check(input.OutputDir)
	if err != nil {
		o.fail(logger, cb, "checking resume state", err, pipeline.KindFatal)
		return err
	}

	resuming := false
	var loadedState *types.PipelineState
	if info != nil {
		proceed := true
		if cb.AwaitResumeConfirmation != nil {
			proceed, err = cb.AwaitResumeConfirmation(runCtx, info)
			if err != nil {
				o.fail(logger, cb, "resume confirmation failed", err, pipeline.KindFatal)
				return err
			}
		}
		if proceed {
			loadedState, err = resume.LoadState(input.OutputDir)
			if err != nil {
				o.fail(logger, cb, "loading resume state", err, pipeline.KindFatal)
				return err
			}
			resuming = loadedState != nil
		}
	}

	runner := pipeline.NewRunner(logger)
	if cb.OnProgress != nil {
		runner.SetProgressSink(func(ev pipeline.ProgressEvent) {
			cb.OnProgress(ev.StepName, ev.Current, ev.Total, ev.Message)
		})
	}

	pctx := &pipeline.Context{
		Text:      input.Text,
		FileNames: input.FileNames,
	}

	skipLLM := resuming || !input.LLMConfigured

	if !skipLLM {
		runner.AddStep(&pipeline.ExtractCharactersStep{LLM: o.services.LLM})
		runner.AddStep(&pipeline.AssignVoicesInitialStep{Pool: input.Pool, Narrator: input.Narrator})
		runner.AddStep(&pipeline.AssignSpeakersStep{LLM: o.services.LLM})
	} else if resuming {
		pctx.SetCharacters(loadedState.Characters)
		vm := make(types.ConversionVoiceMap, len(loadedState.CharacterVoiceMap))
		for k, v := range loadedState.CharacterVoiceMap {
			vm[k] = types.VoiceID(v)
		}
		pctx.SetVoiceMap(vm)
		pctx.SetAssignments(loadedState.Assignments)
	} else {
		pctx.SetCharacters(nil)
		pctx.SetVoiceMap(types.ConversionVoiceMap{types.Narrator: input.Narrator})
		pctx.SetAssignments(allNarratorAssignments(input.Text, input.Narrator))
	}

	runner.AddStep(&pipeline.RemapVoicesStep{Pool: input.Pool, Narrator: input.Narrator})

	if !resuming {
		runner.RegisterPause("RemapVoices", func(ctx context.Context, pctx *pipeline.Context) (*pipeline.Context, error) {
			if cb.OnCharactersReady != nil {
				cb.OnCharactersReady(pctx.Characters)
			}
			if cb.OnVoiceMapReady != nil {
				cb.OnVoiceMapReady(pctx.VoiceMap)
			}
			if cb.OnAssignmentsReady != nil {
				cb.OnAssignmentsReady(pctx.Assignments)
			}
			if cb.AwaitVoiceReview == nil {
				return pctx, nil
			}
			result, err := cb.AwaitVoiceReview(ctx, pctx.Characters, pctx.VoiceMap)
			if err != nil {
				return pctx, pipeline.NewError(pipeline.KindFatal, "RemapVoices", "voice review failed", err)
			}
			vm := result.VoiceMap
			if result.LoadedProfile != nil {
				vm = result.LoadedProfile
			}
			if vm != nil {
				next := pctx.Clone()
				next.SetVoiceMap(vm)
				next.SetAssignments(remapAssignments(next.Assignments, vm, input.Narrator))
				return next, nil
			}
			return pctx, nil
		})
	}

	runner.AddStep(&pipeline.SanitizeStep{})
	if len(input.Dict) > 0 {
		runner.AddStep(&pipeline.ApplyDictionaryStep{Rules: input.Dict})
	}
	runner.AddStep(&pipeline.SpeakerAssignmentPersistStep{OutputDir: input.OutputDir})

	pool := ttsqueue.New(o.services.TTS, ttsqueue.Config{
		MaxWorkers:      input.Conv.MaxWorkers,
		OutputDirectory: input.OutputDir,
		Rate:            input.Conv.RatePercent,
		Pitch:           input.Conv.PitchHz,
	})
	tempDir, err := pool.TempDirHandle()
	if err != nil {
		o.fail(logger, cb, "creating temp work directory", err, pipeline.KindFatal)
		return err
	}
	pctx.SetTempDirHandle(tempDir)

	runner.AddStep(&pipeline.TTSConvertStep{
		Pool: pool,
		PreScanExists: func(partIndex int) bool {
			return chunkExistsAndNonEmpty(filepath.Join(tempDir, chunkFileName(partIndex)))
		},
		ChapterName: func(partIndex int) (string, string) {
			return chapterForIndex(input.FileNames, partIndex)
		},
	})

	renderer := &merge.Renderer{
		Encoder:    o.services.Encoder,
		OutputDir:  input.OutputDir,
		ChapterExt: input.Conv.OutputFormat,
		InterGapMs: input.Conv.SilenceGapMs,
		FilterChain: collaborator.FilterChain{
			EQ:             input.Conv.EQ,
			DeEsser:        input.Conv.DeEss,
			SilenceRemoval: input.Conv.SilenceRemoval,
			Compressor:     input.Conv.Compressor,
			Normalization:  input.Conv.Normalization,
			FadeIn:         input.Conv.FadeIn,
			StereoWidth:    input.Conv.StereoWidth,
		},
		Codec: collaborator.CodecOptions{
			Format:             input.Conv.OutputFormat,
			OpusMinBitrateKbps: input.Conv.OpusMinBitrateKbps,
			OpusMaxBitrateKbps: input.Conv.OpusMaxBitrateKbps,
			OpusCompression:    input.Conv.OpusCompressionLevel,
		},
	}

	targetMs := int64(input.Conv.TargetDurationMinutes) * 60 * 1000
	runner.AddStep(&pipeline.AudioMergeStep{
		Renderer: renderer,
		TargetMs: targetMs,
		ChunkPath: func(partIndex int) string {
			return filepath.Join(tempDir, chunkFileName(partIndex))
		},
		ChapterDir: func(g types.MergeGroup) string {
			return chapterDirForGroup(input.FileNames, g)
		},
	})

	runner.AddStep(&pipeline.CleanupStep{})

	finalCtx, err := runner.Run(runCtx, pctx)
	if err != nil {
		var pe *pipeline.Error
		if asPipelineError(err, &pe) {
			if pe.Kind == pipeline.KindCancelled {
				logger.Info("conversion cancelled")
				return err
			}
			o.fail(logger, cb, pe.Message, pe, pe.Kind)
			return err
		}
		o.fail(logger, cb, "conversion failed", err, pipeline.KindFatal)
		return err
	}

	if cb.OnConversionComplete != nil {
		cb.OnConversionComplete(finalCtx.SavedFileCount)
	}
	return nil
}

// newRunID mints a monotonically-sortable identifier for one conversion
// run, attached to every log line so the steps of a single run can be
// grepped out of a shared log stream.
func newRunID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func (o *Orchestrator) fail(logger *slog.Logger, cb Callbacks, message string, err error, kind pipeline.Kind) {
	logger.Error("conversion failed", "message", message, "kind", kind.String(), "error", err)
	if cb.OnError != nil {
		cb.OnError(fmt.Sprintf("%s: %v", message, err), kind.String())
	}
}

func asPipelineError(err error, target **pipeline.Error) bool {
	for err != nil {
		if pe, ok := err.(*pipeline.Error); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func chunkFileName(partIndex int) string {
	return fmt.Sprintf("chunk_%06d.bin", partIndex)
}

func chunkExistsAndNonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

func chapterForIndex(fileNames []types.FileNameEntry, partIndex int) (string, string) {
	name := ""
	idx := 0
	for i, fn := range fileNames {
		if partIndex >= fn.StartSentenceIndex {
			name = fn.Name
			idx = i
		}
	}
	return name, fmt.Sprintf("%03d", idx+1)
}

func chapterDirForGroup(fileNames []types.FileNameEntry, g types.MergeGroup) string {
	name, _ := chapterForIndex(fileNames, g.FromIndex)
	return name
}

// allNarratorAssignments builds one SpeakerAssignment per sentence, all
// attributed to the narrator, used when no LLM provider is configured.
func allNarratorAssignments(text string, narrator types.VoiceID) []types.SpeakerAssignment {
	sentences := splitIntoSentences(text)
	out := make([]types.SpeakerAssignment, 0, len(sentences))
	for i, s := range sentences {
		out = append(out, types.SpeakerAssignment{
			SentenceIndex: i,
			Text:          s,
			Speaker:       types.Narrator,
			VoiceID:       narrator,
		})
	}
	return out
}

func remapAssignments(assignments []types.SpeakerAssignment, voiceMap types.ConversionVoiceMap, narrator types.VoiceID) []types.SpeakerAssignment {
	out := make([]types.SpeakerAssignment, len(assignments))
	for i, a := range assignments {
		out[i] = a
		if a.Speaker == types.Narrator {
			out[i].VoiceID = narrator
			continue
		}
		if v, ok := voiceMap[a.Speaker]; ok {
			out[i].VoiceID = v
		} else {
			out[i].VoiceID = narrator
		}
	}
	return out
}

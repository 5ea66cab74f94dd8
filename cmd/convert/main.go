package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/textcast/orchestrator/internal/assembly"
	"github.com/textcast/orchestrator/internal/collaborator"
	"github.com/textcast/orchestrator/internal/config"
	"github.com/textcast/orchestrator/internal/obslog"
	"github.com/textcast/orchestrator/internal/orchestrator"
	"github.com/textcast/orchestrator/internal/parser"
	"github.com/textcast/orchestrator/internal/provider"
	"github.com/textcast/orchestrator/internal/resume"
	"github.com/textcast/orchestrator/internal/tui"
	"github.com/textcast/orchestrator/pkg/types"
)

var cliSentenceSplitRE = regexp.MustCompile(`[^.!?]+[.!?]*`)

const version = "0.1.0"

func main() {
	var configPath string
	var outputDir string
	var logLevel string
	var noVoiceReview bool

	root := &cobra.Command{
		Use:   "convert <book-file>",
		Short: "Convert a book into a narrated, multi-voice audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), args[0], configPath, outputDir, logLevel, noVoiceReview)
		},
	}

	root.Flags().StringVar(&configPath, "config", "config/dev.example.yaml", "path to configuration file")
	root.Flags().StringVar(&outputDir, "output", "", "output directory (defaults to the book's directory)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().BoolVar(&noVoiceReview, "no-voice-review", false, "skip the interactive voice review and accept the generated mapping")

	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the convert CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func runConvert(ctx context.Context, bookPath, configPath, outputDir, logLevel string, noVoiceReview bool) error {
	logger := obslog.Init(logLevel)
	slog.SetDefault(logger)

	tp, err := obslog.InitTracer("textcast-convert", version)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if outputDir == "" {
		outputDir = filepath.Dir(bookPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	data, err := os.ReadFile(bookPath)
	if err != nil {
		return fmt.Errorf("read book file: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(bookPath)), ".")
	factory := parser.NewFactory()
	p, err := factory.GetParser(format)
	if err != nil {
		return fmt.Errorf("select parser: %w", err)
	}
	chapters, err := p.Parse(ctx, data)
	if err != nil {
		return fmt.Errorf("parse book: %w", err)
	}

	text, fileNames := buildTextAndBoundaries(chapters)
	logger.Info("book parsed", "chapters", len(chapters), "sentences_hint", len(fileNames))

	llmConfigured := anyEnabled(cfg.Providers.LLM)

	var llm collaborator.LLMService
	if llmConfigured {
		llm, err = provider.BuildLLMService(cfg.Providers, cfg.Conversion.Temperature, cfg.Conversion.LLMThreads)
		if err != nil {
			return fmt.Errorf("build LLM service: %w", err)
		}
	}

	tts, err := provider.BuildTTSSynth(ctx, cfg.Providers)
	if err != nil {
		return fmt.Errorf("build TTS synth: %w", err)
	}

	pool := types.VoicePool{}
	if llmConfigured {
		voices, err := provider.VoiceCatalog(ctx, cfg.Providers)
		if err != nil {
			return fmt.Errorf("fetch voice catalog: %w", err)
		}
		pool = provider.BuildVoicePool(voices, cfg.Conversion.EnabledVoices)
	}
	narrator := types.VoiceID(cfg.Conversion.NarratorVoice)

	encoder := assembly.NewFFmpegEncoder(outputDir)

	orch := orchestrator.New(orchestrator.ServicesBundle{
		LLM:     llm,
		TTS:     tts,
		Encoder: encoder,
		Logger:  logger,
	})

	reviewer := tui.NewVoiceReviewer(os.Stdin, os.Stdout)

	cb := orchestrator.Callbacks{
		OnConversionStart: func() {
			logger.Info("conversion starting", "book", bookPath)
		},
		OnProgress: func(step string, current, total int, message string) {
			if message != "" {
				logger.Info("progress", "step", step, "current", current, "total", total, "message", message)
			}
		},
		OnError: func(message, code string) {
			logger.Error("conversion error", "code", code, "message", message)
		},
		OnConversionComplete: func(savedFiles int) {
			logger.Info("conversion complete", "files_written", savedFiles)
		},
		AwaitResumeConfirmation: func(ctx context.Context, info *resume.Info) (bool, error) {
			logger.Info("resumable state found", "cached_chunks", info.CachedChunks)
			return true, nil
		},
	}

	if noVoiceReview {
		cb.AwaitVoiceReview = func(ctx context.Context, characters []types.Character, voiceMap types.ConversionVoiceMap) (orchestrator.VoiceReviewResult, error) {
			return orchestrator.VoiceReviewResult{VoiceMap: voiceMap}, nil
		}
	} else {
		cb.AwaitVoiceReview = reviewer.Review
	}

	input := orchestrator.RunInput{
		Text:          text,
		FileNames:     fileNames,
		Pool:          pool,
		Narrator:      narrator,
		OutputDir:     outputDir,
		Conv:          cfg.Conversion,
		LLMConfigured: llmConfigured,
	}

	return orch.Run(ctx, input, cb)
}

func anyEnabled(providers []types.LLMProviderConfig) bool {
	for _, p := range providers {
		if p.Enabled {
			return true
		}
	}
	return false
}

// buildTextAndBoundaries concatenates every chapter's paragraphs into one
// text, recording each chapter's starting sentence ordinal for the
// pipeline's chapter-aware text blocking and merge planning.
func buildTextAndBoundaries(chapters []*types.Chapter) (string, []types.FileNameEntry) {
	var sb strings.Builder
	var fileNames []types.FileNameEntry
	sentenceOrdinal := 0

	for i, ch := range chapters {
		name := ch.Title
		if name == "" {
			name = fmt.Sprintf("chapter_%03d", i+1)
		}
		fileNames = append(fileNames, types.FileNameEntry{Name: name, StartSentenceIndex: sentenceOrdinal})

		chapterText := strings.Join(ch.Paragraphs, " ")
		sb.WriteString(chapterText)
		sb.WriteString(" ")
		sentenceOrdinal += countSentences(chapterText)
	}

	return sb.String(), fileNames
}

func countSentences(text string) int {
	matches := cliSentenceSplitRE.FindAllString(text, -1)
	n := 0
	for _, m := range matches {
		if strings.TrimSpace(m) != "" {
			n++
		}
	}
	return n
}

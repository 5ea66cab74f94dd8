// Package assembly concatenates synthesized utterances, applies the
// conversion's optional audio filter chain, and re-encodes to the final
// delivery codec via the system ffmpeg binary.
package assembly

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/textcast/orchestrator/internal/collaborator"
)

const silenceCodec = "libmp3lame"

// FFmpegEncoder implements collaborator.AudioEncoder using the system
// ffmpeg binary.
type FFmpegEncoder struct {
	workDir string
}

// NewFFmpegEncoder returns an encoder that stages its intermediate files
// under workDir (cmd/convert passes the book's output directory).
func NewFFmpegEncoder(workDir string) *FFmpegEncoder {
	return &FFmpegEncoder{workDir: workDir}
}

var _ collaborator.AudioEncoder = (*FFmpegEncoder)(nil)

func (e *FFmpegEncoder) ConcatAndFilter(ctx context.Context, inputs [][]byte, interGapMs int, chain collaborator.FilterChain, codec collaborator.CodecOptions) ([]byte, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no audio inputs to assemble")
	}

	// A uuid-staged directory name (rather than os.MkdirTemp's own random
	// suffix) lets multiple chapters render concurrently under the same
	// workDir without colliding, and gives each invocation's intermediate
	// files a stable id for log correlation.
	tmpDir := filepath.Join(e.workDir, "ffmpeg-"+uuid.NewString())
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create ffmpeg work dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	segmentPaths := make([]string, 0, len(inputs))
	for i, data := range inputs {
		p := filepath.Join(tmpDir, fmt.Sprintf("seg_%04d.mp3", i))
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return nil, fmt.Errorf("write segment %d: %w", i, err)
		}
		segmentPaths = append(segmentPaths, p)
	}

	var silencePath string
	if interGapMs > 0 {
		silencePath = filepath.Join(tmpDir, "silence.mp3")
		if err := generateSilence(ctx, silencePath, interGapMs); err != nil {
			return nil, fmt.Errorf("generate silence: %w", err)
		}
	}

	listPath := filepath.Join(tmpDir, "concat.txt")
	if err := buildConcatList(segmentPaths, silencePath, listPath); err != nil {
		return nil, fmt.Errorf("build concat list: %w", err)
	}

	outExt := "opus"
	if codec.Format == "mp3" {
		outExt = "mp3"
	}
	outputPath := filepath.Join(tmpDir, "output."+outExt)

	if err := runFFmpegConcat(ctx, listPath, outputPath, chain, codec); err != nil {
		return nil, fmt.Errorf("ffmpeg concat: %w", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read assembled output: %w", err)
	}
	return data, nil
}

func generateSilence(ctx context.Context, output string, gapMs int) error {
	seconds := float64(gapMs) / 1000.0
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=stereo",
		"-t", strconv.FormatFloat(seconds, 'f', -1, 64),
		"-c:a", silenceCodec,
		"-y",
		output,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg silence generation failed: %w\n%s", err, stderr.String())
	}
	return nil
}

func buildConcatList(segments []string, silencePath string, listPath string) error {
	var lines []string
	for i, seg := range segments {
		lines = append(lines, fmt.Sprintf("file '%s'", seg))
		if silencePath != "" && i < len(segments)-1 {
			lines = append(lines, fmt.Sprintf("file '%s'", silencePath))
		}
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

// buildFilterChain renders the canonical filter order into an ffmpeg -af
// filtergraph: EQ, de-esser, silence removal, compressor, loudness
// normalization + limiter, fade-in, stereo width.
func buildFilterChain(chain collaborator.FilterChain, durationHintSec float64) string {
	var filters []string

	if chain.EQ {
		filters = append(filters, "equalizer=f=200:t=q:w=1:g=-3", "equalizer=f=3000:t=q:w=1:g=2")
	}
	if chain.DeEsser {
		filters = append(filters, "deesser")
	}
	if chain.SilenceRemoval {
		filters = append(filters, "silenceremove=start_periods=1:start_duration=0:start_threshold=-50dB:detection=peak,"+
			"silenceremove=stop_periods=-1:stop_duration=0.3:stop_threshold=-50dB:detection=peak")
	}
	if chain.Compressor {
		filters = append(filters, "acompressor=threshold=-18dB:ratio=3:attack=20:release=250")
	}
	if chain.Normalization {
		filters = append(filters, "loudnorm=I=-16:TP=-1.5:LRA=11", "alimiter=limit=0.95")
	}
	if chain.FadeIn {
		fadeDur := 1.0
		if durationHintSec > 0 && durationHintSec < fadeDur {
			fadeDur = durationHintSec
		}
		filters = append(filters, fmt.Sprintf("afade=t=in:st=0:d=%s", strconv.FormatFloat(fadeDur, 'f', -1, 64)))
	}
	if chain.StereoWidth {
		filters = append(filters, "stereotools=mlev=0.015:slev=1.2")
	}

	return strings.Join(filters, ",")
}

func runFFmpegConcat(ctx context.Context, listPath string, output string, chain collaborator.FilterChain, codec collaborator.CodecOptions) error {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}

	if af := buildFilterChain(chain, 0); af != "" {
		args = append(args, "-af", af)
	}

	switch codec.Format {
	case "mp3":
		args = append(args, "-c:a", "libmp3lame", "-q:a", "0")
	default: // opus
		minBr := codec.OpusMinBitrateKbps
		maxBr := codec.OpusMaxBitrateKbps
		if minBr <= 0 {
			minBr = 32
		}
		if maxBr <= 0 {
			maxBr = 64
		}
		comp := codec.OpusCompression
		if comp <= 0 {
			comp = 10
		}
		args = append(args,
			"-c:a", "libopus",
			"-b:a", fmt.Sprintf("%dk", (minBr+maxBr)/2),
			"-compression_level", strconv.Itoa(comp),
			"-vbr", "constrained",
		)
	}

	args = append(args, "-y", output)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w\n%s", err, stderr.String())
	}

	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output file is empty")
	}

	return nil
}

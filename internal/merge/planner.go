// Package merge groups synthesized audio chunks into target-duration output
// files, respecting chapter boundaries, and drives the AudioEncoder
// collaborator to produce the final encoded containers.
package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/textcast/orchestrator/internal/collaborator"
	"github.com/textcast/orchestrator/internal/mp3"
	"github.com/textcast/orchestrator/pkg/types"
)

// Chunk is one chunk as seen by the planner: its partIndex and path on disk.
type Chunk struct {
	PartIndex int
	Path      string
}

// resumeThresholdBytes is the boundary above which a pre-existing output
// file is treated as a valid cached result rather than corrupt.
const resumeThresholdBytes = 1024

// Plan groups ascending chunks into MergeGroups: a group closes when adding
// the next chunk would exceed targetMs, or when the next chunk crosses a
// chapter boundary declared in fileNames. chunkDurationMs resolves a chunk's
// duration via the MP3 parser.
func Plan(chunks []Chunk, fileNames []types.FileNameEntry, targetMs int64, chunkDurationMs func(Chunk) (int64, error)) ([]types.MergeGroup, error) {
	sorted := append([]Chunk(nil), chunks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartIndex < sorted[j].PartIndex })

	var groups []types.MergeGroup
	if len(sorted) == 0 {
		return groups, nil
	}

	chapterOf := func(partIndex int) string {
		name := ""
		for _, fn := range fileNames {
			if partIndex >= fn.StartSentenceIndex {
				name = fn.Name
			}
		}
		return name
	}

	var cur *types.MergeGroup
	var curDur int64
	curChapter := ""
	mergeNumForChapter := map[string]int{}

	closeGroup := func() {
		if cur == nil {
			return
		}
		cur.DurationMs = curDur
		groups = append(groups, *cur)
		cur = nil
		curDur = 0
	}

	for _, c := range sorted {
		dur, err := chunkDurationMs(c)
		if err != nil {
			return nil, fmt.Errorf("merge: chunk %d: %w", c.PartIndex, err)
		}

		chapter := chapterOf(c.PartIndex)

		crossesChapter := cur != nil && chapter != curChapter
		exceedsTarget := cur != nil && curDur+dur > targetMs

		if crossesChapter || exceedsTarget {
			closeGroup()
		}

		if cur == nil {
			mergeNumForChapter[chapter]++
			cur = &types.MergeGroup{
				FromIndex:   c.PartIndex,
				ToIndex:     c.PartIndex,
				MergeNumber: mergeNumForChapter[chapter],
				Filename:    filename(chapter, mergeNumForChapter[chapter]),
			}
			curChapter = chapter
			curDur = 0
		}

		cur.ToIndex = c.PartIndex
		curDur += dur
	}
	closeGroup()

	return groups, nil
}

func filename(chapter string, mergeNumber int) string {
	if mergeNumber <= 1 {
		return chapter
	}
	return fmt.Sprintf("%s_%d", chapter, mergeNumber)
}

// ChunkDurationFromDisk reads a chunk's bytes and computes its duration via
// the MP3 parser. It is the default chunkDurationMs implementation for Plan.
func ChunkDurationFromDisk(c Chunk) (int64, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return 0, err
	}
	ms, err := mp3.ParseDuration(data, 100)
	if err != nil {
		return 0, err
	}
	return int64(ms), nil
}

// Renderer writes MergeGroups to disk using an AudioEncoder, honoring
// resume-skip for pre-existing output files.
type Renderer struct {
	Encoder    collaborator.AudioEncoder
	OutputDir  string
	ChapterExt string // "opus" or "mp3"
	InterGapMs int
	FilterChain collaborator.FilterChain
	Codec       collaborator.CodecOptions
}

// Render encodes every group not already cached on disk, reading its chunk
// bytes in ascending partIndex order. Returns the number of files actually
// (re)written.
func (r *Renderer) Render(ctx context.Context, groups []types.MergeGroup, chunkPath func(partIndex int) string, chapterDir func(group types.MergeGroup) string) (int, error) {
	saved := 0
	for _, g := range groups {
		dir := chapterDir(g)
		outPath := filepath.Join(r.OutputDir, dir, fmt.Sprintf("%s.%s", g.Filename, r.ChapterExt))

		if info, err := os.Stat(outPath); err == nil {
			if info.Size() > resumeThresholdBytes {
				continue // cached, skip unchanged
			}
			// <= 1 KiB: treat as corrupt, fall through to re-encode.
		}

		var inputs [][]byte
		for idx := g.FromIndex; idx <= g.ToIndex; idx++ {
			data, err := os.ReadFile(chunkPath(idx))
			if err != nil {
				return saved, fmt.Errorf("merge: reading chunk %d: %w", idx, err)
			}
			inputs = append(inputs, data)
		}

		encoded, err := r.Encoder.ConcatAndFilter(ctx, inputs, r.InterGapMs, r.FilterChain, r.Codec)
		if err != nil {
			return saved, fmt.Errorf("merge: encoding group %s: %w", g.Filename, err)
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return saved, fmt.Errorf("merge: creating output dir: %w", err)
		}
		if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
			return saved, fmt.Errorf("merge: writing output: %w", err)
		}
		saved++
	}
	return saved, nil
}

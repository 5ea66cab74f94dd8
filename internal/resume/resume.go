// Package resume detects and loads prior-run state from an output
// directory's _temp_work folder, implementing the spec's one-book-per-folder
// resume contract.
package resume

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/textcast/orchestrator/pkg/types"
)

const (
	tempWorkDirName  = "_temp_work"
	stateFileName    = "pipeline_state.json"
	chunkFilePattern = "chunk_*.bin"
)

// Info summarizes what a Check found.
type Info struct {
	CachedChunks int
	HasLLMState  bool
}

// Check inspects dir for prior progress. It returns (nil, nil) if no
// _temp_work subdirectory or no pipeline_state.json inside it exists.
//
// The contract is one book per output directory, with no content hashing:
// it is the operator's responsibility that dir corresponds to the intended
// book.
func Check(dir string) (*Info, error) {
	tempDir := filepath.Join(dir, tempWorkDirName)
	statePath := filepath.Join(tempDir, stateFileName)

	if _, err := os.Stat(tempDir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := os.Stat(statePath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(tempDir, chunkFilePattern))
	if err != nil {
		return nil, err
	}

	return &Info{CachedChunks: len(matches), HasLLMState: true}, nil
}

// LoadState reads pipeline_state.json from dir's _temp_work folder.
// Failures (missing file, malformed JSON) return a nil state and nil error:
// callers should treat that as "no usable resume state" rather than fatal.
func LoadState(dir string) (*types.PipelineState, error) {
	statePath := filepath.Join(dir, tempWorkDirName, stateFileName)
	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil, nil
	}

	var state types.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil
	}
	return &state, nil
}

// SaveState writes pipeline_state.json atomically (write to a temp file,
// then rename) inside dir's _temp_work folder, creating it if needed. This
// is called from the SpeakerAssignment step; failures are the caller's
// responsibility to log as a warning, not abort the run.
func SaveState(dir string, state *types.PipelineState) error {
	tempDir := filepath.Join(dir, tempWorkDirName)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	statePath := filepath.Join(tempDir, stateFileName)
	tmp := statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, statePath)
}

package ttsqueue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textcast/orchestrator/pkg/types"
)

type fakeSynth struct {
	mu       sync.Mutex
	calls    int
	failOnce map[int]bool
	delay    time.Duration
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, voice types.VoiceID, rate, pitch, volume float64) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []byte("audio:" + text), nil
}

func TestPool_SynthesizesAllTasksAndWritesChunks(t *testing.T) {
	dir := t.TempDir()
	var completed int32
	synth := &fakeSynth{}
	pool := New(synth, Config{
		MaxWorkers:      2,
		OutputDirectory: dir,
		Callbacks: Callbacks{
			OnTaskComplete: func(partIndex int, filename string) {
				atomic.AddInt32(&completed, 1)
			},
		},
	})

	tasks := make([]Task, 5)
	for i := range tasks {
		tasks[i] = Task{PartIndex: i, Text: fmt.Sprintf("sentence %d", i), Voice: "v1"}
	}
	pool.AddTasks(context.Background(), tasks)
	pool.Run(context.Background())

	require.EqualValues(t, 5, completed)
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, "_temp_work", chunkName(i))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestPool_RetriesRetriableErrorsThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	attempts := 0
	synth := retrySynth{attempts: &attempts, failures: 2}

	var errored int32
	var completed int32
	pool := New(synth, Config{
		MaxWorkers:      1,
		MaxAttempts:     3,
		OutputDirectory: dir,
		Callbacks: Callbacks{
			OnTaskComplete: func(partIndex int, filename string) { atomic.AddInt32(&completed, 1) },
			OnTaskError:    func(partIndex int, err error) { atomic.AddInt32(&errored, 1) },
		},
	})
	pool.AddTasks(context.Background(), []Task{{PartIndex: 0, Text: "x", Voice: "v"}})
	pool.Run(context.Background())

	assert.EqualValues(t, 1, completed)
	assert.EqualValues(t, 0, errored)
}

type retrySynth struct {
	attempts *int
	failures int
}

func (s retrySynth) Synthesize(ctx context.Context, text string, voice types.VoiceID, rate, pitch, volume float64) ([]byte, error) {
	*s.attempts++
	if *s.attempts <= s.failures {
		return nil, &RetriableError{StatusCode: 503, Err: fmt.Errorf("temporary failure")}
	}
	return []byte("ok"), nil
}

func TestPool_FatalErrorDoesNotRetry(t *testing.T) {
	dir := t.TempDir()
	attempts := 0
	synth := fatalSynth{attempts: &attempts}

	var errored int32
	pool := New(synth, Config{
		MaxWorkers:      1,
		MaxAttempts:     3,
		OutputDirectory: dir,
		Callbacks: Callbacks{
			OnTaskError: func(partIndex int, err error) { atomic.AddInt32(&errored, 1) },
		},
	})
	pool.AddTasks(context.Background(), []Task{{PartIndex: 0, Text: "x", Voice: "v"}})
	pool.Run(context.Background())

	assert.EqualValues(t, 1, errored)
	assert.Equal(t, 1, attempts)
}

type fatalSynth struct{ attempts *int }

func (s fatalSynth) Synthesize(ctx context.Context, text string, voice types.VoiceID, rate, pitch, volume float64) ([]byte, error) {
	*s.attempts++
	return nil, fmt.Errorf("authentication failed")
}

func TestPool_CancellationStopsDispatchingNewWork(t *testing.T) {
	dir := t.TempDir()
	synth := &fakeSynth{delay: 50 * time.Millisecond}
	var completed int32
	pool := New(synth, Config{
		MaxWorkers:      2,
		OutputDirectory: dir,
		Callbacks: Callbacks{
			OnTaskComplete: func(partIndex int, filename string) { atomic.AddInt32(&completed, 1) },
		},
	})

	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = Task{PartIndex: i, Text: "t", Voice: "v"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool.AddTasks(ctx, tasks)

	go func() {
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	pool.Run(ctx)

	assert.Less(t, int(completed), 10)
}

// Package ttsqueue implements the bounded-concurrency TTS worker pool: a
// FIFO task queue serviced by up to max_workers concurrent goroutines, each
// calling out to a TTSSynth collaborator and persisting the result to disk
// as a numbered chunk file, with retry/backoff and cooperative cancellation.
package ttsqueue

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/textcast/orchestrator/internal/collaborator"
	"github.com/textcast/orchestrator/pkg/types"
)

// Task is one sentence to synthesize.
type Task struct {
	PartIndex int
	Text      string
	FileName  string // logical chapter name, for logging/grouping only
	FileNum   string // zero-padded chapter sequence, for logging only
	Voice     types.VoiceID
}

// Callbacks the pool reports status and completion through.
type Callbacks struct {
	OnStatus       func(message string)
	OnTaskComplete func(partIndex int, filename string)
	OnTaskError    func(partIndex int, err error)
	OnAllComplete  func()
}

// Config configures a Pool.
type Config struct {
	MaxWorkers      int
	MaxAttempts     int // retry ceiling per task, default 3
	OutputDirectory string
	Rate, Pitch, Volume float64
	Callbacks
}

// Pool is the bounded-concurrency TTS scheduler described in spec §4.2. It
// bounds in-flight synthesis calls with a weighted semaphore rather than a
// hand-rolled counter, so dispatch and release are a single Acquire/Release
// pair instead of a separately-guarded inFlight field.
type Pool struct {
	cfg   Config
	synth collaborator.TTSSynth

	mu      sync.Mutex
	queue   []Task
	started bool

	sem *semaphore.Weighted

	tempDir     string
	tempDirOnce sync.Once

	cancel    context.CancelFunc
	workersWG sync.WaitGroup

	rng *rand.Rand
}

// New creates a Pool. A cfg.MaxWorkers below 1 is treated as 1.
func New(synth collaborator.TTSSynth, cfg Config) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Pool{
		cfg:   cfg,
		synth: synth,
		sem:   semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		rng:   rand.New(rand.NewSource(1)),
	}
}

// TempDirHandle lazily creates and returns the _temp_work directory used for
// chunk files.
func (p *Pool) TempDirHandle() (string, error) {
	var err error
	p.tempDirOnce.Do(func() {
		dir := filepath.Join(p.cfg.OutputDirectory, "_temp_work")
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			err = mkErr
			return
		}
		p.tempDir = dir
	})
	if err != nil {
		return "", err
	}
	return p.tempDir, nil
}

// chunkName derives chunk_NNNNNN.bin from a partIndex.
func chunkName(partIndex int) string {
	return fmt.Sprintf("chunk_%06d.bin", partIndex)
}

// AddTasks enqueues tasks and, if the pool has already been started via
// Run, dispatches new workers immediately up to the concurrency ceiling.
func (p *Pool) AddTasks(ctx context.Context, tasks []Task) {
	p.mu.Lock()
	p.queue = append(p.queue, tasks...)
	started := p.started
	p.mu.Unlock()

	if started {
		p.dispatch(ctx)
	}
}

// Clear cancels all pending and in-flight tasks without waiting for
// in-flight workers to drain.
func (p *Pool) Clear() {
	p.mu.Lock()
	p.queue = nil
	p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Run starts dispatching queued tasks and blocks until the queue is empty
// and every in-flight worker has finished, or ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	defer cancel()

	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	p.dispatch(runCtx)
	p.workersWG.Wait()

	p.mu.Lock()
	empty := len(p.queue) == 0
	p.mu.Unlock()

	if empty && p.cfg.OnAllComplete != nil {
		p.cfg.OnAllComplete()
	}
}

// dispatch starts new worker goroutines while the semaphore has free
// capacity and queued tasks remain. A failed TryAcquire means every worker
// slot is busy; the worker that next finishes calls dispatch again.
func (p *Pool) dispatch(ctx context.Context) {
	for {
		p.mu.Lock()
		if ctx.Err() != nil || len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		if !p.sem.TryAcquire(1) {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.workersWG.Add(1)
		go p.runWorker(ctx, task)
	}
}

func (p *Pool) runWorker(ctx context.Context, task Task) {
	defer p.workersWG.Done()
	defer func() {
		p.sem.Release(1)
		p.dispatch(ctx)
	}()

	name := chunkName(task.PartIndex)
	dir, err := p.TempDirHandle()
	if err != nil {
		if p.cfg.OnTaskError != nil {
			p.cfg.OnTaskError(task.PartIndex, err)
		}
		return
	}

	bytes, err := p.synthesizeWithRetry(ctx, task)
	if err != nil {
		if p.cfg.OnTaskError != nil {
			p.cfg.OnTaskError(task.PartIndex, err)
		}
		return
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes, 0o644); err != nil {
		if p.cfg.OnTaskError != nil {
			p.cfg.OnTaskError(task.PartIndex, err)
		}
		return
	}

	if p.cfg.OnTaskComplete != nil {
		p.cfg.OnTaskComplete(task.PartIndex, name)
	}
}

const (
	backoffBase = 2 * time.Second
	backoffCap  = 60 * time.Second
)

// synthesizeWithRetry classifies errors as retriable or fatal and retries
// retriable ones with exponential backoff with full jitter, honoring
// cancellation between attempts and during the wait itself.
func (p *Pool) synthesizeWithRetry(ctx context.Context, task Task) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ttsqueue: cancelled: %w", ctx.Err())
		}

		data, err := p.synth.Synthesize(ctx, task.Text, task.Voice, p.cfg.Rate, p.cfg.Pitch, p.cfg.Volume)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !IsRetriable(err) {
			return nil, err
		}

		if attempt == p.cfg.MaxAttempts-1 {
			break
		}

		wait := fullJitterBackoff(p.rng, attempt)
		if p.cfg.OnStatus != nil {
			p.cfg.OnStatus(fmt.Sprintf("retrying part %d (attempt %d) after %s: %v", task.PartIndex, attempt+1, wait, err))
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("ttsqueue: cancelled during backoff: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("ttsqueue: exhausted retries: %w", lastErr)
}

// fullJitterBackoff returns a random duration in [0, min(cap, base*2^attempt)).
func fullJitterBackoff(rng *rand.Rand, attempt int) time.Duration {
	max := backoffBase << uint(attempt)
	if max > backoffCap || max <= 0 {
		max = backoffCap
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// RetriableError wraps a transient failure (network error, 5xx, rate limit,
// transient WebSocket close) so the pool retries it.
type RetriableError struct {
	StatusCode int
	Err        error
}

func (e *RetriableError) Error() string { return e.Err.Error() }
func (e *RetriableError) Unwrap() error { return e.Err }

// IsRetriable reports whether err should be retried by the pool rather than
// surfaced as a fatal task error.
func IsRetriable(err error) bool {
	_, ok := err.(*RetriableError)
	return ok
}

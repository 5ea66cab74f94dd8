// Package pipeline implements the staged pipeline runner: an ordered list of
// Steps executed over a shared Context, with cooperative cancellation,
// progress reporting, and pause-for-review points between steps.
package pipeline

import (
	"context"
	"log/slog"
)

// Runner executes an ordered list of Steps over a shared Context.
type Runner struct {
	steps   []Step
	sink    ProgressSink
	pauses  map[string]PauseHandler
	logger  *slog.Logger
}

// NewRunner creates an empty Runner. Use AddStep to populate it.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		sink:   NopProgressSink,
		pauses: make(map[string]PauseHandler),
		logger: logger,
	}
}

// AddStep appends a step to the end of the pipeline.
func (r *Runner) AddStep(step Step) {
	r.steps = append(r.steps, step)
}

// SetProgressSink installs the single sink that receives progress events
// from every step.
func (r *Runner) SetProgressSink(sink ProgressSink) {
	if sink == nil {
		sink = NopProgressSink
	}
	r.sink = sink
}

// RegisterPause installs a handler invoked after the named step completes.
// The handler may mutate (or replace) the context; the runner re-checks
// cancellation immediately after it returns.
func (r *Runner) RegisterPause(stepName string, handler PauseHandler) {
	r.pauses[stepName] = handler
}

// Run executes every step in declaration order against pctx, honoring
// cancellation via ctx and forwarding progress to the installed sink.
func (r *Runner) Run(ctx context.Context, pctx *Context) (*Context, error) {
	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			return pctx, NewError(KindCancelled, step.Name(), "cancelled before step start", err)
		}

		for _, key := range step.RequiredKeys() {
			if !pctx.Has(key) {
				return pctx, NewError(KindPreconditionFailed, step.Name(), "missing required context key: "+key, nil)
			}
		}

		r.logger.Info("pipeline step starting", "step", step.Name())

		stepSink := func(ev ProgressEvent) {
			ev.StepName = step.Name()
			r.sink(ev)
		}

		next, err := step.Execute(ctx, pctx, stepSink)
		if err != nil {
			if IsCancelled(err) {
				r.logger.Info("pipeline step cancelled", "step", step.Name())
			} else {
				r.logger.Error("pipeline step failed", "step", step.Name(), "error", err)
			}
			return pctx, err
		}
		pctx = next
		r.logger.Info("pipeline step completed", "step", step.Name())

		for _, key := range step.DropsKeys() {
			pctx.Drop(key)
		}

		if handler, ok := r.pauses[step.Name()]; ok {
			r.logger.Info("pipeline pause starting", "step", step.Name())
			next, err := handler(ctx, pctx)
			if err != nil {
				return pctx, err
			}
			pctx = next
			if err := ctx.Err(); err != nil {
				return pctx, NewError(KindCancelled, step.Name(), "cancelled during pause", err)
			}
			r.logger.Info("pipeline pause resumed", "step", step.Name())
		}
	}

	return pctx, nil
}

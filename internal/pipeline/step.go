package pipeline

import "context"

// Step is a unit of pipeline work with declared pre/post-conditions against
// the shared Context.
type Step interface {
	// Name is a unique, stable identifier used in progress events, pause
	// registration, and logs.
	Name() string

	// RequiredKeys lists context keys that must already be present;
	// otherwise the runner fails the step with KindPreconditionFailed
	// before Execute is called.
	RequiredKeys() []string

	// DropsKeys lists context keys the runner removes once this step
	// completes successfully, freeing memory deterministically.
	DropsKeys() []string

	// Execute runs the step, returning the (possibly mutated) context.
	Execute(ctx context.Context, pctx *Context, progress ProgressSink) (*Context, error)
}

// ProgressEvent is emitted to the progress sink as a step runs.
type ProgressEvent struct {
	StepName string
	Current  int
	Total    int
	Message  string
}

// ProgressSink receives progress events from the currently executing step.
type ProgressSink func(ProgressEvent)

// NopProgressSink discards every event.
func NopProgressSink(ProgressEvent) {}

// PauseHandler is invoked after a named step completes and may return a
// mutated context (e.g. after human voice review).
type PauseHandler func(ctx context.Context, pctx *Context) (*Context, error)

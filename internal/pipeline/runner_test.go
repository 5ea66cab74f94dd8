package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textcast/orchestrator/pkg/types"
)

type fnStep struct {
	name     string
	required []string
	drops    []string
	run      func(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error)
}

func (s *fnStep) Name() string           { return s.name }
func (s *fnStep) RequiredKeys() []string { return s.required }
func (s *fnStep) DropsKeys() []string    { return s.drops }
func (s *fnStep) Execute(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
	return s.run(ctx, pctx, sink)
}

func TestRunner_ExecutesInOrderAndDropsKeys(t *testing.T) {
	var order []string
	r := NewRunner(nil)

	r.AddStep(&fnStep{
		name: "a",
		run: func(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
			order = append(order, "a")
			pctx.SetCharacters([]types.Character{})
			return pctx, nil
		},
	})
	r.AddStep(&fnStep{
		name:     "b",
		required: []string{KeyCharacters},
		drops:    []string{KeyCharacters},
		run: func(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
			order = append(order, "b")
			return pctx, nil
		},
	})

	pctx := &Context{}
	out, err := r.Run(context.Background(), pctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.False(t, out.Has(KeyCharacters))
}

func TestRunner_PreconditionFailed(t *testing.T) {
	r := NewRunner(nil)
	r.AddStep(&fnStep{
		name:     "needs-text",
		required: []string{KeyText},
		run: func(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
			return pctx, nil
		},
	})

	_, err := r.Run(context.Background(), &Context{})
	require.Error(t, err)
	var pe *Error
	require.True(t, asError(err, &pe))
	assert.Equal(t, KindPreconditionFailed, pe.Kind)
}

func TestRunner_CancellationBeforeStep(t *testing.T) {
	r := NewRunner(nil)
	ran := false
	r.AddStep(&fnStep{
		name: "never",
		run: func(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
			ran = true
			return pctx, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, &Context{})
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.False(t, ran)
}

func TestRunner_PauseHandlerMutatesContext(t *testing.T) {
	r := NewRunner(nil)
	r.AddStep(&fnStep{
		name: "step1",
		run: func(ctx context.Context, pctx *Context, sink ProgressSink) (*Context, error) {
			return pctx, nil
		},
	})
	r.RegisterPause("step1", func(ctx context.Context, pctx *Context) (*Context, error) {
		pctx.SavedFileCount = 42
		return pctx, nil
	})

	out, err := r.Run(context.Background(), &Context{})
	require.NoError(t, err)
	assert.Equal(t, 42, out.SavedFileCount)
}

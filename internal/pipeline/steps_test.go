package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textcast/orchestrator/pkg/types"
)

func TestSanitizeStep_DropsEmptyAndSymbolOnlySentences(t *testing.T) {
	pctx := &Context{}
	pctx.SetAssignments([]types.SpeakerAssignment{
		{SentenceIndex: 0, Text: "Hello there", Speaker: "narrator"},
		{SentenceIndex: 1, Text: "   ", Speaker: "narrator"},
		{SentenceIndex: 2, Text: "...", Speaker: "narrator"},
		{SentenceIndex: 3, Text: "42", Speaker: "narrator"},
	})

	step := &SanitizeStep{}
	out, err := step.Execute(context.Background(), pctx, NopProgressSink)
	require.NoError(t, err)
	require.Len(t, out.Assignments, 2)
	assert.Equal(t, 0, out.Assignments[0].SentenceIndex)
	assert.Equal(t, 3, out.Assignments[1].SentenceIndex)
}

func TestApplyDictionaryStep_RewritesText(t *testing.T) {
	pctx := &Context{}
	pctx.SetAssignments([]types.SpeakerAssignment{
		{SentenceIndex: 0, Text: "Dr. Smith arrived", Speaker: "narrator"},
	})

	step := &ApplyDictionaryStep{Rules: []DictionaryRule{{From: "Dr.", To: "Doctor"}}}
	out, err := step.Execute(context.Background(), pctx, NopProgressSink)
	require.NoError(t, err)
	assert.Equal(t, "Doctor Smith arrived", out.Assignments[0].Text)
}

func TestExtractCharactersStep_EmptyTextIsFatal(t *testing.T) {
	pctx := &Context{Text: "...   "}
	step := &ExtractCharactersStep{}
	_, err := step.Execute(context.Background(), pctx, NopProgressSink)
	require.Error(t, err)
	var pe *Error
	require.True(t, asError(err, &pe))
	assert.Equal(t, KindNoPronounceableContent, pe.Kind)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 50, clamp(10, 50, 500))
	assert.Equal(t, 500, clamp(10000, 50, 500))
	assert.Equal(t, 120, clamp(120, 50, 500))
}

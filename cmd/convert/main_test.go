package main

import (
	"testing"

	"github.com/textcast/orchestrator/pkg/types"
)

func TestCountSentences(t *testing.T) {
	cases := map[string]int{
		"":                      0,
		"Hello world.":          1,
		"Hi! How are you? Fine.": 3,
		"   ":                   0,
	}
	for text, want := range cases {
		if got := countSentences(text); got != want {
			t.Errorf("countSentences(%q) = %d, want %d", text, got, want)
		}
	}
}

func TestBuildTextAndBoundariesTracksSentenceOrdinals(t *testing.T) {
	chapters := []*types.Chapter{
		{Title: "One", Paragraphs: []string{"First sentence. Second sentence."}},
		{Title: "", Paragraphs: []string{"Third one."}},
	}

	text, fileNames := buildTextAndBoundaries(chapters)

	if len(fileNames) != 2 {
		t.Fatalf("expected 2 chapter boundaries, got %d", len(fileNames))
	}
	if fileNames[0].Name != "One" || fileNames[0].StartSentenceIndex != 0 {
		t.Fatalf("unexpected first boundary: %+v", fileNames[0])
	}
	if fileNames[1].Name != "chapter_002" {
		t.Fatalf("expected a generated name for an untitled chapter, got %q", fileNames[1].Name)
	}
	if fileNames[1].StartSentenceIndex != 2 {
		t.Fatalf("expected second chapter to start at sentence ordinal 2, got %d", fileNames[1].StartSentenceIndex)
	}
	if text == "" {
		t.Fatal("expected non-empty concatenated text")
	}
}

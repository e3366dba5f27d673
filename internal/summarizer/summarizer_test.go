package summarizer

import (
	"strings"
	"testing"

	"docqa/internal/domain"
)

func TestSummarize_PicksFrequentSentencesInOrder(t *testing.T) {
	text := "The pump needs oil every month. Weather was nice. " +
		"Check the pump oil level before starting the pump. Lunch is at noon."

	got := New().Summarize(text, 2)
	want := "The pump needs oil every month. Check the pump oil level before starting the pump."
	if got != want {
		t.Errorf("Summarize() = %q\nwant %q", got, want)
	}
}

func TestSummarize_NoPunctuation(t *testing.T) {
	if got := New().Summarize("  just a\nfragment ", 3); got != "just a fragment" {
		t.Errorf("Summarize() = %q", got)
	}
}

func TestSummarize_Apostrophes(t *testing.T) {
	got := New().Summarize("Don’t overfill the tank. It’s rated for ten litres.", 5)
	if !strings.Contains(got, "Don’t overfill") {
		t.Errorf("Summarize() = %q", got)
	}
}

func TestPreview_UsesChunkText(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "0_0", Text: "Service the pump yearly."},
		{ID: "1_0", Text: "The pump\nwarranty lasts two years."},
	}
	got := New().Preview(chunks, 5)
	if got != "Service the pump yearly. The pump warranty lasts two years." {
		t.Errorf("Preview() = %q", got)
	}
}

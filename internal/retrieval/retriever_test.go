package retrieval

import (
	"context"
	"strings"
	"testing"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

type stubCollection struct {
	results []domain.SearchResult
	asked   int
}

func (s *stubCollection) Name() string { return "stub" }
func (s *stubCollection) Add(context.Context, []domain.Chunk) error { return nil }
func (s *stubCollection) Count(context.Context) (int, error) { return len(s.results), nil }
func (s *stubCollection) Query(_ context.Context, _ string, n int) ([]domain.SearchResult, error) {
	s.asked = n
	// ignores n on purpose to check the retriever enforces the cap itself
	return s.results, nil
}

type stubSource struct{ c vectorstore.Collection }

func (s stubSource) Collection(context.Context) (vectorstore.Collection, error) { return s.c, nil }

func results(texts ...string) []domain.SearchResult {
	out := make([]domain.SearchResult, len(texts))
	for i, t := range texts {
		out[i] = domain.SearchResult{Chunk: domain.Chunk{Text: t}, Score: float64(len(texts) - i)}
	}
	return out
}

func TestQuery_JoinsAndStripsLineBreaks(t *testing.T) {
	c := &stubCollection{results: results("first\nline", "second\r\nchunk", "third")}
	got, err := New(stubSource{c}).Query(context.Background(), "q", DefaultTop)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if want := "first line second  chunk third"; got != want {
		t.Errorf("Query() = %q, want %q", got, want)
	}
	if strings.ContainsAny(got, "\r\n") {
		t.Errorf("line break left in %q", got)
	}
	if c.asked != DefaultTop {
		t.Errorf("asked collection for %d, want %d", c.asked, DefaultTop)
	}
}

func TestQuery_RespectsCap(t *testing.T) {
	c := &stubCollection{results: results("a1", "b2", "c3", "d4")}
	r := New(stubSource{c})
	for top := 0; top <= 5; top++ {
		got, _ := r.Query(context.Background(), "q", top)
		n := 0
		if got != "" {
			n = len(strings.Fields(got))
		}
		if n > top {
			t.Errorf("top=%d returned %d fragments: %q", top, n, got)
		}
	}
}

func TestQuery_EmptyCollection(t *testing.T) {
	got, err := New(stubSource{&stubCollection{}}).Query(context.Background(), "q", 10)
	if err != nil || got != "" {
		t.Errorf("Query() = %q, %v; want empty", got, err)
	}
}

package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/vectorstore/memory"
)

func docA() []domain.Chunk {
	return []domain.Chunk{
		{ID: "0_0", Text: "Pump maintenance every six months.", Title: "Service"},
		{ID: "0_1", Text: "Replace filters when the light blinks.", Title: "Service"},
	}
}

func docB() []domain.Chunk {
	return []domain.Chunk{{ID: "0_0", Text: "A completely different manual."}}
}

func newManager(t *testing.T, atomic bool) (*Manager, *memory.Storage) {
	t.Helper()
	store, err := memory.NewStorage(hashing.NewEmbedder(128), "")
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	return NewManager(store, Options{AtomicSwap: atomic}), store
}

func forBothModes(t *testing.T, fn func(t *testing.T, atomic bool)) {
	t.Run("atomic swap", func(t *testing.T) { fn(t, true) })
	t.Run("delete and recreate", func(t *testing.T) { fn(t, false) })
}

func TestIngest_ReingestDoesNotDuplicate(t *testing.T) {
	forBothModes(t, func(t *testing.T, atomic bool) {
		ctx := context.Background()
		m, store := newManager(t, atomic)
		for i := 0; i < 2; i++ {
			if err := m.Ingest(ctx, docA()); err != nil {
				t.Fatalf("Ingest #%d: %v", i+1, err)
			}
		}
		if n, _ := m.Count(ctx); n != len(docA()) {
			t.Errorf("Count() = %d, want %d", n, len(docA()))
		}
		names, _ := store.Collections(ctx)
		if len(names) != 1 || names[0] != DefaultCollection {
			t.Errorf("Collections() = %v", names)
		}
	})
}

func TestIngest_ReplacesPreviousDocument(t *testing.T) {
	forBothModes(t, func(t *testing.T, atomic bool) {
		ctx := context.Background()
		m, _ := newManager(t, atomic)
		m.Ingest(ctx, docA())
		if err := m.Ingest(ctx, docB()); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		c, _ := m.Collection(ctx)
		res, _ := c.Query(ctx, "pump maintenance", 10)
		if len(res) != 1 || res[0].Chunk.Text != "A completely different manual." {
			t.Errorf("results = %+v", res)
		}
	})
}

func TestIngest_ValidationKeepsExistingData(t *testing.T) {
	forBothModes(t, func(t *testing.T, atomic bool) {
		ctx := context.Background()
		m, _ := newManager(t, atomic)
		if err := m.Ingest(ctx, docA()); err != nil {
			t.Fatalf("Ingest: %v", err)
		}

		bad := [][]domain.Chunk{
			nil,
			{{ID: "", Text: "no id here"}},
			{{ID: "0_0", Text: "   "}},
			{{ID: "0_0", Text: "one"}, {ID: "0_0", Text: "two"}},
		}
		for _, chunks := range bad {
			err := m.Ingest(ctx, chunks)
			if !domain.IsValidation(err) {
				t.Fatalf("Ingest(%v) err = %v, want ValidationError", chunks, err)
			}
		}
		if n, _ := m.Count(ctx); n != len(docA()) {
			t.Errorf("Count() after rejected ingest = %d, want %d", n, len(docA()))
		}
	})
}

func TestIngest_DropsStaleStaging(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, true)
	stale := DefaultCollection + stagingMarker + "left-over"
	store.Collection(ctx, stale)

	if err := m.Ingest(ctx, docA()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	names, _ := store.Collections(ctx)
	for _, n := range names {
		if strings.Contains(n, stagingMarker) {
			t.Errorf("staging collection %q left behind", n)
		}
	}
}

func TestIngest_FailedFillLeavesLiveCollection(t *testing.T) {
	ctx := context.Background()
	store, _ := memory.NewStorage(failingEmbedder{hashing.NewEmbedder(64)}, "")
	m := NewManager(store, Options{AtomicSwap: true})
	if err := m.Ingest(ctx, docA()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	err := m.Ingest(ctx, []domain.Chunk{{ID: "0_0", Text: "boom goes the embedder"}})
	if err == nil || domain.IsValidation(err) {
		t.Fatalf("err = %v, want store error", err)
	}
	if n, _ := m.Count(ctx); n != len(docA()) {
		t.Errorf("Count() = %d after failed ingest", n)
	}
	names, _ := store.Collections(ctx)
	if len(names) != 1 {
		t.Errorf("Collections() = %v", names)
	}
}

type failingEmbedder struct{ *hashing.Embedder }

func (f failingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.HasPrefix(text, "boom") {
		return nil, errors.New("embedder down")
	}
	return f.Embedder.Embed(ctx, text)
}

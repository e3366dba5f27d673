package memory

import (
	"context"
	"testing"

	"docqa/internal/embedding/hashing"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/storetest"
)

func TestStorage_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) vectorstore.Store {
		s, err := NewStorage(hashing.NewEmbedder(256), "")
		if err != nil {
			t.Fatalf("NewStorage: %v", err)
		}
		return s
	})
}

func TestStorage_PersistedContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) vectorstore.Store {
		s, err := NewStorage(hashing.NewEmbedder(256), t.TempDir())
		if err != nil {
			t.Fatalf("NewStorage: %v", err)
		}
		return s
	})
}

func TestStorage_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStorage(hashing.NewEmbedder(256), dir)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	c, _ := s.Collection(ctx, "vector_db")
	if err := c.Add(ctx, storetest.Chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reopened, err := NewStorage(hashing.NewEmbedder(256), dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	c2, _ := reopened.Collection(ctx, "vector_db")
	if n, _ := c2.Count(ctx); n != len(storetest.Chunks) {
		t.Fatalf("Count() after restart = %d", n)
	}
	res, _ := c2.Query(ctx, "pump maintenance", 1)
	if len(res) != 1 || res[0].Chunk.ID != "0_0" {
		t.Errorf("query after restart = %+v", res)
	}
}

func TestStorage_RejectsOtherEmbedderSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewStorage(hashing.NewEmbedder(256), dir)
	s.Collection(ctx, "vector_db")

	if _, err := NewStorage(fakeEmbedder{}, dir); err == nil {
		t.Fatal("expected error loading snapshot built by a different embedder")
	}
}

func TestStorage_DuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage(hashing.NewEmbedder(64), "")
	c, _ := s.Collection(ctx, "docs")
	if err := c.Add(ctx, storetest.Chunks[:1]); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(ctx, storetest.Chunks[:1]); err == nil {
		t.Fatal("expected duplicate id error")
	}
	if n, _ := c.Count(ctx); n != 1 {
		t.Errorf("Count() = %d after rejected add", n)
	}
}

type fakeEmbedder struct{}

func (fakeEmbedder) Name() string   { return "fake" }
func (fakeEmbedder) Dimension() int { return 1 }
func (fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	return []float64{1}, nil
}

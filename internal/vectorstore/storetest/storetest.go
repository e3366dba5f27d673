// Package storetest holds behaviour checks shared by every vectorstore backend.
package storetest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Chunks is a small corpus whose first chunk is the best match for "pump maintenance".
var Chunks = []domain.Chunk{
	{ID: "0_0", Text: "Routine pump maintenance is required every six months.", Title: "Service", Page: 1},
	{ID: "0_1", Text: "The warranty covers the display panel for two years.", Title: "Warranty", Page: 1, Index: 1},
	{ID: "1_0", Text: "Install the unit on a level concrete surface.", Page: 2},
}

// Run exercises the Store contract against stores produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) vectorstore.Store) {
	ctx := context.Background()

	t.Run("get or create", func(t *testing.T) {
		s := newStore(t)
		c, err := s.Collection(ctx, "docs")
		if err != nil {
			t.Fatalf("Collection: %v", err)
		}
		if c.Name() != "docs" {
			t.Errorf("Name() = %q", c.Name())
		}
		names, err := s.Collections(ctx)
		if err != nil {
			t.Fatalf("Collections: %v", err)
		}
		if !slices.Contains(names, "docs") {
			t.Errorf("Collections() = %v, missing docs", names)
		}
		n, err := c.Count(ctx)
		if err != nil || n != 0 {
			t.Errorf("Count() = %d, %v; want 0", n, err)
		}
	})

	t.Run("add and query", func(t *testing.T) {
		s := newStore(t)
		c, _ := s.Collection(ctx, "docs")
		if err := c.Add(ctx, Chunks); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if n, _ := c.Count(ctx); n != len(Chunks) {
			t.Errorf("Count() = %d, want %d", n, len(Chunks))
		}
		res, err := c.Query(ctx, "pump maintenance", 2)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(res) == 0 || len(res) > 2 {
			t.Fatalf("got %d results, want 1..2", len(res))
		}
		top := res[0].Chunk
		if top.ID != "0_0" || top.Text != Chunks[0].Text || top.Title != "Service" {
			t.Errorf("top result = %+v", top)
		}
		if res, _ := c.Query(ctx, "pump", 0); len(res) != 0 {
			t.Errorf("n=0 returned %d results", len(res))
		}
	})

	t.Run("query without shared terms still fills n", func(t *testing.T) {
		s := newStore(t)
		c, _ := s.Collection(ctx, "docs")
		if err := c.Add(ctx, Chunks); err != nil {
			t.Fatalf("Add: %v", err)
		}
		for _, n := range []int{2, 10} {
			res, err := c.Query(ctx, "zebra quantum", n)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if want := min(n, len(Chunks)); len(res) != want {
				t.Errorf("n=%d: got %d results, want %d", n, len(res), want)
			}
		}
	})

	t.Run("query empty collection", func(t *testing.T) {
		s := newStore(t)
		c, _ := s.Collection(ctx, "empty")
		res, err := c.Query(ctx, "anything", 10)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(res) != 0 {
			t.Errorf("got %d results from empty collection", len(res))
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		c, _ := s.Collection(ctx, "docs")
		c.Add(ctx, Chunks[:1])
		if err := s.Delete(ctx, "docs"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		names, _ := s.Collections(ctx)
		if slices.Contains(names, "docs") {
			t.Errorf("docs still listed after delete: %v", names)
		}
		if err := s.Delete(ctx, "docs"); !errors.Is(err, domain.ErrCollectionNotFound) {
			t.Errorf("second Delete err = %v, want ErrCollectionNotFound", err)
		}
	})

	t.Run("promote replaces live collection", func(t *testing.T) {
		s := newStore(t)
		live, _ := s.Collection(ctx, "live")
		if err := live.Add(ctx, Chunks[1:]); err != nil {
			t.Fatalf("Add live: %v", err)
		}
		staging, _ := s.Collection(ctx, "live-next")
		if err := staging.Add(ctx, Chunks[:1]); err != nil {
			t.Fatalf("Add staging: %v", err)
		}

		if err := s.Promote(ctx, "live-next", "live"); err != nil {
			t.Fatalf("Promote: %v", err)
		}

		names, _ := s.Collections(ctx)
		if !slices.Contains(names, "live") || slices.Contains(names, "live-next") {
			t.Errorf("Collections() after promote = %v", names)
		}
		// handles taken before the swap see the new contents
		if n, _ := live.Count(ctx); n != 1 {
			t.Errorf("live Count() = %d, want 1", n)
		}
		c, _ := s.Collection(ctx, "live")
		res, err := c.Query(ctx, "warranty display", 5)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		for _, r := range res {
			if r.Chunk.ID != "0_0" {
				t.Errorf("old chunk %s survived promote", r.Chunk.ID)
			}
		}
		if err := s.Promote(ctx, "missing", "live"); !errors.Is(err, domain.ErrCollectionNotFound) {
			t.Errorf("Promote(missing) err = %v", err)
		}
	})
}

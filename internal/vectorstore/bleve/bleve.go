// Package bleve stores collections as on-disk bleve indexes, one directory
// per collection. Ranking is bleve's text scoring with the standard analyzer
// instead of vector similarity.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

const (
	indexSuffix  = ".bleve"
	backupSuffix = ".old"
	batchSize    = 100
)

// Storage keeps one bleve index per collection under root.
type Storage struct {
	root string

	mu   sync.RWMutex
	open map[string]bleve.Index
}

// document is the shape indexed for every chunk.
type document struct {
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
	Page  int    `json:"page"`
	Index int    `json:"index"`
}

// NewStorage creates the root directory if needed.
func NewStorage(root string) (*Storage, error) {
	if root == "" {
		return nil, errors.New("bleve store needs a root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create index root: %w", err)
	}
	return &Storage{root: root, open: make(map[string]bleve.Index)}, nil
}

func (s *Storage) path(name string) string {
	return filepath.Join(s.root, name+indexSuffix)
}

func (s *Storage) exists(name string) bool {
	info, err := os.Stat(s.path(name))
	return err == nil && info.IsDir()
}

func (s *Storage) Collections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasSuffix(e.Name(), indexSuffix) {
			names = append(names, strings.TrimSuffix(e.Name(), indexSuffix))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) Collection(_ context.Context, name string) (vectorstore.Collection, error) {
	if name == "" {
		return nil, errors.New("collection name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[name]; ok {
		return &handle{store: s, name: name}, nil
	}
	var (
		idx bleve.Index
		err error
	)
	if s.exists(name) {
		idx, err = bleve.Open(s.path(name))
	} else {
		idx, err = bleve.New(s.path(name), bleve.NewIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open index %q: %w", name, err)
	}
	s.open[name] = idx
	return &handle{store: s, name: name}, nil
}

func (s *Storage) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists(name) {
		return fmt.Errorf("delete %q: %w", name, domain.ErrCollectionNotFound)
	}
	s.closeLocked(name)
	if err := os.RemoveAll(s.path(name)); err != nil {
		return fmt.Errorf("remove index %q: %w", name, err)
	}
	return nil
}

// Promote renames the staging index directory over the live one. The old
// live index is moved aside first and restored if the new one cannot be put
// in place. Readers block on the store lock for the duration of the swap.
func (s *Storage) Promote(_ context.Context, staging, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists(staging) {
		return fmt.Errorf("promote %q: %w", staging, domain.ErrCollectionNotFound)
	}
	s.closeLocked(staging)
	s.closeLocked(name)

	live, backup := s.path(name), s.path(name)+backupSuffix
	if err := os.RemoveAll(backup); err != nil {
		return s.reopenLocked(name, fmt.Errorf("remove stale backup: %w", err))
	}
	hadLive := s.exists(name)
	if hadLive {
		if err := os.Rename(live, backup); err != nil {
			return s.reopenLocked(name, fmt.Errorf("move live index aside: %w", err))
		}
	}
	restore := func(cause error) error {
		if hadLive {
			os.RemoveAll(live)
			if err := os.Rename(backup, live); err != nil {
				return errors.Join(cause, fmt.Errorf("restore live index: %w", err))
			}
		}
		return s.reopenLocked(name, cause)
	}

	if err := os.Rename(s.path(staging), live); err != nil {
		return restore(fmt.Errorf("rename staging index: %w", err))
	}
	idx, err := bleve.Open(live)
	if err != nil {
		// put the staging directory back so the caller can drop it
		os.Rename(live, s.path(staging))
		return restore(fmt.Errorf("open promoted index: %w", err))
	}
	s.open[name] = idx
	if hadLive {
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("remove replaced index: %w", err)
		}
	}
	return nil
}

// reopenLocked reopens the live index after a failed swap and returns cause.
func (s *Storage) reopenLocked(name string, cause error) error {
	if !s.exists(name) {
		return cause
	}
	idx, err := bleve.Open(s.path(name))
	if err != nil {
		return errors.Join(cause, fmt.Errorf("reopen live index: %w", err))
	}
	s.open[name] = idx
	return cause
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, idx := range s.open {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
		delete(s.open, name)
	}
	return errors.Join(errs...)
}

func (s *Storage) closeLocked(name string) {
	if idx, ok := s.open[name]; ok {
		idx.Close()
		delete(s.open, name)
	}
}

type handle struct {
	store *Storage
	name  string
}

func (h *handle) Name() string { return h.name }

// withIndex runs fn against the live index for the handle's name while
// holding the read lock, so a concurrent Promote cannot close it underneath.
func (h *handle) withIndex(fn func(bleve.Index) error) error {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	idx, ok := h.store.open[h.name]
	if !ok {
		return fmt.Errorf("collection %q: %w", h.name, domain.ErrCollectionNotFound)
	}
	return fn(idx)
}

func (h *handle) Add(_ context.Context, chunks []domain.Chunk) error {
	return h.withIndex(func(idx bleve.Index) error {
		batch := idx.NewBatch()
		for i, ch := range chunks {
			doc := document{Text: ch.Text, Title: ch.Title, Page: ch.Page, Index: ch.Index}
			if err := batch.Index(ch.ID, doc); err != nil {
				return fmt.Errorf("batch chunk %s: %w", ch.ID, err)
			}
			if (i+1)%batchSize == 0 {
				if err := idx.Batch(batch); err != nil {
					return fmt.Errorf("index batch: %w", err)
				}
				batch = idx.NewBatch()
			}
		}
		if batch.Size() > 0 {
			if err := idx.Batch(batch); err != nil {
				return fmt.Errorf("index final batch: %w", err)
			}
		}
		return nil
	})
}

func (h *handle) Query(ctx context.Context, text string, n int) ([]domain.SearchResult, error) {
	if n <= 0 {
		return nil, nil
	}
	var results []domain.SearchResult
	err := h.withIndex(func(idx bleve.Index) error {
		match := bleve.NewMatchQuery(text)
		match.SetField("text")
		// Matching chunks rank first; the rest pad the result up to n.
		q := bleve.NewDisjunctionQuery(match, bleve.NewMatchAllQuery())
		req := bleve.NewSearchRequest(q)
		req.Size = n
		req.Fields = []string{"text", "title", "page", "index"}

		res, err := idx.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		results = make([]domain.SearchResult, 0, len(res.Hits))
		for _, hit := range res.Hits {
			chunk := domain.Chunk{ID: hit.ID}
			if v, ok := hit.Fields["text"].(string); ok {
				chunk.Text = v
			}
			if v, ok := hit.Fields["title"].(string); ok {
				chunk.Title = v
			}
			if v, ok := hit.Fields["page"].(float64); ok {
				chunk.Page = int(v)
			}
			if v, ok := hit.Fields["index"].(float64); ok {
				chunk.Index = int(v)
			}
			results = append(results, domain.SearchResult{Chunk: chunk, Score: hit.Score})
		}
		return nil
	})
	return results, err
}

func (h *handle) Count(_ context.Context) (int, error) {
	var n uint64
	err := h.withIndex(func(idx bleve.Index) error {
		var err error
		n, err = idx.DocCount()
		return err
	})
	return int(n), err
}

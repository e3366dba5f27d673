package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/vectorstore"
)

// Storage is an in-process vector store using brute-force cosine similarity.
// When dataDir is set, every collection is snapshotted to <dataDir>/<name>.json
// so it survives restarts.
type Storage struct {
	mu          sync.RWMutex
	embedder    embedding.Embedder
	dataDir     string
	collections map[string]*collection
}

type collection struct {
	Name      string         `json:"name"`
	Embedder  string         `json:"embedder"`
	Chunks    []domain.Chunk `json:"chunks"`
	Vectors   [][]float64    `json:"vectors"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewStorage creates a store bound to one embedding function. A non-empty
// dataDir enables snapshots and loads any that already exist.
func NewStorage(emb embedding.Embedder, dataDir string) (*Storage, error) {
	s := &Storage{
		embedder:    emb,
		dataDir:     dataDir,
		collections: make(map[string]*collection),
	}
	if dataDir == "" {
		return s, nil
	}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) Collections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
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
	if _, ok := s.collections[name]; !ok {
		c := &collection{Name: name, Embedder: s.embedder.Name(), UpdatedAt: time.Now()}
		if err := s.saveLocked(c); err != nil {
			return nil, err
		}
		s.collections[name] = c
	}
	return &handle{store: s, name: name}, nil
}

func (s *Storage) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("delete %q: %w", name, domain.ErrCollectionNotFound)
	}
	delete(s.collections, name)
	return s.removeLocked(name)
}

func (s *Storage) Promote(_ context.Context, staging, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[staging]
	if !ok {
		return fmt.Errorf("promote %q: %w", staging, domain.ErrCollectionNotFound)
	}
	c.Name = name
	c.UpdatedAt = time.Now()
	if err := s.saveLocked(c); err != nil {
		c.Name = staging
		return err
	}
	delete(s.collections, staging)
	s.collections[name] = c
	return s.removeLocked(staging)
}

func (s *Storage) Close() error { return nil }

// handle resolves its collection by name on every call, so a Promote is
// visible to handles obtained before it.
type handle struct {
	store *Storage
	name  string
}

func (h *handle) Name() string { return h.name }

func (h *handle) Add(ctx context.Context, chunks []domain.Chunk) error {
	vectors := make([][]float64, len(chunks))
	for i, ch := range chunks {
		vec, err := h.store.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", ch.ID, err)
		}
		vectors[i] = vec
	}

	s := h.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[h.name]
	if !ok {
		return fmt.Errorf("add to %q: %w", h.name, domain.ErrCollectionNotFound)
	}
	seen := make(map[string]struct{}, len(c.Chunks)+len(chunks))
	for _, ch := range c.Chunks {
		seen[ch.ID] = struct{}{}
	}
	for _, ch := range chunks {
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("add to %q: duplicate id %s", h.name, ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	c.Chunks = append(c.Chunks, chunks...)
	c.Vectors = append(c.Vectors, vectors...)
	c.UpdatedAt = time.Now()
	return s.saveLocked(c)
}

func (h *handle) Query(ctx context.Context, text string, n int) ([]domain.SearchResult, error) {
	if n <= 0 {
		return nil, nil
	}
	vec, err := h.store.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s := h.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[h.name]
	if !ok {
		return nil, fmt.Errorf("query %q: %w", h.name, domain.ErrCollectionNotFound)
	}
	results := make([]domain.SearchResult, len(c.Chunks))
	for i := range c.Chunks {
		results[i] = domain.SearchResult{Chunk: c.Chunks[i], Score: cosineSimilarity(vec, c.Vectors[i])}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if n < len(results) {
		results = results[:n]
	}
	return results, nil
}

func (h *handle) Count(_ context.Context) (int, error) {
	s := h.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[h.name]
	if !ok {
		return 0, fmt.Errorf("count %q: %w", h.name, domain.ErrCollectionNotFound)
	}
	return len(c.Chunks), nil
}

func (s *Storage) loadFromDisk() error {
	entries, err := os.ReadDir(s.dataDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read data dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dataDir, e.Name()))
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		var c collection
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("decode snapshot %s: %w", e.Name(), err)
		}
		if c.Embedder != s.embedder.Name() {
			return fmt.Errorf("snapshot %s was built with embedder %q, configured %q", e.Name(), c.Embedder, s.embedder.Name())
		}
		s.collections[c.Name] = &c
	}
	return nil
}

// saveLocked writes the snapshot through a temp file and rename.
func (s *Storage) saveLocked(c *collection) error {
	if s.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal collection: %w", err)
	}
	path := s.snapshotPath(c.Name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (s *Storage) removeLocked(name string) error {
	if s.dataDir == "" {
		return nil
	}
	if err := os.Remove(s.snapshotPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

func (s *Storage) snapshotPath(name string) string {
	return filepath.Join(s.dataDir, name+".json")
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

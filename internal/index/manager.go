// Package index owns the lifecycle of the document collection.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "vector_db"

const stagingMarker = "-staging-"

// Options configures a Manager.
type Options struct {
	Name string
	// AtomicSwap builds the new collection under a staging name and promotes
	// it in one step. When false the live collection is deleted and rebuilt
	// in place, leaving a window where queries see it missing or partial.
	AtomicSwap bool
	Logger     *slog.Logger
}

// Manager replaces the collection wholesale on every ingestion.
type Manager struct {
	store      vectorstore.Store
	name       string
	atomicSwap bool
	log        *slog.Logger
}

func NewManager(store vectorstore.Store, opts Options) *Manager {
	if opts.Name == "" {
		opts.Name = DefaultCollection
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		store:      store,
		name:       opts.Name,
		atomicSwap: opts.AtomicSwap,
		log:        log.With("collection", opts.Name),
	}
}

// Name returns the live collection name.
func (m *Manager) Name() string { return m.name }

// Collection returns the live collection, creating it on first use.
func (m *Manager) Collection(ctx context.Context) (vectorstore.Collection, error) {
	return m.store.Collection(ctx, m.name)
}

// Count returns the number of chunks in the live collection.
func (m *Manager) Count(ctx context.Context) (int, error) {
	c, err := m.Collection(ctx)
	if err != nil {
		return 0, err
	}
	return c.Count(ctx)
}

// Ingest replaces the live collection with chunks. Input is validated before
// anything is deleted, so a rejected ingestion leaves the old data untouched.
func (m *Manager) Ingest(ctx context.Context, chunks []domain.Chunk) error {
	if err := validate(chunks); err != nil {
		return err
	}
	start := time.Now()
	var err error
	if m.atomicSwap {
		err = m.swapIn(ctx, chunks)
	} else {
		err = m.replaceInPlace(ctx, chunks)
	}
	if err != nil {
		return err
	}
	m.log.Info("collection replaced",
		"chunks", len(chunks),
		"atomic", m.atomicSwap,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (m *Manager) swapIn(ctx context.Context, chunks []domain.Chunk) error {
	m.dropStaleStaging(ctx)

	staging := m.name + stagingMarker + uuid.NewString()
	c, err := m.store.Collection(ctx, staging)
	if err != nil {
		return fmt.Errorf("create staging collection: %w", err)
	}
	if err := c.Add(ctx, chunks); err != nil {
		if derr := m.store.Delete(context.WithoutCancel(ctx), staging); derr != nil {
			m.log.Warn("failed to drop staging collection", "staging", staging, "error", derr)
		}
		return fmt.Errorf("fill staging collection: %w", err)
	}
	if err := m.store.Promote(ctx, staging, m.name); err != nil {
		return fmt.Errorf("promote staging collection: %w", err)
	}
	return nil
}

func (m *Manager) replaceInPlace(ctx context.Context, chunks []domain.Chunk) error {
	names, err := m.store.Collections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if slices.Contains(names, m.name) {
		if err := m.store.Delete(ctx, m.name); err != nil && !errors.Is(err, domain.ErrCollectionNotFound) {
			return fmt.Errorf("delete collection: %w", err)
		}
		m.log.Info("collection deleted")
	}
	c, err := m.store.Collection(ctx, m.name)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	if err := c.Add(ctx, chunks); err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	return nil
}

// dropStaleStaging removes staging collections left behind by an interrupted ingestion.
func (m *Manager) dropStaleStaging(ctx context.Context) {
	names, err := m.store.Collections(ctx)
	if err != nil {
		m.log.Warn("cannot list collections", "error", err)
		return
	}
	for _, name := range names {
		if !strings.HasPrefix(name, m.name+stagingMarker) {
			continue
		}
		if err := m.store.Delete(ctx, name); err != nil {
			m.log.Warn("failed to drop stale staging collection", "staging", name, "error", err)
			continue
		}
		m.log.Info("dropped stale staging collection", "staging", name)
	}
}

func validate(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return &domain.ValidationError{Reason: "no chunks generated; check document processing"}
	}
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if c.ID == "" {
			return &domain.ValidationError{Reason: "chunk with empty identifier"}
		}
		if strings.TrimSpace(c.Text) == "" {
			return &domain.ValidationError{Reason: fmt.Sprintf("chunk %s has no text", c.ID)}
		}
		if _, dup := seen[c.ID]; dup {
			return &domain.ValidationError{Reason: fmt.Sprintf("duplicate chunk identifier %s", c.ID)}
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

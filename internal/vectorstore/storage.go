package vectorstore

import (
	"context"

	"docqa/internal/domain"
)

// Store owns named collections of indexed chunks.
type Store interface {
	// Collections lists the names of the live collections.
	Collections(ctx context.Context) ([]string, error)
	// Collection returns the named collection, creating it when absent.
	Collection(ctx context.Context, name string) (Collection, error)
	// Delete drops a collection and its data. Missing collections yield
	// domain.ErrCollectionNotFound.
	Delete(ctx context.Context, name string) error
	// Promote makes the staging collection visible under name, replacing
	// whatever was there, in one step as seen by readers of name.
	Promote(ctx context.Context, staging, name string) error
	Close() error
}

// Collection is one named partition of a store.
type Collection interface {
	Name() string
	Add(ctx context.Context, chunks []domain.Chunk) error
	// Query returns at most n chunks ordered by descending relevance.
	Query(ctx context.Context, text string, n int) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
}

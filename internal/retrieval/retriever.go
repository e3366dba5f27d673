// Package retrieval turns a question into a context string for the model.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// DefaultTop is the number of chunks joined into a context by default.
const DefaultTop = 10

// CollectionSource yields the collection to query. It is resolved on every
// query so a re-ingestion is picked up without rebuilding the retriever.
type CollectionSource interface {
	Collection(ctx context.Context) (vectorstore.Collection, error)
}

// Retriever fetches the top ranked chunks for a query.
type Retriever struct {
	source CollectionSource
}

func New(source CollectionSource) *Retriever {
	return &Retriever{source: source}
}

// Search returns up to top ranked chunks, best first.
func (r *Retriever) Search(ctx context.Context, text string, top int) ([]domain.SearchResult, error) {
	if top <= 0 {
		return nil, nil
	}
	c, err := r.source.Collection(ctx)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	res, err := c.Query(ctx, text, top)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	if len(res) > top {
		res = res[:top]
	}
	return res, nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Query joins the text of the top ranked chunks with single spaces and
// replaces line breaks with spaces. It returns "" when nothing matches.
func (r *Retriever) Query(ctx context.Context, text string, top int) (string, error) {
	res, err := r.Search(ctx, text, top)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(res))
	for i, hit := range res {
		parts[i] = hit.Chunk.Text
	}
	return lineBreaks.Replace(strings.Join(parts, " ")), nil
}

package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// A collection is bound to one embedder for its whole life.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

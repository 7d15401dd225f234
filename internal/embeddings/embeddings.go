package embeddings

import (
	"context"
	"errors"
)

// ErrUpstream wraps failures of the embedding service and malformed responses.
var ErrUpstream = errors.New("embedding service failed")

// Vector is a simple float32 slice wrapper.
type Vector []float32

// Embedder defines the embedding interface. Vectors are returned one per
// input, in input order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([]Vector, error)
}

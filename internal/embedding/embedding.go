// Package embedding turns text into fixed-length vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable wraps every failure to obtain embeddings from a model.
// Callers treat it as fatal for the run.
var ErrUnavailable = errors.New("embedding model unavailable")

// Embedder converts texts to vectors. The result has one vector per input,
// in input order, and every vector has the same dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// checkShape verifies the same-order, same-dimension contract.
func checkShape(texts []string, vecs [][]float32) error {
	if len(vecs) != len(texts) {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrUnavailable, len(vecs), len(texts))
	}
	dim := -1
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at index %d", ErrUnavailable, i)
		}
		if dim == -1 {
			dim = len(v)
		} else if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrUnavailable, i, len(v), dim)
		}
	}
	return nil
}

package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimension is the vector size used when none is configured.
const DefaultHashDimension = 256

// HashEmbedder is a model-free embedder that hashes lower-cased word tokens
// into a fixed number of buckets and L2-normalises the counts. Texts that
// share words end up close together, which is enough to cluster titles
// when no embedding server is configured.
type HashEmbedder struct {
	Dimension int
}

// Model returns a name that identifies the hashing scheme.
func (h HashEmbedder) Model() string { return "feature-hash" }

func (h HashEmbedder) dim() int {
	if h.Dimension <= 0 {
		return DefaultHashDimension
	}
	return h.Dimension
}

// Embed never fails except on a canceled context.
func (h HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim := h.dim()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.vector(text, dim)
	}
	return out, nil
}

func (h HashEmbedder) vector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, tok := range tokens {
		f := fnv.New32a()
		f.Write([]byte(tok))
		sum := f.Sum32()
		sign := float32(1)
		if sum&(1<<31) != 0 {
			sign = -1
		}
		vec[int(sum%uint32(dim))] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// keep empty titles at a fixed non-zero point so they still cluster
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

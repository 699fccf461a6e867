package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
)

// Mock is a deterministic in-process provider: the same text always maps
// to the same unit vector. Useful for tests and local runs without a key.
type Mock struct {
	dims int
}

func NewMock(dimensions int) *Mock {
	return &Mock{dims: dimensions}
}

func (m *Mock) Dimensions() int { return m.dims }

func (m *Mock) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.embed(text)
	}

	return vectors, nil
}

func (m *Mock) embed(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))

	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, m.dims)

	var norm float64

	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
		norm += float64(vec[i]) * float64(vec[i])
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}

	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec
}

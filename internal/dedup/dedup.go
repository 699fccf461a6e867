// Package dedup performs embedding-based duplicate detection against a
// window of previously published items.
package dedup

import (
	"math"

	"github.com/rs/zerolog"
)

// Deduplicator checks candidate embeddings against reference embeddings.
// It holds no state beyond the threshold; the caller supplies the
// reference window.
type Deduplicator struct {
	threshold float32
	logger    *zerolog.Logger
}

func New(threshold float32, logger *zerolog.Logger) *Deduplicator {
	return &Deduplicator{threshold: threshold, logger: logger}
}

// IsDuplicate reports whether the candidate is a near-duplicate of any
// reference vector, short-circuiting on the first hit. The second return
// is the index of the matching reference, or -1. A zero-norm candidate is
// never a duplicate.
func (d *Deduplicator) IsDuplicate(candidate []float32, refs [][]float32) (bool, int) {
	if norm(candidate) == 0 {
		d.logger.Warn().Msg("zero-norm candidate embedding, skipping duplicate check")

		return false, -1
	}

	for i, ref := range refs {
		if CosineSimilarity(candidate, ref) >= d.threshold {
			return true, i
		}
	}

	return false, -1
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or zero vectors yield 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func norm(v []float32) float64 {
	var n float64
	for _, x := range v {
		n += float64(x) * float64(x)
	}

	return n
}

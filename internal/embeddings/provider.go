// Package embeddings produces vector embeddings for message texts. The
// OpenAI provider batches requests and degrades behind a circuit breaker;
// the mock provider serves tests and local runs without an API key.
package embeddings

import "context"

// Provider computes embeddings for a batch of texts. Implementations must
// return one vector per input text, in input order.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

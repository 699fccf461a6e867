package embeddings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
	"github.com/sellerhub/news-curator/internal/platform/observability"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
	requestTimeout          = 30 * time.Second
	rateLimitBurst          = 5
)

type openAIProvider struct {
	client      *openai.Client
	model       openai.EmbeddingModel
	dimensions  int
	batchSize   int
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

// NewOpenAI builds the production provider. batchSize caps how many texts
// go into a single API request.
func NewOpenAI(apiKey, model string, dimensions, batchSize, rps int, logger *zerolog.Logger) Provider {
	return &openAIProvider{
		client:      openai.NewClient(apiKey),
		model:       openai.EmbeddingModel(model),
		dimensions:  dimensions,
		batchSize:   batchSize,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rps)), rateLimitBurst),
	}
}

func (p *openAIProvider) Dimensions() int { return p.dimensions }

func (p *openAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))

	for _, batch := range splitBatches(texts, p.batchSize) {
		batchVectors, err := p.embed(ctx, batch)
		if err != nil {
			return nil, &curerrors.EmbeddingFailure{BatchSize: len(batch), Err: err}
		}

		vectors = append(vectors, batchVectors...)
	}

	return vectors, nil
}

func (p *openAIProvider) embed(ctx context.Context, batch []string) ([][]float32, error) {
	if err := p.checkCircuit(); err != nil {
		return nil, err
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	start := time.Now()

	resp, err := p.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Input: batch,
		Model: p.model,
	})

	observability.EmbeddingRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		p.recordFailure()
		observability.EmbeddingRequests.WithLabelValues("error").Inc()

		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) != len(batch) {
		p.recordFailure()
		observability.EmbeddingRequests.WithLabelValues("error").Inc()

		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", curerrors.ErrInvalidInput, len(resp.Data), len(batch))
	}

	p.recordSuccess()
	observability.EmbeddingRequests.WithLabelValues("ok").Inc()

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}

	return vectors, nil
}

func (p *openAIProvider) checkCircuit() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Now().Before(p.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", curerrors.ErrCircuitBreakerOpen, p.circuitOpenUntil)
	}

	return nil
}

func (p *openAIProvider) recordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveFailures = 0
}

func (p *openAIProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.consecutiveFailures++
	if p.consecutiveFailures >= circuitBreakerThreshold {
		p.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		p.logger.Warn().
			Int("consecutive_failures", p.consecutiveFailures).
			Time("open_until", p.circuitOpenUntil).
			Msg("embedding circuit breaker opened")
	}
}

func splitBatches(texts []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}

	batches := make([][]string, 0, (len(texts)+size-1)/size)

	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}

		batches = append(batches, texts[start:end])
	}

	return batches
}

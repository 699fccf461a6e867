package selection

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

// Transport sends one prompt to the selection model and returns the raw
// reply text. Implementations own auth, rate limiting and throttling.
type Transport interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
	rateLimitBurst          = 5
	completionTemperature   = 0.2
)

type openAITransport struct {
	client      *openai.Client
	model       string
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

// NewOpenAITransport builds the production chat-completion transport.
func NewOpenAITransport(apiKey, model string, rps int, logger *zerolog.Logger) Transport {
	return &openAITransport{
		client:      openai.NewClient(apiKey),
		model:       model,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rps)), rateLimitBurst),
	}
}

func (t *openAITransport) Complete(ctx context.Context, prompt string) (string, error) {
	if err := t.checkCircuit(); err != nil {
		return "", err
	}

	if err := t.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: completionTemperature,
	})

	observability.SelectionRequestDuration.WithLabelValues(t.model).Observe(time.Since(start).Seconds())

	if err != nil {
		t.recordFailure()

		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		t.recordFailure()

		return "", curerrors.ErrEmptyResponse
	}

	t.recordSuccess()

	return resp.Choices[0].Message.Content, nil
}

func (t *openAITransport) checkCircuit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Now().Before(t.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", curerrors.ErrCircuitBreakerOpen, t.circuitOpenUntil)
	}

	return nil
}

func (t *openAITransport) recordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures = 0
}

func (t *openAITransport) recordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.consecutiveFailures++
	if t.consecutiveFailures >= circuitBreakerThreshold {
		t.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		t.logger.Warn().
			Int("consecutive_failures", t.consecutiveFailures).
			Time("open_until", t.circuitOpenUntil).
			Msg("selection circuit breaker opened")
	}
}

// Package selection asks an LLM to pick the top news per category. Large
// candidate sets are chunked; each chunk request is retried with jittered
// exponential backoff and degrades to an empty result on exhaustion.
package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sellerhub/news-curator/internal/core/domain"
	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
	"github.com/sellerhub/news-curator/internal/platform/observability"
)

const (
	defaultChunkSize      = 50
	defaultRequestTimeout = 60 * time.Second

	maxAttempts      = 3
	retryBaseDelay   = 2 * time.Second
	retryMaxDelay    = 10 * time.Second
	retryMultiplier  = 2
	minScore         = 1
	maxScore         = 10
	titleFallbackLen = 80
	descFallbackLen  = 200

	logFieldChunk   = "chunk"
	logFieldAttempt = "attempt"
)

// Client selects top news from candidate messages.
type Client struct {
	transport      Transport
	chunkSize      int
	requestTimeout time.Duration
	retryBase      time.Duration
	retryMax       time.Duration
	logger         *zerolog.Logger
}

func New(transport Transport, chunkSize int, requestTimeout time.Duration, logger *zerolog.Logger) *Client {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return &Client{
		transport:      transport,
		chunkSize:      chunkSize,
		requestTimeout: requestTimeout,
		retryBase:      retryBaseDelay,
		retryMax:       retryMaxDelay,
		logger:         logger,
	}
}

type llmItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Score       int    `json:"score"`
	Reason      string `json:"reason,omitempty"`
}

// SelectTopNews runs selection over all candidates for one category and
// returns at most category.TopN items, ordered by score descending and
// arrival ascending on ties. A chunk that keeps failing after retries
// contributes nothing instead of failing the category.
func (c *Client) SelectTopNews(ctx context.Context, candidates []domain.Message, category domain.Category) ([]domain.SelectedItem, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	byID := make(map[string]*domain.Message, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	merged := make(map[string]domain.SelectedItem)

	for chunkIdx, chunk := range chunkMessages(candidates, c.chunkSize) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("selection canceled: %w", err)
		}

		items, err := c.selectChunk(ctx, chunk, chunkIdx, category, byID)
		if err != nil {
			// Fail-open: log and move on, the chunk yields nothing.
			c.logger.Error().Err(err).
				Str("category", category.Name).
				Int(logFieldChunk, chunkIdx).
				Int("candidates", len(chunk)).
				Msg("selection chunk failed, degrading to empty")
			observability.SelectionChunksFailed.Inc()

			continue
		}

		for _, item := range items {
			if prev, ok := merged[item.MessageID]; ok && prev.Score >= item.Score {
				continue
			}

			merged[item.MessageID] = item
		}
	}

	result := make([]domain.SelectedItem, 0, len(merged))
	for _, item := range merged {
		result = append(result, item)
	}

	domain.SortSelected(result)

	if category.TopN > 0 && len(result) > category.TopN {
		result = result[:category.TopN]
	}

	return result, nil
}

// selectChunk issues one chunk request with bounded retries.
func (c *Client) selectChunk(ctx context.Context, chunk []domain.Message, chunkIdx int, category domain.Category, byID map[string]*domain.Message) ([]domain.SelectedItem, error) {
	prompt := buildPrompt(category, chunk)

	var lastErr error

	delay := c.retryBase

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			observability.SelectionRetries.Inc()

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("retry interrupted: %w", ctx.Err())
			case <-time.After(jitter(delay)):
				delay *= retryMultiplier
				if delay > c.retryMax {
					delay = c.retryMax
				}
			}
		}

		start := time.Now()

		reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		raw, err := c.transport.Complete(reqCtx, prompt)

		cancel()

		if err != nil {
			lastErr = err
			c.logger.Warn().Err(err).
				Str("category", category.Name).
				Int(logFieldChunk, chunkIdx).
				Int(logFieldAttempt, attempt).
				Dur("elapsed", time.Since(start)).
				Msg("selection request failed")

			continue
		}

		items, err := c.parseReply(raw, chunkIdx, category, byID)
		if err != nil {
			lastErr = err
			c.logger.Warn().Err(err).
				Str("category", category.Name).
				Int(logFieldChunk, chunkIdx).
				Int(logFieldAttempt, attempt).
				Msg("selection reply unparseable")

			continue
		}

		return items, nil
	}

	return nil, lastErr
}

// parseReply validates the model payload against the input chunk. Items
// referencing unknown ids or carrying out-of-range scores are dropped
// individually; only an unparseable payload is an error.
func (c *Client) parseReply(raw string, chunkIdx int, category domain.Category, byID map[string]*domain.Message) ([]domain.SelectedItem, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, &curerrors.SelectionSchemaError{Chunk: chunkIdx, Raw: raw, Err: err}
	}

	var items []llmItem

	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		// Some models wrap the array in an object.
		var wrapped struct {
			Items []llmItem `json:"items"`
		}
		if err2 := json.Unmarshal([]byte(payload), &wrapped); err2 != nil {
			return nil, &curerrors.SelectionSchemaError{Chunk: chunkIdx, Raw: raw, Err: err}
		}

		items = wrapped.Items
	}

	selected := make([]domain.SelectedItem, 0, len(items))

	for _, item := range items {
		msg, ok := byID[item.ID]
		if !ok {
			c.logger.Warn().
				Str("category", category.Name).
				Str("id", item.ID).
				Msg("selection returned unknown candidate id, dropping")

			continue
		}

		if item.Score < minScore || item.Score > maxScore {
			c.logger.Warn().
				Str("category", category.Name).
				Str("id", item.ID).
				Int("score", item.Score).
				Msg("selection returned out-of-range score, dropping")

			continue
		}

		selected = append(selected, domain.SelectedItem{
			MessageID:   msg.ID,
			Title:       fallback(item.Title, msg.Text, titleFallbackLen),
			Description: fallback(item.Description, msg.Text, descFallbackLen),
			Score:       item.Score,
			Reason:      item.Reason,
			SourceLink:  msg.SourceLink(),
			ReceivedAt:  msg.ReceivedAt,
		})
	}

	return selected, nil
}

// fallback substitutes a truncated first line of the message text when the
// model omits a field.
func fallback(value, text string, limit int) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}

	if line, _, found := strings.Cut(text, "\n"); found {
		text = line
	}

	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}

	return text
}

func chunkMessages(msgs []domain.Message, size int) [][]domain.Message {
	chunks := make([][]domain.Message, 0, (len(msgs)+size-1)/size)

	for start := 0; start < len(msgs); start += size {
		end := start + size
		if end > len(msgs) {
			end = len(msgs)
		}

		chunks = append(chunks, msgs[start:end])
	}

	return chunks
}

// jitter spreads a delay across [d/2, 3d/2) so concurrent retries do not
// align.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	return d/2 + time.Duration(rand.Int63n(int64(d)))
}

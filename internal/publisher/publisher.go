// Package publisher posts approved digests to their category channels and
// records published items with their embeddings for future deduplication.
package publisher

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/sellerhub/news-curator/internal/core/domain"
	"github.com/sellerhub/news-curator/internal/platform/observability"
)

// Sender is the Bot API surface the publisher needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Store persists published items.
type Store interface {
	SavePublished(ctx context.Context, item *domain.PublishedItem) error
}

type Publisher struct {
	bot           Sender
	store         Store
	previewChatID int64
	notifyChatID  int64
	logger        *zerolog.Logger
}

func New(bot Sender, store Store, previewChatID, notifyChatID int64, logger *zerolog.Logger) *Publisher {
	return &Publisher{
		bot:           bot,
		store:         store,
		previewChatID: previewChatID,
		notifyChatID:  notifyChatID,
		logger:        logger,
	}
}

// Publish sends the digest to the category target channel and saves each
// item with its embedding. A send failure is fatal for the category; a
// save failure after a successful send is logged but not raised, since the
// digest is already public and a retry would double-post.
func (p *Publisher) Publish(ctx context.Context, category domain.Category, items []domain.SelectedItem, embeddings map[string][]float32) error {
	if len(items) == 0 {
		return nil
	}

	text := FormatDigest(category, items, time.Now())

	if err := p.send(category.TargetChatID, text); err != nil {
		observability.DigestsPublished.WithLabelValues(category.Name, "error").Inc()

		return fmt.Errorf("publish digest for %s: %w", category.Name, err)
	}

	observability.DigestsPublished.WithLabelValues(category.Name, "ok").Inc()

	if p.previewChatID != 0 {
		if err := p.send(p.previewChatID, text); err != nil {
			p.logger.Warn().Err(err).Str("category", category.Name).Msg("failed to send digest preview")
		}
	}

	if p.notifyChatID != 0 {
		notice := fmt.Sprintf("Дайджест %q опубликован: %d новостей.", category.DisplayName, len(items))
		if err := p.send(p.notifyChatID, notice); err != nil {
			p.logger.Warn().Err(err).Str("category", category.Name).Msg("failed to send publish notification")
		}
	}

	now := time.Now()

	for _, item := range items {
		published := &domain.PublishedItem{
			MessageID:   item.MessageID,
			Category:    category.Name,
			Title:       item.Title,
			Description: item.Description,
			Score:       item.Score,
			SourceLink:  item.SourceLink,
			Embedding:   embeddings[item.MessageID],
			PublishedAt: now,
		}

		if err := p.store.SavePublished(ctx, published); err != nil {
			// The digest is out; a missing row only weakens future dedup.
			p.logger.Error().Err(err).
				Str("category", category.Name).
				Str("message_id", item.MessageID).
				Msg("failed to save published item")
		}
	}

	p.logger.Info().
		Str("category", category.Name).
		Int("items", len(items)).
		Msg("digest published")

	return nil
}

func (p *Publisher) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	_, err := p.bot.Send(msg)

	return err
}

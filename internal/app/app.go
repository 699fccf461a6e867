// Package app wires the curator's components together and exposes the
// run modes the binary supports: listener, process and cleanup.
package app

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/sellerhub/news-curator/internal/config"
	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
	"github.com/sellerhub/news-curator/internal/dedup"
	"github.com/sellerhub/news-curator/internal/embeddings"
	"github.com/sellerhub/news-curator/internal/listener"
	"github.com/sellerhub/news-curator/internal/moderation"
	"github.com/sellerhub/news-curator/internal/pipeline"
	"github.com/sellerhub/news-curator/internal/platform/observability"
	"github.com/sellerhub/news-curator/internal/platform/worker"
	"github.com/sellerhub/news-curator/internal/publisher"
	"github.com/sellerhub/news-curator/internal/selection"
	"github.com/sellerhub/news-curator/internal/storage"
)

// App holds the wired components for one process.
type App struct {
	cfg      *config.Config
	db       *storage.DB
	pipeline *pipeline.Pipeline
	listener *listener.Listener
	logger   *zerolog.Logger
}

// New builds the application from configuration. The categories file is
// loaded once here; changing it requires a restart.
func New(cfg *config.Config, db *storage.DB, logger *zerolog.Logger) (*App, error) {
	categories, err := config.LoadCategories(cfg.CategoriesPath)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("init bot api: %w", err)
	}

	embedder := embeddings.NewOpenAI(
		cfg.LLMAPIKey, cfg.EmbeddingModel,
		cfg.EmbeddingDimensions, cfg.EmbeddingBatchSize, cfg.RateLimitRPS,
		logger,
	)

	selector := selection.New(
		selection.NewOpenAITransport(cfg.LLMAPIKey, cfg.LLMModel, cfg.RateLimitRPS, logger),
		cfg.LLMChunkSize, cfg.LLMRequestTimeout,
		logger,
	)

	gate := moderation.NewGate(
		moderation.NewTelegramTransport(bot),
		cfg.ModeratorChatID, cfg.ModerationPollInterval,
		logger,
	)

	pub := publisher.New(bot, db, cfg.PreviewChatID, cfg.NotifyChatID, logger)

	pipe := pipeline.New(
		db, embedder, selector, gate, pub,
		dedup.New(cfg.DuplicateThreshold, logger),
		categories,
		pipeline.Settings{
			UnprocessedWindow:   cfg.UnprocessedWindow,
			PublishedWindowDays: cfg.PublishedWindowDays,
			ModerationTimeout:   cfg.ModerationTimeout,
		},
		logger,
	)

	return &App{
		cfg:      cfg,
		db:       db,
		pipeline: pipe,
		listener: listener.New(cfg, db, logger),
		logger:   logger,
	}, nil
}

// RunListener ingests channel posts until the context is canceled.
func (a *App) RunListener(ctx context.Context) error {
	return a.listener.Run(ctx)
}

// RunProcess executes curation runs. With once set it runs a single cycle
// and returns; otherwise it ticks at the configured interval, starting
// immediately.
func (a *App) RunProcess(ctx context.Context, once bool) error {
	if once {
		return a.pipeline.Run(ctx)
	}

	return worker.TickerLoop(ctx, worker.TickerConfig{
		Name:       "curation",
		Interval:   a.cfg.ProcessInterval,
		RunOnStart: true,
		Logger:     a.logger,
		OnTick: func(ctx context.Context) {
			defer worker.RecoverPanic(a.logger, "curation run")

			err := a.pipeline.Run(ctx)

			switch {
			case err == nil:
			case errors.Is(err, curerrors.ErrRunLockHeld):
				// Another replica is mid-run; the next tick will try again.
			case errors.Is(err, context.Canceled):
			default:
				a.logger.Error().Err(err).Msg("curation run failed")
			}
		},
	})
}

// RunCleanup deletes rows past their retention windows.
func (a *App) RunCleanup(ctx context.Context) error {
	raw, published, err := a.db.CleanupOldData(ctx, a.cfg.RawRetentionDays, a.cfg.PublishedRetentionDays)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	a.logger.Info().
		Int64("raw_deleted", raw).
		Int64("published_deleted", published).
		Msg("cleanup finished")

	return nil
}

// StartHealthServer runs the health and metrics endpoint until the
// context is canceled.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.db, a.cfg.HealthPort, a.logger).Start(ctx)
}

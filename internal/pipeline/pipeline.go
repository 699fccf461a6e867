// Package pipeline orchestrates one curation run: fetch unprocessed
// messages, partition them into categories by keywords, drop duplicates
// against recently published items, ask the model for the top picks, pass
// the proposal through moderation, publish what survives and record a
// disposition for every considered message.
//
// Dispositions are staged in memory during the run and committed in one
// batch at the end, so a mid-run crash leaves messages unprocessed (or
// errored) and they simply retry on the next run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sellerhub/news-curator/internal/core/domain"
	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
	"github.com/sellerhub/news-curator/internal/dedup"
	"github.com/sellerhub/news-curator/internal/moderation"
	"github.com/sellerhub/news-curator/internal/platform/observability"
)

// Repository is the persistence surface the pipeline needs.
type Repository interface {
	FetchUnprocessed(ctx context.Context, since time.Time) ([]domain.Message, error)
	FetchRecentEmbeddings(ctx context.Context, category string, windowDays int) ([][]float32, error)
	MarkDisposition(ctx context.Context, messageID string, disposition domain.Disposition, detail string) error
	TryAcquireRunLock(ctx context.Context) (bool, error)
	ReleaseRunLock(ctx context.Context) error
}

// Embedder produces embedding vectors for message texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Selector picks the top news items for a category.
type Selector interface {
	SelectTopNews(ctx context.Context, candidates []domain.Message, category domain.Category) ([]domain.SelectedItem, error)
}

// Moderator runs the human review step for a category proposal.
type Moderator interface {
	Open(ctx context.Context, category domain.Category, proposal []domain.SelectedItem, timeout time.Duration) (*domain.ModerationSession, error)
	Await(ctx context.Context, category domain.Category, session *domain.ModerationSession) (moderation.Resolution, error)
}

// Publisher posts approved items and persists them with their embeddings.
type Publisher interface {
	Publish(ctx context.Context, category domain.Category, items []domain.SelectedItem, embeddings map[string][]float32) error
}

// Settings are the run-shaping knobs taken from configuration.
type Settings struct {
	UnprocessedWindow   time.Duration
	PublishedWindowDays int
	ModerationTimeout   time.Duration
}

// Pipeline wires the curation stages together.
type Pipeline struct {
	repo       Repository
	embedder   Embedder
	selector   Selector
	moderator  Moderator
	publisher  Publisher
	dedup      *dedup.Deduplicator
	categories []domain.Category
	settings   Settings
	logger     *zerolog.Logger
}

func New(
	repo Repository,
	embedder Embedder,
	selector Selector,
	moderator Moderator,
	publisher Publisher,
	deduplicator *dedup.Deduplicator,
	categories []domain.Category,
	settings Settings,
	logger *zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		repo:       repo,
		embedder:   embedder,
		selector:   selector,
		moderator:  moderator,
		publisher:  publisher,
		dedup:      deduplicator,
		categories: categories,
		settings:   settings,
		logger:     logger,
	}
}

// mark is one staged disposition, committed at the end of the run.
type mark struct {
	messageID   string
	disposition domain.Disposition
	detail      string
}

// runState accumulates per-run bookkeeping. Embeddings of items published
// earlier in the same run join the duplicate reference set for later
// categories, so the same story cannot be published twice in one run.
type runState struct {
	marks    []mark
	staged   map[string]int
	runCache [][]float32
}

func newRunState() *runState {
	return &runState{staged: make(map[string]int)}
}

// stage records the disposition for a message. Each message is staged at
// most once per run; a second stage for the same id is a bug and is
// dropped with an error log by the caller.
func (s *runState) stage(messageID string, disposition domain.Disposition, detail string) bool {
	if _, ok := s.staged[messageID]; ok {
		return false
	}

	s.staged[messageID] = len(s.marks)
	s.marks = append(s.marks, mark{messageID: messageID, disposition: disposition, detail: detail})

	return true
}

// Run executes one curation cycle. It is single-flight across processes:
// a second concurrent run fails fast with ErrRunLockHeld.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	runID := uuid.New().String()
	logger := p.logger.With().Str("run_id", runID).Logger()

	acquired, err := p.repo.TryAcquireRunLock(ctx)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}

	if !acquired {
		logger.Warn().Msg("another curation run is in progress, skipping")

		return curerrors.ErrRunLockHeld
	}

	defer func() {
		if err := p.repo.ReleaseRunLock(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to release run lock")
		}

		observability.RunDuration.Observe(time.Since(start).Seconds())
	}()

	since := start.Add(-p.settings.UnprocessedWindow)

	messages, err := p.repo.FetchUnprocessed(ctx, since)
	if err != nil {
		return fmt.Errorf("fetch unprocessed messages: %w", err)
	}

	logger.Info().Int("messages", len(messages)).Time("since", since).Msg("curation run started")

	state := newRunState()
	buckets := p.partition(messages, state, &logger)

	for _, category := range p.categories {
		if !category.Enabled {
			continue
		}

		candidates := buckets[category.Name]
		if len(candidates) == 0 {
			continue
		}

		// Cancellation is honored between categories, never inside one:
		// a category that reached moderation deserves a consistent outcome.
		if ctx.Err() != nil {
			p.stageAll(state, candidates, domain.DispositionErrored, detailInterrupted, &logger)

			continue
		}

		p.processCategory(ctx, category, candidates, state, &logger)
	}

	failed := p.commit(ctx, state, &logger)
	p.logSummary(state, len(messages), failed, &logger)

	if ctx.Err() != nil {
		return fmt.Errorf("curation run interrupted: %w", ctx.Err())
	}

	return nil
}

// partition assigns each message to the first category whose include
// keywords match, in configuration order. Messages matching no category,
// or tripping an exclude keyword of their category, are rejected here.
func (p *Pipeline) partition(messages []domain.Message, state *runState, logger *zerolog.Logger) map[string][]domain.Message {
	filters := make([]*keywordFilter, len(p.categories))
	for i, category := range p.categories {
		filters[i] = newKeywordFilter(category)
	}

	buckets := make(map[string][]domain.Message)

	for _, msg := range messages {
		assigned := false

		for i, category := range p.categories {
			if !category.Enabled {
				continue
			}

			included, excluded := filters[i].match(msg.Text)
			if !included {
				continue
			}

			assigned = true

			if excluded {
				p.stageOne(state, msg.ID, domain.DispositionRejectedKeywords, detailExcludeKeyword, logger)
			} else {
				buckets[category.Name] = append(buckets[category.Name], msg)
			}

			break
		}

		if !assigned {
			p.stageOne(state, msg.ID, domain.DispositionRejectedKeywords, detailNoCategory, logger)
		}
	}

	return buckets
}

func (p *Pipeline) processCategory(ctx context.Context, category domain.Category, candidates []domain.Message, state *runState, logger *zerolog.Logger) {
	catLogger := logger.With().Str("category", category.Name).Logger()
	catLogger.Info().Int("candidates", len(candidates)).Msg("processing category")

	texts := make([]string, len(candidates))
	for i, msg := range candidates {
		texts[i] = msg.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		catLogger.Error().Err(err).Msg("embedding failed, deferring candidates to next run")
		p.stageAll(state, candidates, domain.DispositionErrored, detailEmbeddingFailed, &catLogger)

		return
	}

	refs, err := p.repo.FetchRecentEmbeddings(ctx, category.Name, p.settings.PublishedWindowDays)
	if err != nil {
		catLogger.Error().Err(err).Msg("failed to load published embeddings, deferring candidates")
		p.stageAll(state, candidates, domain.DispositionErrored, detailEmbeddingFailed, &catLogger)

		return
	}

	refs = append(refs, state.runCache...)

	embeddings := make(map[string][]float32, len(candidates))
	survivors := make([]domain.Message, 0, len(candidates))

	for i, msg := range candidates {
		embeddings[msg.ID] = vectors[i]

		if dup, _ := p.dedup.IsDuplicate(vectors[i], refs); dup {
			p.stageOne(state, msg.ID, domain.DispositionRejectedDuplicate, detailDuplicate, &catLogger)

			continue
		}

		survivors = append(survivors, msg)
	}

	if len(survivors) == 0 {
		return
	}

	selected, err := p.selector.SelectTopNews(ctx, survivors, category)
	if err != nil {
		catLogger.Error().Err(err).Msg("selection failed, deferring candidates")
		p.stageAll(state, survivors, domain.DispositionErrored, detailSelectionFailed, &catLogger)

		return
	}

	selectedIDs := make(map[string]bool, len(selected))
	for _, item := range selected {
		selectedIDs[item.MessageID] = true
	}

	for _, msg := range survivors {
		if !selectedIDs[msg.ID] {
			p.stageOne(state, msg.ID, domain.DispositionRejectedLLM, detailNotSelected, &catLogger)
		}
	}

	if len(selected) == 0 {
		return
	}

	approved, ok := p.moderate(ctx, category, selected, state, &catLogger)
	if !ok {
		return
	}

	if len(approved) == 0 {
		return
	}

	if err := p.publisher.Publish(ctx, category, approved, embeddings); err != nil {
		catLogger.Error().Err(err).Msg("publication failed, deferring approved items")
		p.stageItems(state, approved, domain.DispositionErrored, detailPublishFailed, &catLogger)

		return
	}

	p.stageItems(state, approved, domain.DispositionPublished, "", &catLogger)

	for _, item := range approved {
		if vec := embeddings[item.MessageID]; len(vec) > 0 {
			state.runCache = append(state.runCache, vec)
		}
	}
}

// moderate runs the review round. The second return value is false when
// the category must be abandoned (concurrent session or cancellation);
// the selected items are then deferred to the next run.
func (p *Pipeline) moderate(ctx context.Context, category domain.Category, selected []domain.SelectedItem, state *runState, logger *zerolog.Logger) ([]domain.SelectedItem, bool) {
	session, err := p.moderator.Open(ctx, category, selected, p.settings.ModerationTimeout)
	if err != nil {
		var concurrent *curerrors.ConcurrentModerationError
		if errors.As(err, &concurrent) {
			logger.Warn().Str("pending_session_id", concurrent.SessionID).Msg("moderation busy, deferring category")
			p.stageItems(state, selected, domain.DispositionErrored, detailModerationBusy, logger)

			return nil, false
		}

		logger.Error().Err(err).Msg("failed to open moderation session, deferring category")
		p.stageItems(state, selected, domain.DispositionErrored, detailModerationBusy, logger)

		return nil, false
	}

	resolution, err := p.moderator.Await(ctx, category, session)
	if err != nil {
		logger.Warn().Err(err).Msg("moderation interrupted, deferring selected items")
		p.stageItems(state, selected, domain.DispositionErrored, detailInterrupted, logger)

		return nil, false
	}

	approvedIDs := make(map[string]bool, len(resolution.Approved))
	for _, item := range resolution.Approved {
		approvedIDs[item.MessageID] = true
	}

	for _, item := range selected {
		if !approvedIDs[item.MessageID] {
			p.stageOne(state, item.MessageID, domain.DispositionRejectedModeration, detailModeratorReject, logger)
		}
	}

	return resolution.Approved, true
}

func (p *Pipeline) stageOne(state *runState, messageID string, disposition domain.Disposition, detail string, logger *zerolog.Logger) {
	if !state.stage(messageID, disposition, detail) {
		logger.Error().
			Str("message_id", messageID).
			Str("disposition", string(disposition)).
			Msg("message already staged this run, dropping second disposition")
	}
}

func (p *Pipeline) stageAll(state *runState, messages []domain.Message, disposition domain.Disposition, detail string, logger *zerolog.Logger) {
	for _, msg := range messages {
		p.stageOne(state, msg.ID, disposition, detail, logger)
	}
}

func (p *Pipeline) stageItems(state *runState, items []domain.SelectedItem, disposition domain.Disposition, detail string, logger *zerolog.Logger) {
	for _, item := range items {
		p.stageOne(state, item.MessageID, disposition, detail, logger)
	}
}

// commit writes the staged dispositions. Each mark gets a few retries with
// backoff; conflicts and missing rows are not retried. Returns the ids
// that could not be committed.
func (p *Pipeline) commit(ctx context.Context, state *runState, logger *zerolog.Logger) []string {
	if len(state.marks) == 0 {
		return nil
	}

	commitCtx := ctx

	if ctx.Err() != nil {
		// Canceled runs still flush their bookkeeping on a short grace
		// window so finished work is not redone next run.
		var cancel context.CancelFunc

		commitCtx, cancel = context.WithTimeout(context.Background(), commitTimeout)
		defer cancel()
	}

	var failed []string

	for _, m := range state.marks {
		if err := p.markWithRetry(commitCtx, m); err != nil {
			observability.DispositionCommitFailures.Inc()
			logger.Error().Err(err).
				Str("message_id", m.messageID).
				Str("disposition", string(m.disposition)).
				Msg("failed to commit disposition")

			failed = append(failed, m.messageID)

			continue
		}

		observability.MessagesProcessed.WithLabelValues(string(m.disposition)).Inc()
	}

	return failed
}

func (p *Pipeline) markWithRetry(ctx context.Context, m mark) error {
	delay := commitBaseDelay

	var err error

	for attempt := 1; attempt <= commitMaxAttempts; attempt++ {
		err = p.repo.MarkDisposition(ctx, m.messageID, m.disposition, m.detail)
		if err == nil {
			return nil
		}

		if !retryableMarkError(err) {
			return err
		}

		if attempt == commitMaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("disposition commit interrupted: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
	}

	return err
}

func retryableMarkError(err error) bool {
	switch {
	case errors.Is(err, curerrors.ErrDispositionConflict),
		errors.Is(err, curerrors.ErrMessageNotFound),
		errors.Is(err, curerrors.ErrInvalidDisposition):
		return false
	default:
		return true
	}
}

func (p *Pipeline) logSummary(state *runState, considered int, failed []string, logger *zerolog.Logger) {
	counts := make(map[domain.Disposition]int)
	for _, m := range state.marks {
		counts[m.disposition]++
	}

	event := logger.Info().
		Int("considered", considered).
		Int("published", counts[domain.DispositionPublished]).
		Int("rejected_duplicate", counts[domain.DispositionRejectedDuplicate]).
		Int("rejected_keywords", counts[domain.DispositionRejectedKeywords]).
		Int("rejected_llm", counts[domain.DispositionRejectedLLM]).
		Int("rejected_moderation", counts[domain.DispositionRejectedModeration]).
		Int("errored", counts[domain.DispositionErrored]).
		Int("commit_failures", len(failed))

	if len(failed) > 0 {
		event = event.Strs("failed_message_ids", failed)
	}

	event.Msg("curation run finished")
}

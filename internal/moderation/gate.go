// Package moderation runs the human review step between selection and
// publication. One pending session is allowed per category; unanswered
// sessions time out and auto-approve. Sessions live in memory only — a
// restart abandons them and the affected messages retry on the next run.
package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sellerhub/news-curator/internal/core/domain"
	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
	"github.com/sellerhub/news-curator/internal/platform/observability"
)

// Reply is one moderator message observed after the proposal was sent.
type Reply struct {
	MessageID int
	Text      string
}

// Transport is the messaging surface the gate talks through.
type Transport interface {
	// SendProposal delivers the proposal text and returns its message id,
	// used as the cursor for reply polling.
	SendProposal(ctx context.Context, chatID int64, text string) (int, error)
	// FetchReplies returns moderator messages in chatID newer than
	// afterMessageID, oldest first.
	FetchReplies(ctx context.Context, chatID int64, afterMessageID int) ([]Reply, error)
	// Send delivers an informational message (hints, confirmations).
	Send(ctx context.Context, chatID int64, text string) error
}

// Resolution is the final outcome of a session.
type Resolution struct {
	Status   domain.SessionStatus
	Approved []domain.SelectedItem
}

// Gate opens and resolves moderation sessions.
type Gate struct {
	transport    Transport
	chatID       int64
	pollInterval time.Duration
	logger       *zerolog.Logger

	mu      sync.Mutex
	pending map[string]*domain.ModerationSession
}

func NewGate(transport Transport, chatID int64, pollInterval time.Duration, logger *zerolog.Logger) *Gate {
	return &Gate{
		transport:    transport,
		chatID:       chatID,
		pollInterval: pollInterval,
		logger:       logger,
		pending:      make(map[string]*domain.ModerationSession),
	}
}

// Open starts a session for the category proposal. It fails with
// ConcurrentModerationError while another session for the category is
// pending. If the proposal cannot be delivered the gate fails open: the
// session resolves as timed out immediately and publication proceeds.
func (g *Gate) Open(ctx context.Context, category domain.Category, proposal []domain.SelectedItem, timeout time.Duration) (*domain.ModerationSession, error) {
	if len(proposal) == 0 {
		return nil, fmt.Errorf("%w: empty proposal", curerrors.ErrInvalidInput)
	}

	g.mu.Lock()

	if existing, ok := g.pending[category.Name]; ok {
		g.mu.Unlock()

		return nil, &curerrors.ConcurrentModerationError{Category: category.Name, SessionID: existing.ID}
	}

	now := time.Now()
	session := &domain.ModerationSession{
		ID:       uuid.New().String(),
		Category: category.Name,
		Items:    proposal,
		Status:   domain.SessionPending,
		OpenedAt: now,
		Deadline: now.Add(timeout),
	}
	g.pending[category.Name] = session
	g.mu.Unlock()

	text := formatProposal(category, proposal, timeout.String())

	msgID, err := g.transport.SendProposal(ctx, g.chatID, text)
	if err != nil {
		// Fail-open: a broken moderation channel must not block publication.
		g.logger.Error().Err(err).
			Str("category", category.Name).
			Str("session_id", session.ID).
			Msg("failed to deliver moderation proposal, auto-approving")
		g.resolve(session, domain.SessionTimedOut)

		return session, nil
	}

	session.ProposalMessageID = msgID

	g.logger.Info().
		Str("category", category.Name).
		Str("session_id", session.ID).
		Int("items", len(proposal)).
		Time("deadline", session.Deadline).
		Msg("moderation session opened")

	return session, nil
}

// Await blocks until the session resolves: by moderator reply, timeout, or
// context cancellation. Timeout auto-approves the whole proposal.
func (g *Gate) Await(ctx context.Context, category domain.Category, session *domain.ModerationSession) (Resolution, error) {
	if session.Status.Resolved() {
		return g.resolutionFor(session), nil
	}

	cursor := session.ProposalMessageID

	for {
		if time.Now().After(session.Deadline) {
			g.resolve(session, domain.SessionTimedOut)
			g.notify(ctx, timeoutMessage)
			g.logger.Warn().
				Str("category", session.Category).
				Str("session_id", session.ID).
				Msg("moderation timed out, auto-approving")

			return g.resolutionFor(session), nil
		}

		select {
		case <-ctx.Done():
			g.abandon(session)

			return Resolution{}, fmt.Errorf("moderation interrupted: %w", ctx.Err())
		case <-time.After(g.pollInterval):
		}

		replies, err := g.transport.FetchReplies(ctx, g.chatID, cursor)
		if err != nil {
			g.logger.Warn().Err(err).
				Str("session_id", session.ID).
				Msg("failed to fetch moderator replies")

			continue
		}

		for _, reply := range replies {
			if reply.MessageID > cursor {
				cursor = reply.MessageID
			}

			if resolution, done := g.applyReply(ctx, category, session, reply.Text); done {
				return resolution, nil
			}
		}
	}
}

// applyReply interprets one reply. Invalid replies produce a hint and the
// session stays pending.
func (g *Gate) applyReply(ctx context.Context, category domain.Category, session *domain.ModerationSession, text string) (Resolution, bool) {
	verdict, excluded := ParseReply(text, len(session.Items))

	var resolution Resolution

	switch verdict {
	case VerdictApproveAll:
		g.resolve(session, domain.SessionApprovedAll)

		resolution = Resolution{Status: session.Status, Approved: session.Items}
	case VerdictRejectAll:
		g.resolve(session, domain.SessionRejectedAll)

		resolution = Resolution{Status: session.Status}
	case VerdictExclude:
		g.resolve(session, domain.SessionApprovedSubset)

		resolution = Resolution{Status: session.Status, Approved: withoutExcluded(session.Items, excluded)}
	default:
		g.notify(ctx, hintMessage)

		return Resolution{}, false
	}

	g.notify(ctx, formatResolution(category, session.Status, len(resolution.Approved), len(session.Items)))
	g.logger.Info().
		Str("category", session.Category).
		Str("session_id", session.ID).
		Str("status", string(session.Status)).
		Int("approved", len(resolution.Approved)).
		Msg("moderation session resolved")

	return resolution, true
}

// withoutExcluded drops the 1-based excluded indices, preserving proposal
// order for the rest.
func withoutExcluded(items []domain.SelectedItem, excluded []int) []domain.SelectedItem {
	drop := make(map[int]bool, len(excluded))
	for _, idx := range excluded {
		drop[idx-1] = true
	}

	approved := make([]domain.SelectedItem, 0, len(items))

	for i, item := range items {
		if !drop[i] {
			approved = append(approved, item)
		}
	}

	return approved
}

func (g *Gate) resolutionFor(session *domain.ModerationSession) Resolution {
	switch session.Status {
	case domain.SessionApprovedAll, domain.SessionTimedOut:
		return Resolution{Status: session.Status, Approved: session.Items}
	default:
		return Resolution{Status: session.Status}
	}
}

func (g *Gate) resolve(session *domain.ModerationSession, status domain.SessionStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()

	session.Status = status
	session.ResolvedAt = time.Now()
	delete(g.pending, session.Category)

	observability.ModerationSessions.WithLabelValues(string(status)).Inc()
}

// abandon drops a pending session without resolving it, e.g. when the run
// is canceled mid-wait.
func (g *Gate) abandon(session *domain.ModerationSession) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.pending, session.Category)
}

func (g *Gate) notify(ctx context.Context, text string) {
	if text == "" {
		return
	}

	if err := g.transport.Send(ctx, g.chatID, text); err != nil {
		g.logger.Warn().Err(err).Msg("failed to send moderation notice")
	}
}

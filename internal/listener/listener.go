// Package listener ingests posts from tracked Telegram channels over
// MTProto and stores them as unprocessed messages. It is a thin capture
// layer: no filtering, no embedding, no selection happens here.
package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"github.com/sellerhub/news-curator/internal/config"
	"github.com/sellerhub/news-curator/internal/core/domain"
	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
	"github.com/sellerhub/news-curator/internal/platform/observability"
	"github.com/sellerhub/news-curator/internal/storage"
)

const (
	emptyChannelsSleep = 30 * time.Second
	listErrorSleep     = 10 * time.Second
	floodWaitType      = "FLOOD_WAIT"
)

// Store is the persistence surface the listener needs.
type Store interface {
	ListEnabledChannels(ctx context.Context) ([]storage.Channel, error)
	UpsertChannel(ctx context.Context, ch *storage.Channel) error
	UpdateChannelCursor(ctx context.Context, id string, lastTGMessageID int64) error
	SaveRawMessage(ctx context.Context, msg *domain.Message) error
}

// Listener polls tracked channels for new posts.
type Listener struct {
	cfg    *config.Config
	store  Store
	logger *zerolog.Logger

	client *telegram.Client
}

func New(cfg *config.Config, store Store, logger *zerolog.Logger) *Listener {
	return &Listener{cfg: cfg, store: store, logger: logger}
}

// Run authenticates as a user account and polls channels until the
// context is canceled. The MTProto session persists on disk, so the
// interactive code prompt only happens on first start.
func (l *Listener) Run(ctx context.Context) error {
	if l.cfg.TGAPIID == 0 || l.cfg.TGAPIHash == "" {
		return fmt.Errorf("%w: TG_API_ID and TG_API_HASH are required for the listener", curerrors.ErrInvalidInput)
	}

	client := telegram.NewClient(l.cfg.TGAPIID, l.cfg.TGAPIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{
			Path: l.cfg.TGSessionPath,
		},
	})

	l.client = client

	return client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, l.authFlow()); err != nil {
			return fmt.Errorf("telegram auth: %w", err)
		}

		l.logger.Info().Msg("authenticated as user")

		return l.poll(ctx)
	})
}

func (l *Listener) poll(ctx context.Context) error {
	api := tg.NewClient(l.client)

	for { //nolint:wsl
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		channels, err := l.store.ListEnabledChannels(ctx)
		if err != nil {
			l.logger.Error().Err(err).Msg("failed to list channels")

			if err := sleep(ctx, listErrorSleep); err != nil {
				return err
			}

			continue
		}

		if len(channels) == 0 {
			l.logger.Info().Msg("no enabled channels, waiting")

			if err := sleep(ctx, emptyChannelsSleep); err != nil {
				return err
			}

			continue
		}

		start := time.Now()
		cycleTotal := 0

		for i := range channels {
			count, err := l.fetchChannel(ctx, api, &channels[i])
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				l.logger.Error().Err(err).
					Str("channel", channels[i].Username).
					Msg("failed to fetch channel")

				continue
			}

			cycleTotal += count
		}

		l.logger.Info().
			Int("channels", len(channels)).
			Int("messages", cycleTotal).
			Dur("took", time.Since(start)).
			Msg("ingestion cycle finished")

		if err := sleep(ctx, l.cfg.ListenerPollInterval); err != nil {
			return err
		}
	}
}

// fetchChannel pulls posts newer than the stored cursor for one channel
// and returns how many new messages were saved.
func (l *Listener) fetchChannel(ctx context.Context, api *tg.Client, ch *storage.Channel) (int, error) {
	peer, err := l.resolvePeer(ctx, api, ch)
	if err != nil {
		return 0, err
	}

	limit := l.cfg.ListenerFetchLimit

	req := &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: limit,
	}

	if ch.LastTGMessageID > 0 {
		req.OffsetID = int(ch.LastTGMessageID)
		req.AddOffset = -limit
	}

	history, err := api.MessagesGetHistory(ctx, req)
	if err != nil {
		floodErr, ok := tgerr.As(err)
		if ok && floodErr.Type == floodWaitType {
			l.logger.Warn().
				Int("seconds", floodErr.Argument).
				Str("channel", ch.Username).
				Msg("flood wait")

			if err := sleep(ctx, time.Duration(floodErr.Argument)*time.Second); err != nil {
				return 0, err
			}

			return 0, nil
		}

		return 0, fmt.Errorf("get history: %w", err)
	}

	messages := historyMessages(history)
	if messages == nil {
		return 0, nil
	}

	count := 0
	maxID := ch.LastTGMessageID

	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}

		if int64(msg.ID) > maxID {
			maxID = int64(msg.ID)
		}

		if int64(msg.ID) <= ch.LastTGMessageID || msg.Message == "" {
			continue
		}

		raw := domain.Message{
			ChannelID:   ch.ID,
			TGMessageID: int64(msg.ID),
			Text:        msg.Message,
			ReceivedAt:  time.Unix(int64(msg.Date), 0).UTC(),
		}

		if err := l.store.SaveRawMessage(ctx, &raw); err != nil {
			l.logger.Error().Err(err).
				Str("channel", ch.Username).
				Int("tg_message_id", msg.ID).
				Msg("failed to save message")

			continue
		}

		observability.MessagesIngested.WithLabelValues(ch.Username).Inc()

		count++
	}

	if maxID > ch.LastTGMessageID {
		if err := l.store.UpdateChannelCursor(ctx, ch.ID, maxID); err != nil {
			return count, fmt.Errorf("advance cursor: %w", err)
		}

		ch.LastTGMessageID = maxID
	}

	return count, nil
}

// resolvePeer returns the input peer for a channel, resolving the
// username once and caching peer id and access hash in the database.
func (l *Listener) resolvePeer(ctx context.Context, api *tg.Client, ch *storage.Channel) (tg.InputPeerClass, error) {
	if ch.TGPeerID != 0 && ch.AccessHash != 0 {
		return &tg.InputPeerChannel{ChannelID: ch.TGPeerID, AccessHash: ch.AccessHash}, nil
	}

	if ch.Username == "" {
		return nil, fmt.Errorf("%w: channel %s has no username and no cached peer", curerrors.ErrChannelNotFound, ch.ID)
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: ch.Username})
	if err != nil {
		return nil, fmt.Errorf("resolve username %s: %w", ch.Username, err)
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("%w: %s", curerrors.ErrChannelNotFound, ch.Username)
	}

	channel, ok := resolved.Chats[0].(*tg.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a channel", curerrors.ErrChannelNotFound, ch.Username)
	}

	ch.TGPeerID = channel.ID
	ch.AccessHash = channel.AccessHash
	ch.Title = channel.Title

	if err := l.store.UpsertChannel(ctx, ch); err != nil {
		l.logger.Error().Err(err).Str("username", ch.Username).Msg("failed to cache resolved peer")
	}

	l.logger.Info().
		Str("username", ch.Username).
		Int64("peer_id", ch.TGPeerID).
		Msg("resolved channel peer")

	return &tg.InputPeerChannel{ChannelID: ch.TGPeerID, AccessHash: ch.AccessHash}, nil
}

func historyMessages(history tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := history.(type) {
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	case *tg.MessagesChannelMessages:
		return h.Messages
	default:
		return nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sellerhub/news-curator/internal/core/domain"
	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
)

// SaveRawMessage stores an ingested channel post with the unprocessed
// disposition. Re-ingesting the same (channel, tg_message_id) is a no-op.
func (db *DB) SaveRawMessage(ctx context.Context, msg *domain.Message) error {
	const query = `
		INSERT INTO messages (channel_id, tg_message_id, text, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id, tg_message_id) DO NOTHING
		RETURNING id`

	row := db.Pool.QueryRow(ctx, query,
		toUUID(msg.ChannelID), msg.TGMessageID, msg.Text, toTimestamptz(msg.ReceivedAt))

	var id string

	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already stored.
		return nil
	}

	if err != nil {
		return fmt.Errorf("save raw message: %w", err)
	}

	msg.ID = id
	msg.Disposition = domain.DispositionUnprocessed

	return nil
}

// FetchUnprocessed returns candidate messages received since the cutoff.
// Errored messages re-enter the candidate set; terminal ones never do.
func (db *DB) FetchUnprocessed(ctx context.Context, since time.Time) ([]domain.Message, error) {
	const query = `
		SELECT m.id, m.channel_id, c.username, c.title, m.tg_message_id, m.text, m.received_at, m.disposition
		FROM messages m
		JOIN channels c ON c.id = m.channel_id
		WHERE m.disposition IN ('unprocessed', 'errored')
		  AND m.received_at >= $1
		ORDER BY m.received_at ASC`

	rows, err := db.Pool.Query(ctx, query, toTimestamptz(since))
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message

	for rows.Next() {
		var m domain.Message

		var disposition string

		if err := rows.Scan(&m.ID, &m.ChannelID, &m.ChannelUsername, &m.ChannelTitle,
			&m.TGMessageID, &m.Text, &m.ReceivedAt, &disposition); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		m.Disposition = domain.Disposition(disposition)
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// MarkDisposition records the processing outcome for a message.
//
// The update is guarded: a message already carrying the same terminal
// disposition is a no-op, a message carrying a different terminal
// disposition raises ErrDispositionConflict. Non-terminal states
// (unprocessed, errored) may always be overwritten.
func (db *DB) MarkDisposition(ctx context.Context, id string, disposition domain.Disposition, detail string) error {
	if !disposition.Valid() {
		return fmt.Errorf("%w: %q", curerrors.ErrInvalidDisposition, disposition)
	}

	const query = `
		UPDATE messages
		SET disposition = $2, disposition_detail = $3, processed_at = now()
		WHERE id = $1
		  AND (disposition IN ('unprocessed', 'errored') OR disposition = $2)`

	tag, err := db.Pool.Exec(ctx, query, toUUID(id), string(disposition), detail)
	if err != nil {
		return fmt.Errorf("mark disposition: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing matched: either the message does not exist, or it already
	// carries a different terminal disposition.
	const current = `SELECT disposition FROM messages WHERE id = $1`

	var existing string

	err = db.Pool.QueryRow(ctx, current, toUUID(id)).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", curerrors.ErrMessageNotFound, id)
	}

	if err != nil {
		return fmt.Errorf("check disposition: %w", err)
	}

	return fmt.Errorf("%w: message %s is %s, refusing %s",
		curerrors.ErrDispositionConflict, id, existing, disposition)
}

// CleanupOldData removes raw messages and published items past their
// retention windows. Returns the number of deleted rows per table.
func (db *DB) CleanupOldData(ctx context.Context, rawRetentionDays, publishedRetentionDays int) (int64, int64, error) {
	const deletePublished = `
		DELETE FROM published_items
		WHERE published_at < now() - make_interval(days => $1)`

	publishedTag, err := db.Pool.Exec(ctx, deletePublished, publishedRetentionDays)
	if err != nil {
		return 0, 0, fmt.Errorf("cleanup published items: %w", err)
	}

	const deleteRaw = `
		DELETE FROM messages
		WHERE received_at < now() - make_interval(days => $1)
		  AND id NOT IN (SELECT message_id FROM published_items)`

	rawTag, err := db.Pool.Exec(ctx, deleteRaw, rawRetentionDays)
	if err != nil {
		return 0, 0, fmt.Errorf("cleanup raw messages: %w", err)
	}

	return rawTag.RowsAffected(), publishedTag.RowsAffected(), nil
}

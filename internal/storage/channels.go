package storage

import (
	"context"
	"fmt"
)

// Channel is a tracked source channel.
type Channel struct {
	ID              string
	TGPeerID        int64
	AccessHash      int64
	Username        string
	Title           string
	Enabled         bool
	LastTGMessageID int64
}

// UpsertChannel inserts or refreshes channel metadata keyed by peer id and
// returns the channel row id.
func (db *DB) UpsertChannel(ctx context.Context, ch *Channel) error {
	const query = `
		INSERT INTO channels (tg_peer_id, access_hash, username, title)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tg_peer_id) DO UPDATE
		SET access_hash = EXCLUDED.access_hash,
		    username = EXCLUDED.username,
		    title = EXCLUDED.title
		RETURNING id`

	row := db.Pool.QueryRow(ctx, query, ch.TGPeerID, ch.AccessHash, ch.Username, ch.Title)

	if err := row.Scan(&ch.ID); err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}

	return nil
}

// ListEnabledChannels returns the channels the listener should track.
func (db *DB) ListEnabledChannels(ctx context.Context) ([]Channel, error) {
	const query = `
		SELECT id, tg_peer_id, access_hash, username, title, enabled, last_tg_message_id
		FROM channels
		WHERE enabled
		ORDER BY username`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel

	for rows.Next() {
		var ch Channel

		if err := rows.Scan(&ch.ID, &ch.TGPeerID, &ch.AccessHash, &ch.Username,
			&ch.Title, &ch.Enabled, &ch.LastTGMessageID); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}

		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}

// UpdateChannelCursor advances the last seen message id for a channel.
func (db *DB) UpdateChannelCursor(ctx context.Context, id string, lastTGMessageID int64) error {
	const query = `UPDATE channels SET last_tg_message_id = $2 WHERE id = $1`

	if _, err := db.Pool.Exec(ctx, query, toUUID(id), lastTGMessageID); err != nil {
		return fmt.Errorf("update channel cursor: %w", err)
	}

	return nil
}

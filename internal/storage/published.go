package storage

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/sellerhub/news-curator/internal/core/domain"
)

// SavePublished stores a digest entry together with its embedding.
func (db *DB) SavePublished(ctx context.Context, item *domain.PublishedItem) error {
	const query = `
		INSERT INTO published_items (message_id, category, title, description, score, source_link, embedding, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var embedding interface{}
	if len(item.Embedding) > 0 {
		embedding = pgvector.NewVector(item.Embedding)
	}

	row := db.Pool.QueryRow(ctx, query,
		toUUID(item.MessageID),
		item.Category,
		toText(item.Title),
		toText(item.Description),
		item.Score,
		toText(item.SourceLink),
		embedding,
		toTimestamptz(item.PublishedAt))

	if err := row.Scan(&item.ID); err != nil {
		return fmt.Errorf("save published item: %w", err)
	}

	return nil
}

// FetchRecentEmbeddings returns embeddings of items published in the
// category within the window, newest first. Items saved without an
// embedding are skipped.
func (db *DB) FetchRecentEmbeddings(ctx context.Context, category string, windowDays int) ([][]float32, error) {
	const query = `
		SELECT embedding
		FROM published_items
		WHERE category = $1
		  AND embedding IS NOT NULL
		  AND published_at > now() - make_interval(days => $2)
		ORDER BY published_at DESC`

	rows, err := db.Pool.Query(ctx, query, category, windowDays)
	if err != nil {
		return nil, fmt.Errorf("fetch recent embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings [][]float32

	for rows.Next() {
		var vec pgvector.Vector

		if err := rows.Scan(&vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		embeddings = append(embeddings, vec.Slice())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return embeddings, nil
}

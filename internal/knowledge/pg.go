package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PG implements Querier on a pgx connection pool.
// The documents schema is managed by db/migrations.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG creates a pgx-backed Querier.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

const upsertChunkSQL = `
INSERT INTO documents (id, content, embedding, doc_type, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    doc_type = EXCLUDED.doc_type,
    metadata = EXCLUDED.metadata,
    created_at = EXCLUDED.created_at`

// UpsertChunk inserts or replaces a chunk row.
func (q *PG) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	metadataJSON, err := json.Marshal(arg.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	embedding := pgvector.NewVector(arg.Embedding)
	createdAt := pgtype.Timestamptz{Time: arg.CreatedAt, Valid: !arg.CreatedAt.IsZero()}

	_, err = q.pool.Exec(ctx, upsertChunkSQL,
		arg.ID, arg.Content, embedding, string(arg.DocType), metadataJSON, createdAt)
	if err != nil {
		return fmt.Errorf("executing upsert: %w", err)
	}
	return nil
}

const searchChunksSQL = `
SELECT id, content, doc_type, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
ORDER BY embedding <=> $1
LIMIT $2`

const searchChunksByTypeSQL = `
SELECT id, content, doc_type, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE doc_type = $3
ORDER BY embedding <=> $1
LIMIT $2`

// SearchChunks performs a cosine similarity search, most similar first.
func (q *PG) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error) {
	embedding := pgvector.NewVector(arg.QueryEmbedding)

	var rows pgx.Rows
	var err error
	if arg.DocType != "" {
		rows, err = q.pool.Query(ctx, searchChunksByTypeSQL, embedding, arg.Limit, string(arg.DocType))
	} else {
		rows, err = q.pool.Query(ctx, searchChunksSQL, embedding, arg.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("executing search: %w", err)
	}
	defer rows.Close()

	var results []ChunkRow
	for rows.Next() {
		var (
			row          ChunkRow
			metadataJSON []byte
			createdAt    pgtype.Timestamptz
			similarity   float64
		)
		if err := rows.Scan(&row.ID, &row.Content, &row.DocType, &metadataJSON, &createdAt, &similarity); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &row.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for %q: %w", row.ID, err)
			}
		}
		if createdAt.Valid {
			row.CreatedAt = createdAt.Time
		}
		row.Similarity = float32(similarity)
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return results, nil
}

// CountChunks counts rows, optionally filtered by type.
func (q *PG) CountChunks(ctx context.Context, docType DocType) (int64, error) {
	var count int64
	var err error
	if docType != "" {
		err = q.pool.QueryRow(ctx, "SELECT COUNT(*) FROM documents WHERE doc_type = $1", string(docType)).Scan(&count)
	} else {
		err = q.pool.QueryRow(ctx, "SELECT COUNT(*) FROM documents").Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("executing count: %w", err)
	}
	return count, nil
}

// DeleteAllChunks removes every row.
func (q *PG) DeleteAllChunks(ctx context.Context) error {
	if _, err := q.pool.Exec(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("executing delete: %w", err)
	}
	return nil
}

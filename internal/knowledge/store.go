// Package knowledge manages the categorized document store backing
// retrieval: chunk storage, embedding generation and vector similarity
// search over PostgreSQL + pgvector.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// VectorDimension is the embedding dimension the documents table is
// provisioned for. Must match the configured embedder model's output.
const VectorDimension = 1536

// searchTimeout bounds a single similarity query (embedding + SQL) so a slow
// vector search cannot block a chat turn indefinitely.
const searchTimeout = 10 * time.Second

// Sentinel errors.
var (
	// ErrEmptyEmbedding indicates the embedder returned no vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
)

// Querier defines the database operations Store needs. The interface lives
// with its consumer; the pgx-backed implementation is in pg.go and tests
// substitute their own.
type Querier interface {
	// UpsertChunk inserts or replaces a chunk row.
	UpsertChunk(ctx context.Context, arg UpsertChunkParams) error

	// SearchChunks performs a cosine similarity search. A nil DocType filter
	// searches all types.
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error)

	// CountChunks counts rows, optionally filtered by type.
	CountChunks(ctx context.Context, docType DocType) (int64, error)

	// DeleteAllChunks removes every row. Used by the full-replace rebuild.
	DeleteAllChunks(ctx context.Context) error
}

// UpsertChunkParams carries one chunk row plus its embedding.
type UpsertChunkParams struct {
	ID        string
	Content   string
	DocType   DocType
	Metadata  map[string]string
	Embedding []float32
	CreatedAt time.Time
}

// SearchChunksParams parameterizes a similarity query.
type SearchChunksParams struct {
	QueryEmbedding []float32
	DocType        DocType // empty = all types
	Limit          int32
}

// ChunkRow is one similarity search result row.
type ChunkRow struct {
	ID         string
	Content    string
	DocType    string
	Metadata   map[string]string
	CreatedAt  time.Time
	Similarity float32
}

// Store manages knowledge chunks with vector search capabilities.
// It generates embeddings through the configured ai.Embedder and delegates
// persistence to a Querier.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default().
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds a chunk's text and upserts it into the store.
func (s *Store) Add(ctx context.Context, chunk Chunk) error {
	embedding, err := s.embed(ctx, chunk.Text)
	if err != nil {
		return fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
	}

	err = s.queries.UpsertChunk(ctx, UpsertChunkParams{
		ID:        chunk.ID,
		Content:   chunk.Text,
		DocType:   chunk.Type,
		Metadata:  chunk.Metadata,
		Embedding: embedding,
		CreatedAt: chunk.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("upserting chunk %q: %w", chunk.ID, err)
	}

	s.logger.Debug("added chunk", "id", chunk.ID, "type", chunk.Type, "content_length", len(chunk.Text))
	return nil
}

// Search performs a similarity search over the store, most similar first.
//
// Example:
//
//	results, err := store.Search(ctx, "calendario electoral",
//	    knowledge.WithTopK(20),
//	    knowledge.WithType(knowledge.TypeCalendar))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.queries.SearchChunks(queryCtx, SearchChunksParams{
		QueryEmbedding: embedding,
		DocType:        cfg.docType,
		Limit:          int32(cfg.topK), // #nosec G115 -- topK is validated config, small
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		if row.Similarity < cfg.minSimilarity {
			continue
		}
		docType, ok := ParseDocType(row.DocType)
		if !ok {
			s.logger.Warn("chunk with unknown doc_type", "id", row.ID, "doc_type", row.DocType)
			continue
		}
		metadata := row.Metadata
		if metadata == nil {
			metadata = make(map[string]string)
		}
		results = append(results, Result{
			Chunk: Chunk{
				ID:        row.ID,
				Text:      row.Content,
				Type:      docType,
				Metadata:  metadata,
				CreatedAt: row.CreatedAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

// Count returns the number of stored chunks, optionally filtered by type
// (empty DocType counts everything).
func (s *Store) Count(ctx context.Context, docType DocType) (int64, error) {
	count, err := s.queries.CountChunks(ctx, docType)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return count, nil
}

// DeleteAll removes every chunk. The rebuild path calls this before
// re-adding the new chunk set; there is no incremental upsert mode.
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.queries.DeleteAllChunks(ctx); err != nil {
		return fmt.Errorf("deleting all chunks: %w", err)
	}
	s.logger.Info("deleted all chunks")
	return nil
}

// embed generates the embedding vector for one text.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return resp.Embeddings[0].Embedding, nil
}

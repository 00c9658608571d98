// Package retrieve decides what the model gets to read. For each user turn
// it runs a fan of similarity queries over the knowledge store, votes on the
// most relevant document type and returns a clean, type-homogeneous chunk
// set for prompt assembly.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/chekibot/chekibot/internal/knowledge"
)

// Searcher is the slice of the knowledge store the retriever needs.
// knowledge.Store satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Config tunes the retrieval strategy.
type Config struct {
	// HistoryTurns is how many recent user turns (beyond the current query)
	// contribute their own similarity query.
	HistoryTurns int

	// TopK is the result count of the first query; successive per-turn
	// queries decay to k/3 while that stays at least 1, weighting recent
	// turns more heavily without discarding older context.
	TopK int

	// TypeTopK is the result count of the final query filtered to the
	// winning document type.
	TypeTopK int

	// MinSimilarity drops results below the threshold. When nothing clears
	// it, the turn has no context and the assembler falls back.
	MinSimilarity float32
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{
		HistoryTurns:  3,
		TopK:          9,
		TypeTopK:      20,
		MinSimilarity: 0.1,
	}
}

// Context is the outcome of retrieval for one turn.
type Context struct {
	// Type is the winning document type. Meaningless when Found is false.
	Type knowledge.DocType

	// Chunks is the type-homogeneous result set, most similar first.
	Chunks []knowledge.Chunk

	// Found reports whether any chunk cleared the similarity threshold.
	Found bool
}

// Retriever aggregates similarity queries into a typed context.
// Safe for concurrent use; it holds no per-request state.
type Retriever struct {
	search Searcher
	cfg    Config
	logger *slog.Logger
}

// New creates a Retriever. Zero-value Config fields take defaults.
func New(search Searcher, cfg Config, logger *slog.Logger) *Retriever {
	def := DefaultConfig()
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = def.HistoryTurns
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.TypeTopK <= 0 {
		cfg.TypeTopK = def.TypeTopK
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = def.MinSimilarity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{search: search, cfg: cfg, logger: logger}
}

// Retrieve returns the chunks most relevant to answering the current turn
// plus the single best-matching document type.
//
// Strategy: one similarity query per recent user turn, most recent first,
// with top-k decaying by a factor of 3 per turn; then one final query over
// the concatenation of all recent turns. Document types are tallied across
// every accumulated result and the store is re-queried filtered to the
// winner for a clean result set. Duplicate chunks across queries are
// possible and acceptable; the model tolerates redundant context.
func (r *Retriever) Retrieve(ctx context.Context, query string, history []*ai.Message) (*Context, error) {
	turns := r.recentUserTurns(query, history)

	var accumulated []knowledge.Result
	k := r.cfg.TopK
	for _, turn := range turns {
		results, err := r.search.Search(ctx, turn,
			knowledge.WithTopK(k),
			knowledge.WithMinSimilarity(r.cfg.MinSimilarity),
		)
		if err != nil {
			return nil, fmt.Errorf("similarity query: %w", err)
		}
		accumulated = append(accumulated, results...)
		if k/3 >= 1 {
			k /= 3
		}
	}

	if len(turns) > 1 {
		combined := strings.Join(turns, " ")
		results, err := r.search.Search(ctx, combined,
			knowledge.WithTopK(r.cfg.TopK),
			knowledge.WithMinSimilarity(r.cfg.MinSimilarity),
		)
		if err != nil {
			return nil, fmt.Errorf("combined similarity query: %w", err)
		}
		accumulated = append(accumulated, results...)
	}

	winner, ok := voteDocType(accumulated)
	if !ok {
		r.logger.Debug("no chunk cleared similarity threshold", "query_length", len(query))
		return &Context{Found: false}, nil
	}

	results, err := r.search.Search(ctx, query,
		knowledge.WithTopK(r.cfg.TypeTopK),
		knowledge.WithType(winner),
		knowledge.WithMinSimilarity(r.cfg.MinSimilarity),
	)
	if err != nil {
		return nil, fmt.Errorf("typed similarity query: %w", err)
	}
	if len(results) == 0 {
		// The vote saw something but the typed re-query came back empty;
		// treat like an empty turn rather than fabricating context.
		return &Context{Found: false}, nil
	}

	chunks := make([]knowledge.Chunk, len(results))
	for i, res := range results {
		chunks[i] = res.Chunk
	}

	r.logger.Debug("retrieved context",
		"type", winner,
		"chunks", len(chunks),
		"candidates", len(accumulated),
	)
	return &Context{Type: winner, Chunks: chunks, Found: true}, nil
}

// recentUserTurns returns the current query followed by up to HistoryTurns
// prior user turns, most recent first.
func (r *Retriever) recentUserTurns(query string, history []*ai.Message) []string {
	turns := []string{query}
	for i := len(history) - 1; i >= 0 && len(turns) <= r.cfg.HistoryTurns; i-- {
		msg := history[i]
		if msg.Role != ai.RoleUser {
			continue
		}
		var b strings.Builder
		for _, part := range msg.Content {
			if part.IsText() {
				b.WriteString(part.Text)
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			turns = append(turns, text)
		}
	}
	return turns
}

// voteDocType tallies document types across results. The winner is the type
// with the strictly highest count; ties resolve to the earliest DocType in
// enumeration order. ok is false when results is empty.
func voteDocType(results []knowledge.Result) (knowledge.DocType, bool) {
	if len(results) == 0 {
		return "", false
	}

	counts := make(map[knowledge.DocType]int, len(knowledge.AllDocTypes))
	for _, res := range results {
		counts[res.Chunk.Type]++
	}

	var winner knowledge.DocType
	best := 0
	for _, dt := range knowledge.AllDocTypes {
		if counts[dt] > best {
			winner = dt
			best = counts[dt]
		}
	}
	if best == 0 {
		return "", false
	}
	return winner, true
}

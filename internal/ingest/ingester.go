// Package ingest loads the structured source file, splits long text fields
// into token-bounded chunks, tags each chunk with its document type and
// metadata, and performs the full-replace rebuild of the knowledge store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chekibot/chekibot/internal/knowledge"
)

// ChunkStore is the slice of the knowledge store the ingester needs.
type ChunkStore interface {
	Add(ctx context.Context, chunk knowledge.Chunk) error
	DeleteAll(ctx context.Context) error
}

// Result summarizes one ingestion run.
type Result struct {
	ChunksAdded int
	Groups      map[knowledge.DocType]int
	Duration    time.Duration
}

// Ingester turns a Source into chunks and writes them to the store.
type Ingester struct {
	store    ChunkStore
	splitter *Splitter
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Ingester. A nil logger falls back to slog.Default().
func New(store ChunkStore, splitter *Splitter, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		store:    store,
		splitter: splitter,
		logger:   logger,
		now:      time.Now,
	}
}

// Rebuild loads the source file, deletes the existing collection in full and
// writes the new chunk set. There is no incremental mode: a rebuild always
// replaces everything, and is assumed to run offline, not concurrently with
// live traffic.
func (ing *Ingester) Rebuild(ctx context.Context, path string) (*Result, error) {
	start := ing.now()

	src, err := LoadSource(path)
	if err != nil {
		return nil, err
	}

	chunks, err := ing.Chunks(src)
	if err != nil {
		return nil, err
	}

	if err := ing.store.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clearing existing collection: %w", err)
	}

	result := &Result{Groups: make(map[knowledge.DocType]int)}
	for _, chunk := range chunks {
		if err := ing.store.Add(ctx, chunk); err != nil {
			return nil, fmt.Errorf("adding chunk %q: %w", chunk.ID, err)
		}
		result.ChunksAdded++
		result.Groups[chunk.Type]++
	}
	result.Duration = ing.now().Sub(start)

	ing.logger.Info("rebuild completed",
		"chunks", result.ChunksAdded,
		"duration", result.Duration,
	)
	return result, nil
}

// Chunks converts every record group into its chunk sequence. A missing
// required field anywhere fails the whole conversion.
func (ing *Ingester) Chunks(src *Source) ([]knowledge.Chunk, error) {
	var chunks []knowledge.Chunk

	for i, v := range src.Verifications {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("verifications[%d]: %w", i, err)
		}
		meta := map[string]string{
			"title":                       v.Title,
			"field_fecha_publicacion_web": v.PublicationDate,
			"field_mt_post_categories":    v.Categories,
			"field_mt_subheader_body":     v.Subheader,
			"field_tags":                  v.Tags,
			"field_tendencia_politica":    v.PoliticalTendency,
		}
		// Verification bodies keep their original casing
		chunks = ing.appendChunks(chunks, knowledge.TypeVerifications, normalize(v.Body), meta)
	}

	for i, g := range src.GovPrograms {
		if err := g.validate(); err != nil {
			return nil, fmt.Errorf("government_programs[%d]: %w", i, err)
		}
		text := fmt.Sprintf("partido %s, candidato a presidente %s: %s", g.Party, g.President, g.Program)
		meta := map[string]string{
			"party":     g.Party,
			"president": g.President,
		}
		chunks = ing.appendChunks(chunks, knowledge.TypeGovPrograms, strings.ToLower(normalize(text)), meta)
	}

	for i, m := range src.CalendarMeta {
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("calendar_metadata[%d]: %w", i, err)
		}
		meta := map[string]string{"title": m.Title}
		chunks = ing.appendChunks(chunks, knowledge.TypeCalendarMeta, normalize(m.Description), meta)
	}

	for i, e := range src.Calendar {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("calendar[%d]: %w", i, err)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Actividad: %s. Fecha de inicio: %s.", e.Activity, e.StartDate)
		if e.EndDate != "" {
			fmt.Fprintf(&b, " Fecha de fin: %s.", e.EndDate)
		}
		if e.Description != "" {
			fmt.Fprintf(&b, " %s", e.Description)
		}
		meta := map[string]string{
			"activity":   e.Activity,
			"start_date": e.StartDate,
			"end_date":   e.EndDate,
		}
		chunks = ing.appendChunks(chunks, knowledge.TypeCalendar, normalize(b.String()), meta)
	}

	for i, c := range src.Candidates {
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("candidates[%d]: %w", i, err)
		}
		text := fmt.Sprintf("%s, candidato del partido %s: %s", c.Name, c.Party, c.Biography)
		meta := map[string]string{
			"name":  c.Name,
			"party": c.Party,
		}
		chunks = ing.appendChunks(chunks, knowledge.TypeCandidates, strings.ToLower(normalize(text)), meta)
	}

	for i, qa := range src.QA {
		if err := qa.validate(); err != nil {
			return nil, fmt.Errorf("questions_and_answers[%d]: %w", i, err)
		}
		text := fmt.Sprintf("Pregunta: %s Respuesta: %s", qa.Question, qa.Answer)
		meta := map[string]string{"question": qa.Question}
		chunks = ing.appendChunks(chunks, knowledge.TypeQA, normalize(text), meta)
	}

	return chunks, nil
}

// appendChunks splits text and appends one tagged chunk per split. Every
// chunk of a record shares the record's metadata.
func (ing *Ingester) appendChunks(chunks []knowledge.Chunk, docType knowledge.DocType, text string, meta map[string]string) []knowledge.Chunk {
	createdAt := ing.now()
	for _, part := range ing.splitter.Split(text) {
		metadata := make(map[string]string, len(meta))
		for k, v := range meta {
			metadata[k] = v
		}
		chunks = append(chunks, knowledge.Chunk{
			ID:        string(docType) + "_" + uuid.NewString(),
			Text:      part,
			Type:      docType,
			Metadata:  metadata,
			CreatedAt: createdAt,
		})
	}
	return chunks
}

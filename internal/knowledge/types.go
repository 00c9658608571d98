package knowledge

import "time"

// DocType is the closed set of document categories in the knowledge base.
// It drives both the metadata shape at ingestion time and the prompt template
// selected at chat time.
type DocType string

// Document categories.
const (
	TypeVerifications DocType = "verifications"
	TypeGovPrograms   DocType = "government_programs"
	TypeCalendarMeta  DocType = "calendar_metadata"
	TypeCalendar      DocType = "calendar"
	TypeCandidates    DocType = "candidates"
	TypeQA            DocType = "questions_and_answers"
)

// AllDocTypes lists every DocType in its fixed enumeration order. The order
// is load-bearing: type-vote ties resolve to the earliest entry.
var AllDocTypes = []DocType{
	TypeVerifications,
	TypeGovPrograms,
	TypeCalendarMeta,
	TypeCalendar,
	TypeCandidates,
	TypeQA,
}

// Valid reports whether t is a known document type.
func (t DocType) Valid() bool {
	for _, dt := range AllDocTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// ParseDocType converts a raw string to a DocType.
func ParseDocType(s string) (DocType, bool) {
	t := DocType(s)
	return t, t.Valid()
}

// Chunk is a bounded-length slice of a source document, tagged with its
// document type and type-specific metadata. Chunks are immutable once
// created and owned by the store after ingestion.
type Chunk struct {
	ID        string            // Unique identifier
	Text      string            // Chunk text content
	Type      DocType           // Document category
	Metadata  map[string]string // Type-specific fields (title, dates, party, ...)
	CreatedAt time.Time         // Ingestion timestamp
}

// Result is a single similarity search result.
type Result struct {
	Chunk      Chunk
	Similarity float32 // Cosine similarity score (0-1)
}

// SearchOption configures search behavior using the functional options
// pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK          int
	docType       DocType
	minSimilarity float32
}

// WithTopK sets the maximum number of results to return. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithType restricts the search to a single document type.
func WithType(t DocType) SearchOption {
	return func(c *searchConfig) {
		c.docType = t
	}
}

// WithMinSimilarity drops results scoring below the threshold.
func WithMinSimilarity(min float32) SearchOption {
	return func(c *searchConfig) {
		c.minSimilarity = min
	}
}

// SearchSettings is the resolved form of a SearchOption list. Consumers
// that need to observe the effective settings (the retriever's tests, for
// one) go through ResolveSearchOptions instead of reaching into the
// unexported config.
type SearchSettings struct {
	TopK          int
	DocType       DocType
	MinSimilarity float32
}

// ResolveSearchOptions applies opts over the defaults and reports the
// resulting settings.
func ResolveSearchOptions(opts ...SearchOption) SearchSettings {
	cfg := buildSearchConfig(opts)
	return SearchSettings{
		TopK:          cfg.topK,
		DocType:       cfg.docType,
		MinSimilarity: cfg.minSimilarity,
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK: 5,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

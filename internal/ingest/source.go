package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Sentinel errors for source loading.
var (
	// ErrMalformedSource indicates the source file is not valid JSON.
	// Malformed input is fatal for the whole ingestion run.
	ErrMalformedSource = errors.New("malformed source file")

	// ErrMissingField indicates a record lacks a required field. Fatal for
	// that record's group; there is no skip-and-continue mode.
	ErrMissingField = errors.New("missing required field")
)

// Source mirrors the ingestion input contract: one JSON object with one
// top-level array per record group.
type Source struct {
	Verifications []Verification   `json:"verifications"`
	GovPrograms   []GovProgram     `json:"government_programs"`
	CalendarMeta  []CalendarMeta   `json:"calendar_metadata"`
	Calendar      []CalendarEntry  `json:"calendar"`
	Candidates    []Candidate      `json:"candidates"`
	QA            []QuestionAnswer `json:"questions_and_answers"`
}

// Verification is one fact-check record. Body carries the long text; the
// remaining fields travel as chunk metadata. Verification text keeps its
// original casing so quoted verdicts survive intact.
type Verification struct {
	Title             string `json:"title"`
	Body              string `json:"body"`
	PublicationDate   string `json:"field_fecha_publicacion_web"`
	Categories        string `json:"field_mt_post_categories"`
	Subheader         string `json:"field_mt_subheader_body"`
	Tags              string `json:"field_tags"`
	PoliticalTendency string `json:"field_tendencia_politica"`
}

func (v Verification) validate() error {
	if v.Title == "" {
		return fmt.Errorf("%w: verification title", ErrMissingField)
	}
	if v.Body == "" {
		return fmt.Errorf("%w: verification body (title %q)", ErrMissingField, v.Title)
	}
	return nil
}

// GovProgram is one government program record. Program carries the long
// text; chunks are prefixed with the party and president names and
// lower-cased for retrieval consistency.
type GovProgram struct {
	Party     string `json:"party"`
	President string `json:"president"`
	Program   string `json:"program"`
}

func (g GovProgram) validate() error {
	if g.Party == "" {
		return fmt.Errorf("%w: government program party", ErrMissingField)
	}
	if g.Program == "" {
		return fmt.Errorf("%w: government program text (party %q)", ErrMissingField, g.Party)
	}
	return nil
}

// CalendarMeta is one electoral-calendar metadata record.
type CalendarMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (m CalendarMeta) validate() error {
	if m.Title == "" {
		return fmt.Errorf("%w: calendar metadata title", ErrMissingField)
	}
	if m.Description == "" {
		return fmt.Errorf("%w: calendar metadata description (title %q)", ErrMissingField, m.Title)
	}
	return nil
}

// CalendarEntry is one electoral-calendar activity. The chunk text is a
// composed narrative over all fields rather than a single long field.
type CalendarEntry struct {
	Activity    string `json:"activity"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

func (e CalendarEntry) validate() error {
	if e.Activity == "" {
		return fmt.Errorf("%w: calendar activity", ErrMissingField)
	}
	if e.StartDate == "" {
		return fmt.Errorf("%w: calendar start date (activity %q)", ErrMissingField, e.Activity)
	}
	return nil
}

// Candidate is one candidate biography record. Chunks are prefixed with the
// candidate and party names and lower-cased.
type Candidate struct {
	Name      string `json:"name"`
	Party     string `json:"party"`
	Biography string `json:"biography"`
}

func (c Candidate) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: candidate name", ErrMissingField)
	}
	if c.Biography == "" {
		return fmt.Errorf("%w: candidate biography (name %q)", ErrMissingField, c.Name)
	}
	return nil
}

// QuestionAnswer is one curated Q&A pair, composed into a single chunk text.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (qa QuestionAnswer) validate() error {
	if qa.Question == "" {
		return fmt.Errorf("%w: question", ErrMissingField)
	}
	if qa.Answer == "" {
		return fmt.Errorf("%w: answer (question %q)", ErrMissingField, qa.Question)
	}
	return nil
}

// LoadSource reads and decodes the structured source file.
func LoadSource(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source file: %w", err)
	}
	return ParseSource(data)
}

// ParseSource decodes source JSON. Unknown top-level keys are rejected so a
// typo in a group name fails loudly instead of silently dropping records.
func ParseSource(data []byte) (*Source, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var src Source
	if err := dec.Decode(&src); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	return &src, nil
}

// normalize collapses runs of whitespace to single spaces. Applied to every
// long-text field before chunking.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package ingest

import (
	"strings"

	"github.com/chekibot/chekibot/internal/token"
)

// defaultSeparators is the ordered list the splitter recurses through. The
// final empty separator means "split by raw token windows" and guarantees
// termination for text with no usable boundaries.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts long text into chunks bounded by a token count, with a fixed
// token overlap carried between consecutive chunks to preserve continuity
// across boundaries.
type Splitter struct {
	counter   *token.Counter
	maxTokens int
	overlap   int
}

// NewSplitter creates a Splitter. maxTokens must be positive and overlap must
// be smaller than maxTokens; the config layer validates both.
func NewSplitter(counter *token.Counter, maxTokens, overlap int) *Splitter {
	return &Splitter{
		counter:   counter,
		maxTokens: maxTokens,
		overlap:   overlap,
	}
}

// Split returns token-bounded chunks of text. Every chunk counts at most
// maxTokens tokens, and consecutive chunks share at least overlap tokens of
// content (when the preceding chunk has that much to give).
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if s.counter.Count(text) <= s.maxTokens {
		return []string{text}
	}
	pieces := s.split(text, defaultSeparators)
	return s.merge(pieces)
}

// split recursively cuts text at the first separator that applies, pushing
// oversized fragments down to finer separators.
func (s *Splitter) split(text string, separators []string) []string {
	if s.counter.Count(text) <= s.maxTokens {
		return []string{text}
	}

	sep := separators[0]
	if sep == "" {
		return s.tokenWindows(text)
	}

	parts := strings.Split(text, sep)
	var pieces []string
	for i, part := range parts {
		// Re-attach the separator so merged chunks read like the source
		if i < len(parts)-1 {
			part += sep
		}
		if part == "" {
			continue
		}
		if s.counter.Count(part) > s.maxTokens {
			pieces = append(pieces, s.split(part, separators[1:])...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// tokenWindows slices text into raw token windows of maxTokens advancing by
// maxTokens-overlap. Last-resort split when no separator applies.
func (s *Splitter) tokenWindows(text string) []string {
	ids := s.counter.Encode(text)
	step := s.maxTokens - s.overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(ids); start += step {
		end := start + s.maxTokens
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, s.counter.Decode(ids[start:end]))
		if end == len(ids) {
			break
		}
	}
	return chunks
}

// merge greedily packs pieces into chunks up to maxTokens, seeding each new
// chunk with the minimal suffix of the previous one that covers the overlap
// budget.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.TrimSpace(strings.Join(current, "")))
		current = s.overlapSuffix(current)
		currentTokens = 0
		for _, p := range current {
			currentTokens += s.counter.Count(p)
		}
	}

	for _, piece := range pieces {
		pieceTokens := s.counter.Count(piece)
		if currentTokens+pieceTokens > s.maxTokens && len(current) > 0 {
			flush()
			// The carried overlap plus an unusually large piece can still
			// overflow; shed carried pieces from the front until it fits.
			for currentTokens+pieceTokens > s.maxTokens && len(current) > 0 {
				currentTokens -= s.counter.Count(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		currentTokens += pieceTokens
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.TrimSpace(strings.Join(current, "")))
	}
	return chunks
}

// overlapSuffix returns the shortest trailing run of pieces whose token count
// reaches the overlap budget.
func (s *Splitter) overlapSuffix(pieces []string) []string {
	if s.overlap == 0 {
		return nil
	}
	total := 0
	for i := len(pieces) - 1; i >= 0; i-- {
		total += s.counter.Count(pieces[i])
		if total >= s.overlap {
			suffix := make([]string, len(pieces)-i)
			copy(suffix, pieces[i:])
			return suffix
		}
	}
	suffix := make([]string, len(pieces))
	copy(suffix, pieces)
	return suffix
}

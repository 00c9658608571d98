// Package token wraps the tiktoken tokenizer used for every token-bounded
// decision in the pipeline: chunk splitting at ingestion time and message
// trimming at chat time. Budgets are counted in tokenizer units, never bytes
// or runes, so both sides agree on what "500 tokens" means.
package token

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/pkoukk/tiktoken-go"
)

// Counter counts and slices text in tokenizer units.
// Counter is safe for concurrent use by multiple goroutines.
type Counter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewCounter creates a Counter for the named tiktoken encoding
// (e.g. "cl100k_base", "o200k_base").
func NewCounter(encoding string) (*Counter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %q: %w", encoding, err)
	}
	return &Counter{encoding: enc, name: encoding}, nil
}

// Name returns the encoding name.
func (c *Counter) Name() string {
	return c.name
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// Encode returns the token ids for text.
func (c *Counter) Encode(text string) []int {
	return c.encoding.Encode(text, nil, nil)
}

// Decode reassembles text from token ids.
func (c *Counter) Decode(tokens []int) string {
	return c.encoding.Decode(tokens)
}

// CountMessage returns the token count of a message's textual content.
// Non-text parts contribute zero.
func (c *Counter) CountMessage(msg *ai.Message) int {
	if msg == nil {
		return 0
	}
	total := 0
	for _, part := range msg.Content {
		if part.IsText() {
			total += c.Count(part.Text)
		}
	}
	return total
}

// CountMessages returns the total token count across messages.
func (c *Counter) CountMessages(msgs []*ai.Message) int {
	total := 0
	for _, msg := range msgs {
		total += c.CountMessage(msg)
	}
	return total
}

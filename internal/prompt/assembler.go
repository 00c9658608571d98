// Package prompt maps retrieved chunks to the system messages the chat model
// sees. One dated system message always comes first; the winning document
// type's template formats each chunk after it. Templates are mutually
// exclusive per turn: only the winning type contributes content.
package prompt

import (
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/chekibot/chekibot/internal/knowledge"
)

// laPaz is the fixed UTC-4 offset for America/La_Paz. Bolivia does not
// observe daylight saving, so a fixed zone is exact and avoids a tzdata
// dependency at runtime.
var laPaz = time.FixedZone("America/La_Paz", -4*60*60)

// spanishMonths indexes time.Month (January == 1) to its Spanish name.
var spanishMonths = [...]string{
	"", "enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// Assembler builds the per-turn system messages.
// The clock is injectable for tests; production uses time.Now.
type Assembler struct {
	now func() time.Time
}

// New creates an Assembler using the real clock.
func New() *Assembler {
	return &Assembler{now: time.Now}
}

// NewWithClock creates an Assembler with a fixed clock. Tests only.
func NewWithClock(now func() time.Time) *Assembler {
	return &Assembler{now: now}
}

// Build maps a retrieval outcome to the system message list for this turn.
// The list is never empty: a turn without context yields the dated system
// message plus the documented not-found fallback.
func (a *Assembler) Build(retrieved *knowledge.DocType, chunks []knowledge.Chunk) []*ai.Message {
	messages := []*ai.Message{
		ai.NewSystemMessage(ai.NewTextPart(fmt.Sprintf(chatSystemPrompt, a.DateString()))),
	}

	if retrieved == nil || len(chunks) == 0 {
		return append(messages, ai.NewSystemMessage(ai.NewTextPart(notFoundPrompt)))
	}

	format, ok := templates[*retrieved]
	if !ok {
		// Unknown type cannot happen through the retriever; treat as no context
		return append(messages, ai.NewSystemMessage(ai.NewTextPart(notFoundPrompt)))
	}

	for _, chunk := range chunks {
		messages = append(messages, ai.NewSystemMessage(ai.NewTextPart(format(chunk))))
	}
	return messages
}

// DateString formats the current date as a human-readable Spanish string in
// La Paz local time, e.g. "31 de agosto del 2026".
func (a *Assembler) DateString() string {
	t := a.now().In(laPaz)
	return fmt.Sprintf("%d de %s del %d", t.Day(), spanishMonths[t.Month()], t.Year())
}

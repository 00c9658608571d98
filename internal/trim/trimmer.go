// Package trim bounds the per-turn message list to a token budget.
//
// Policy: the budget is split two thirds for system messages and one third
// for the human/assistant conversation. System messages keep the
// earliest-fitting prefix (the dated anchor prompt comes first and must
// survive); the conversation keeps the latest-fitting suffix, aligned to
// start on a user turn. This is a configuration decision, not the only
// defensible policy; the invariants that hold regardless are that the
// returned sequence never exceeds the budget and the most recent user turn
// is always retained.
package trim

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"

	"github.com/chekibot/chekibot/internal/token"
)

// Trimmer bounds message lists. Safe for concurrent use.
type Trimmer struct {
	counter *token.Counter
	budget  int
	logger  *slog.Logger
}

// New creates a Trimmer with the given total token budget.
func New(counter *token.Counter, budget int, logger *slog.Logger) *Trimmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trimmer{counter: counter, budget: budget, logger: logger}
}

// Trim returns the bounded message list. An input that already fits is
// returned unchanged, so trimming an already-trimmed list is a no-op.
// Non-text messages count zero tokens and pass through untouched.
func (t *Trimmer) Trim(msgs []*ai.Message) []*ai.Message {
	return t.TrimReserving(msgs, 0)
}

// TrimReserving trims against the budget minus reserve. Callers that
// prepend a fixed message after trimming reserve its cost here so the
// final list still fits the full budget.
func (t *Trimmer) TrimReserving(msgs []*ai.Message, reserve int) []*ai.Message {
	budget := t.budget - reserve
	if budget < 0 {
		budget = 0
	}
	if t.counter.CountMessages(msgs) <= budget {
		return msgs
	}

	var system, conversation []*ai.Message
	for _, msg := range msgs {
		if msg.Role == ai.RoleSystem {
			system = append(system, msg)
		} else {
			conversation = append(conversation, msg)
		}
	}

	systemBudget := budget * 2 / 3
	conversationBudget := budget / 3

	trimmedSystem := t.firstFitting(system, systemBudget)
	trimmedConversation := t.lastFitting(conversation, conversationBudget)

	t.logger.Debug("trimmed context",
		"system_kept", len(trimmedSystem), "system_total", len(system),
		"conversation_kept", len(trimmedConversation), "conversation_total", len(conversation),
	)

	result := make([]*ai.Message, 0, len(trimmedSystem)+len(trimmedConversation))
	result = append(result, trimmedSystem...)
	result = append(result, trimmedConversation...)
	return result
}

// Cost returns the token cost of one message as Trim measures it.
func (t *Trimmer) Cost(msg *ai.Message) int {
	return t.counter.CountMessage(msg)
}

// firstFitting keeps the longest prefix within budget.
func (t *Trimmer) firstFitting(msgs []*ai.Message, budget int) []*ai.Message {
	total := 0
	for i, msg := range msgs {
		total += t.counter.CountMessage(msg)
		if total > budget {
			return msgs[:i]
		}
	}
	return msgs
}

// lastFitting keeps the longest suffix within budget, then aligns it to
// start on a user turn so the model never sees a conversation opening with
// its own reply. The final user turn is always retained, even when it alone
// blows the budget: a turn without its query is unanswerable.
func (t *Trimmer) lastFitting(msgs []*ai.Message, budget int) []*ai.Message {
	if len(msgs) == 0 {
		return msgs
	}

	total := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := t.counter.CountMessage(msgs[i])
		if total+cost > budget {
			break
		}
		total += cost
		start = i
	}

	// Keep the current query no matter what
	if start == len(msgs) {
		start = len(msgs) - 1
	}

	// Align the kept window to open on a user turn
	for start < len(msgs)-1 && msgs[start].Role != ai.RoleUser {
		start++
	}

	return msgs[start:]
}

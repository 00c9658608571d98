// Package agent runs the full answer pipeline: retrieve knowledge for the
// query, assemble the typed prompt, trim it to the context budget and hand
// the result to the chat model. Transports (WebSocket, Telegram, WhatsApp)
// only differ in how they deliver the output, so both a streaming and a
// buffered entry point are exposed.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/chekibot/chekibot/internal/knowledge"
	"github.com/chekibot/chekibot/internal/model"
	"github.com/chekibot/chekibot/internal/prompt"
	"github.com/chekibot/chekibot/internal/retrieve"
	"github.com/chekibot/chekibot/internal/trim"
)

// plainTextPrompt is appended for transports that cannot render markup.
const plainTextPrompt = "Responde únicamente en texto plano, sin formato " +
	"Markdown, sin asteriscos y sin encabezados."

// thinkOpen and thinkClose are reasoning-trace delimiters some models emit.
// They are removed from every fragment before delivery.
const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// Agent wires the pipeline stages together. Safe for concurrent use.
type Agent struct {
	retriever *retrieve.Retriever
	assembler *prompt.Assembler
	trimmer   *trim.Trimmer
	chat      model.ChatModel
	logger    *slog.Logger
}

// New creates an Agent from already-constructed stages.
func New(retriever *retrieve.Retriever, assembler *prompt.Assembler, trimmer *trim.Trimmer, chat model.ChatModel, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		retriever: retriever,
		assembler: assembler,
		trimmer:   trimmer,
		chat:      chat,
		logger:    logger,
	}
}

// Prepare runs retrieval, prompt assembly and trimming for one query and
// returns the complete message list to send to the model: trimmed system
// messages first, then the trimmed conversation ending on the query itself.
func (a *Agent) Prepare(ctx context.Context, query string, history []*ai.Message) ([]*ai.Message, error) {
	return a.prepare(ctx, query, history, 0)
}

// prepare builds and trims the message list, reserving the given token
// count from the context budget for messages the caller prepends afterward.
func (a *Agent) prepare(ctx context.Context, query string, history []*ai.Message, reserve int) ([]*ai.Message, error) {
	retrieved, err := a.retriever.Retrieve(ctx, query, history)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	var docType *knowledge.DocType
	var chunks []knowledge.Chunk
	if retrieved.Found {
		docType = &retrieved.Type
		chunks = retrieved.Chunks
	}

	msgs := a.assembler.Build(docType, chunks)
	msgs = append(msgs, history...)
	msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(query)))

	return a.trimmer.TrimReserving(msgs, reserve), nil
}

// Stream answers the query, delivering response fragments to fn as they
// arrive. Reasoning-trace delimiters are stripped from each fragment;
// fragments left empty by the stripping are still delivered, matching the
// model's pacing. Errors from fn or the model abort the stream.
func (a *Agent) Stream(ctx context.Context, query string, history []*ai.Message, fn model.StreamFunc) error {
	msgs, err := a.Prepare(ctx, query, history)
	if err != nil {
		return err
	}

	a.logger.Debug("streaming answer", "messages", len(msgs), "query_length", len(query))

	return a.chat.Stream(ctx, msgs, func(ctx context.Context, fragment string) error {
		return fn(ctx, stripThinkTags(fragment))
	})
}

// Invoke answers the query in one piece for transports without streaming.
// A plain-text delivery instruction is added so chat clients that cannot
// render Markdown do not show raw markup. Its token cost is reserved from
// the trim budget so the instruction never pushes the list over it.
func (a *Agent) Invoke(ctx context.Context, query string, history []*ai.Message) (string, error) {
	instruction := ai.NewSystemMessage(ai.NewTextPart(plainTextPrompt))

	msgs, err := a.prepare(ctx, query, history, a.trimmer.Cost(instruction))
	if err != nil {
		return "", err
	}

	msgs = append([]*ai.Message{instruction}, msgs...)

	a.logger.Debug("invoking answer", "messages", len(msgs), "query_length", len(query))

	text, err := a.chat.Complete(ctx, msgs)
	if err != nil {
		return "", err
	}
	return stripThinkTags(text), nil
}

func stripThinkTags(s string) string {
	s = strings.ReplaceAll(s, thinkOpen, "")
	return strings.ReplaceAll(s, thinkClose, "")
}

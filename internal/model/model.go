// Package model wraps the generative backend behind a small interface so
// the conversation pipeline can be tested without network calls.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ErrEmptyMessages is returned when a generation is requested with no input.
var ErrEmptyMessages = errors.New("model: empty message list")

// StreamFunc receives one response fragment at a time. Returning an error
// aborts the generation.
type StreamFunc func(ctx context.Context, fragment string) error

// ChatModel produces responses from a prepared message list.
type ChatModel interface {
	// Stream generates a response, delivering fragments to fn as they
	// arrive from the backend.
	Stream(ctx context.Context, msgs []*ai.Message, fn StreamFunc) error

	// Complete generates a response and returns it whole.
	Complete(ctx context.Context, msgs []*ai.Message) (string, error)
}

// Genkit is the production ChatModel backed by a Genkit model reference.
type Genkit struct {
	g         *genkit.Genkit
	modelName string
	genConfig any
	logger    *slog.Logger
}

// NewGenkit creates a ChatModel that generates with the named model.
// genConfig is the provider-shaped generation config (temperature, output
// token cap) attached to every request; nil keeps the provider defaults.
func NewGenkit(g *genkit.Genkit, modelName string, genConfig any, logger *slog.Logger) *Genkit {
	if logger == nil {
		logger = slog.Default()
	}
	return &Genkit{g: g, modelName: modelName, genConfig: genConfig, logger: logger}
}

// options builds the generate options shared by Stream and Complete.
func (m *Genkit) options(msgs []*ai.Message) []ai.GenerateOption {
	opts := []ai.GenerateOption{
		ai.WithModelName(m.modelName),
		ai.WithMessages(msgs...),
	}
	if m.genConfig != nil {
		opts = append(opts, ai.WithConfig(m.genConfig))
	}
	return opts
}

// Stream implements ChatModel.
func (m *Genkit) Stream(ctx context.Context, msgs []*ai.Message, fn StreamFunc) error {
	if len(msgs) == 0 {
		return ErrEmptyMessages
	}

	opts := append(m.options(msgs),
		ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return fn(ctx, chunk.Text())
		}),
	)
	_, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		return fmt.Errorf("generate stream: %w", err)
	}
	return nil
}

// Complete implements ChatModel.
func (m *Genkit) Complete(ctx context.Context, msgs []*ai.Message) (string, error) {
	if len(msgs) == 0 {
		return "", ErrEmptyMessages
	}

	resp, err := genkit.Generate(ctx, m.g, m.options(msgs)...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return resp.Text(), nil
}

package model

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

// The empty-input guard must short-circuit before any backend call, so a nil
// Genkit instance is safe here.

func TestGenkit_Stream_EmptyMessages(t *testing.T) {
	m := NewGenkit(nil, "openai/gpt-4o-mini", nil, nil)

	err := m.Stream(context.Background(), nil, func(context.Context, string) error {
		t.Fatal("stream callback invoked with no input")
		return nil
	})
	if !errors.Is(err, ErrEmptyMessages) {
		t.Fatalf("Stream error = %v, want ErrEmptyMessages", err)
	}
}

func TestGenkit_Complete_EmptyMessages(t *testing.T) {
	m := NewGenkit(nil, "openai/gpt-4o-mini", nil, nil)

	if _, err := m.Complete(context.Background(), nil); !errors.Is(err, ErrEmptyMessages) {
		t.Fatalf("Complete error = %v, want ErrEmptyMessages", err)
	}
}

func TestGenkit_Options_IncludesGenerationConfig(t *testing.T) {
	msgs := []*ai.Message{ai.NewUserMessage(ai.NewTextPart("hola"))}

	// Without a config only the model name and messages are set.
	m := NewGenkit(nil, "openai/gpt-4o-mini", nil, nil)
	if got := len(m.options(msgs)); got != 2 {
		t.Errorf("options without config = %d entries, want 2", got)
	}

	// With a config the request carries it too.
	cfg := map[string]any{"temperature": 0.2, "max_tokens": 1024}
	m = NewGenkit(nil, "openai/gpt-4o-mini", cfg, nil)
	if got := len(m.options(msgs)); got != 3 {
		t.Errorf("options with config = %d entries, want 3", got)
	}
}

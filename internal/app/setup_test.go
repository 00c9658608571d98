package app

import (
	"testing"

	"github.com/chekibot/chekibot/internal/config"
)

func TestQualifiedModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"bare openai model", "openai", "gpt-4o-mini", "openai/gpt-4o-mini"},
		{"bare googleai model", "googleai", "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"already qualified", "openai", "openai/gpt-4o-mini", "openai/gpt-4o-mini"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Provider: tt.provider, ModelName: tt.model}
			if got := qualifiedModelName(cfg); got != tt.want {
				t.Errorf("qualifiedModelName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerationConfig(t *testing.T) {
	cfg := &config.Config{
		Provider:    config.ProviderOpenAI,
		Temperature: 0.3,
		MaxTokens:   2048,
	}

	got := generationConfig(cfg)
	if got["temperature"] != 0.3 {
		t.Errorf("openai temperature = %v, want 0.3", got["temperature"])
	}
	if got["max_tokens"] != 2048 {
		t.Errorf("openai max_tokens = %v, want 2048", got["max_tokens"])
	}

	cfg.Provider = config.ProviderGoogleAI
	got = generationConfig(cfg)
	if got["temperature"] != 0.3 {
		t.Errorf("googleai temperature = %v, want 0.3", got["temperature"])
	}
	if got["maxOutputTokens"] != 2048 {
		t.Errorf("googleai maxOutputTokens = %v, want 2048", got["maxOutputTokens"])
	}
	if _, ok := got["max_tokens"]; ok {
		t.Error("googleai config must not carry the OpenAI key")
	}
}

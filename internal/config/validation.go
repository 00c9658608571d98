package config

import (
	"fmt"
	"log/slog"
	"os"
)

// Validate validates configuration values shared by every command.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Provider and API key. Plugin libraries read the keys directly from the
	// environment; we only fail fast when they are absent.
	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required for provider %q",
				ErrMissingAPIKey, c.Provider)
		}
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for provider %q",
				ErrMissingAPIKey, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q (supported: openai, googleai)", ErrInvalidProvider, c.Provider)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 131072 {
		return fmt.Errorf("%w: must be between 1 and 131,072, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.ContextLength < 1024 {
		return fmt.Errorf("%w: must be at least 1,024 tokens, got %d", ErrInvalidContextLength, c.ContextLength)
	}

	// Chunking: overlap must leave forward progress within each chunk
	if c.MaxChunkTokens < 1 {
		return fmt.Errorf("%w: max_chunk_tokens must be positive, got %d", ErrInvalidChunking, c.MaxChunkTokens)
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.MaxChunkTokens {
		return fmt.Errorf("%w: overlap_tokens must be in [0, max_chunk_tokens), got %d",
			ErrInvalidChunking, c.OverlapTokens)
	}
	if c.Encoding == "" {
		return fmt.Errorf("%w: encoding cannot be empty", ErrInvalidChunking)
	}

	// Retrieval tuning
	if c.HistoryTurns < 1 || c.HistoryTurns > 10 {
		return fmt.Errorf("%w: history_turns must be between 1 and 10, got %d", ErrInvalidRetrieval, c.HistoryTurns)
	}
	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("%w: top_k must be between 1 and 100, got %d", ErrInvalidRetrieval, c.TopK)
	}
	if c.TypeTopK < 1 || c.TypeTopK > 100 {
		return fmt.Errorf("%w: type_top_k must be between 1 and 100, got %d", ErrInvalidRetrieval, c.TypeTopK)
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("%w: min_similarity must be between 0 and 1, got %.2f", ErrInvalidRetrieval, c.MinSimilarity)
	}

	// PostgreSQL
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "chekibot_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password before deploying")
	}

	return nil
}

// ValidateServe validates configuration required by the serve command on top
// of the shared checks: transport credentials for every enabled adapter.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is required when telegram.enabled is true",
			ErrMissingTelegramToken)
	}

	if c.WhatsApp.Enabled {
		if c.WhatsApp.AccessToken == "" || c.WhatsApp.PhoneNumberID == "" || c.WhatsApp.VerifyToken == "" {
			return fmt.Errorf("%w: access_token, phone_number_id and verify_token are all required when whatsapp.enabled is true",
				ErrMissingWhatsAppConfig)
		}
	}

	return nil
}

// ValidateIngest validates configuration required by the ingest command.
func (c *Config) ValidateIngest() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.SourceFile == "" {
		return fmt.Errorf("%w: source_file cannot be empty", ErrInvalidChunking)
	}
	return nil
}

// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, CHEKI_* plus provider secrets)
//  2. Config file (./config.yaml or ~/.chekibot/config.yaml)
//  3. Default values
//
// One immutable *Config is built at process start and passed down; components
// never read configuration ambiently.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the chat model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max output tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidContextLength indicates the context length is out of range.
	ErrInvalidContextLength = errors.New("invalid context length")

	// ErrInvalidChunking indicates chunk size or overlap is out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidRetrieval indicates retrieval tuning values are out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrMissingTelegramToken indicates the Telegram bot token is not set.
	ErrMissingTelegramToken = errors.New("missing Telegram bot token")

	// ErrMissingWhatsAppConfig indicates WhatsApp credentials are incomplete.
	ErrMissingWhatsAppConfig = errors.New("missing WhatsApp configuration")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// TelegramConfig holds Telegram webhook transport settings.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	BotToken string `mapstructure:"bot_token" json:"bot_token"` // SENSITIVE: masked in MarshalJSON
}

// WhatsAppConfig holds WhatsApp Business Cloud API transport settings.
type WhatsAppConfig struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled"`
	AccessToken   string `mapstructure:"access_token" json:"access_token"` // SENSITIVE: masked in MarshalJSON
	PhoneNumberID string `mapstructure:"phone_number_id" json:"phone_number_id"`
	VerifyToken   string `mapstructure:"verify_token" json:"verify_token"` // SENSITIVE: masked in MarshalJSON
}

// TracingConfig holds OTLP trace export settings. Traces are shipped to a
// local collector agent which handles authentication and forwarding.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"` // "openai" (default) or "googleai"
	ModelName     string  `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`         // max output tokens per response
	ContextLength int     `mapstructure:"context_length" json:"context_length"` // token budget for the whole message list

	// Tokenizer / chunking configuration
	Encoding       string  `mapstructure:"encoding" json:"encoding"` // tiktoken encoding name
	MaxChunkTokens int     `mapstructure:"max_chunk_tokens" json:"max_chunk_tokens"`
	OverlapTokens  int     `mapstructure:"overlap_tokens" json:"overlap_tokens"`
	SourceFile     string  `mapstructure:"source_file" json:"source_file"`
	HistoryTurns   int     `mapstructure:"history_turns" json:"history_turns"` // user turns considered by retrieval
	TopK           int     `mapstructure:"top_k" json:"top_k"`
	TypeTopK       int     `mapstructure:"type_top_k" json:"type_top_k"`
	MinSimilarity  float64 `mapstructure:"min_similarity" json:"min_similarity"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server configuration (serve mode only)
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// Transport adapters
	Telegram TelegramConfig `mapstructure:"telegram" json:"telegram"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp" json:"whatsapp"`

	// Observability
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".chekibot")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults and env cover it
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", "gpt-4o-mini")
	viper.SetDefault("embedder_model", "text-embedding-3-small")
	viper.SetDefault("temperature", 0.3)
	viper.SetDefault("max_tokens", 1024)
	viper.SetDefault("context_length", 12288)

	// Tokenizer / chunking defaults
	viper.SetDefault("encoding", "cl100k_base")
	viper.SetDefault("max_chunk_tokens", 500)
	viper.SetDefault("overlap_tokens", 5)
	viper.SetDefault("source_file", "base_file/verificaciones.json")

	// Retrieval defaults
	viper.SetDefault("history_turns", 3)
	viper.SetDefault("top_k", 9)
	viper.SetDefault("type_top_k", 20)
	viper.SetDefault("min_similarity", 0.1)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "chekibot")
	viper.SetDefault("postgres_password", "chekibot_dev_password")
	viper.SetDefault("postgres_db_name", "chekibot")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// HTTP server defaults
	viper.SetDefault("listen_addr", ":8000")
	viper.SetDefault("cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 0)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.agent_host", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "chekibot")
}

// bindEnvVariables binds environment variable overrides explicitly.
// Provider API keys (OPENAI_API_KEY, GEMINI_API_KEY) are read directly by the
// Genkit plugins, not via Viper; Validate() only checks their presence.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "CHEKI_PROVIDER")
	mustBind("model_name", "CHEKI_MODEL_NAME")
	mustBind("embedder_model", "CHEKI_EMBEDDER_MODEL")
	mustBind("listen_addr", "CHEKI_LISTEN_ADDR")
	mustBind("cors_origins", "CHEKI_CORS_ORIGINS")
	mustBind("trust_proxy", "CHEKI_TRUST_PROXY")
	mustBind("rate_burst", "CHEKI_RATE_BURST")
	mustBind("source_file", "CHEKI_SOURCE_FILE")

	mustBind("telegram.enabled", "CHEKI_TELEGRAM_ENABLED")
	mustBind("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	mustBind("whatsapp.enabled", "CHEKI_WHATSAPP_ENABLED")
	mustBind("whatsapp.access_token", "WHATSAPP_ACCESS_TOKEN")
	mustBind("whatsapp.phone_number_id", "WHATSAPP_PHONE_NUMBER_ID")
	mustBind("whatsapp.verify_token", "WHATSAPP_VERIFY_TOKEN")

	mustBind("tracing.enabled", "CHEKI_TRACING_ENABLED")
	mustBind("tracing.agent_host", "CHEKI_TRACING_AGENT_HOST")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
// When adding new sensitive fields (passwords, tokens), update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	if a.PostgresPassword != "" {
		a.PostgresPassword = maskedValue
	}
	if a.Telegram.BotToken != "" {
		a.Telegram.BotToken = maskedValue
	}
	if a.WhatsApp.AccessToken != "" {
		a.WhatsApp.AccessToken = maskedValue
	}
	if a.WhatsApp.VerifyToken != "" {
		a.WhatsApp.VerifyToken = maskedValue
	}
	return json.Marshal(a)
}

// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, SAGE_ prefix for secrets)
//  2. Config file (~/.sage/config.yaml or ./config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider selection, chat model, embedder model and dimension
//   - Ingestion: chunk size, chunk overlap
//   - Retrieval: search top-k
//   - Registry: provider registry base URL, timeout, rate limit
//
// Validation is fail-fast: Load returns an error before any component sees a
// bad value. Sentinel errors support errors.Is checks in callers.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbeddingDim indicates the embedding dimension is out of range.
	ErrInvalidEmbeddingDim = errors.New("invalid embedding dimension")

	// ErrInvalidChunking indicates chunk size/overlap are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the search top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid search top-k")

	// ErrInvalidRegistryURL indicates the provider registry URL is invalid.
	ErrInvalidRegistryURL = errors.New("invalid registry URL")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to 768 dimensions via
	// OutputDimensionality; the index dimension must match EmbeddingDim.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbeddingDim is the default embedding vector dimension.
	DefaultEmbeddingDim = 768

	// DefaultChunkSize is the default chunk window in characters.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is the default overlap between consecutive chunks.
	DefaultChunkOverlap = 50

	// DefaultSearchTopK is the default number of chunks retrieved per query.
	DefaultSearchTopK = 10
)

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider"`       // "googleai" (default) or "ollama"
	ModelName     string `mapstructure:"model_name"`     // e.g. "gemini-2.5-flash", "llama3.3"
	EmbedderModel string `mapstructure:"embedder_model"` // e.g. "gemini-embedding-001"
	EmbeddingDim  int    `mapstructure:"embedding_dim"`  // fixed vector dimension for the index
	OllamaHost    string `mapstructure:"ollama_host"`    // only used when provider is "ollama"

	// Ingestion configuration
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// Retrieval configuration
	SearchTopK int `mapstructure:"search_top_k"`

	// Provider registry configuration
	RegistryURL       string  `mapstructure:"registry_url"`
	RegistryTimeoutMS int     `mapstructure:"registry_timeout_ms"`
	RegistryRPS       float64 `mapstructure:"registry_rps"` // sustained requests per second

	// Logging
	LogLevel string `mapstructure:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json"`

	// Secrets (environment only, never written to the config file)
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sage")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // also support current directory

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedding_dim", DefaultEmbeddingDim)
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("search_top_k", DefaultSearchTopK)

	v.SetDefault("registry_url", "http://localhost:8080")
	v.SetDefault("registry_timeout_ms", 10000)
	v.SetDefault("registry_rps", 5.0)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables.
// Secrets are env-only: SAGE_GEMINI_API_KEY never comes from the config file.
func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("SAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit binds so Unmarshal sees env-only keys.
	_ = v.BindEnv("gemini_api_key", "SAGE_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("registry_url", "SAGE_REGISTRY_URL")
	_ = v.BindEnv("ollama_host", "SAGE_OLLAMA_HOST")
}

// Validate checks configuration consistency.
// Returns a sentinel error (wrapped with context) on the first violation.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGoogleAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)",
			ErrInvalidProvider, c.Provider, ProviderGoogleAI, ProviderOllama)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model is empty", ErrInvalidEmbedderModel)
	}
	if c.EmbeddingDim <= 0 || c.EmbeddingDim > 8192 {
		return fmt.Errorf("%w: %d (must be in 1..8192)", ErrInvalidEmbeddingDim, c.EmbeddingDim)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size %d must be positive", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.SearchTopK <= 0 || c.SearchTopK > 1000 {
		return fmt.Errorf("%w: %d (must be in 1..1000)", ErrInvalidTopK, c.SearchTopK)
	}

	if !strings.HasPrefix(c.RegistryURL, "http://") && !strings.HasPrefix(c.RegistryURL, "https://") {
		return fmt.Errorf("%w: %q", ErrInvalidRegistryURL, c.RegistryURL)
	}

	return nil
}

// RequireAPIKey verifies the API key needed for the configured provider.
// Ollama runs locally and needs none.
func (c *Config) RequireAPIKey() error {
	if c.Provider == ProviderGoogleAI && c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set SAGE_GEMINI_API_KEY", ErrMissingAPIKey)
	}
	return nil
}

// SlogLevel translates the configured log level into a slog level.
// Unknown levels fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package config

import (
	"errors"
	"log/slog"
	"testing"
)

// validConfig returns a Config that passes Validate.
func validConfig() *Config {
	return &Config{
		Provider:      ProviderGoogleAI,
		ModelName:     "gemini-2.5-flash",
		EmbedderModel: DefaultEmbedderModel,
		EmbeddingDim:  DefaultEmbeddingDim,
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		SearchTopK:    DefaultSearchTopK,
		RegistryURL:   "http://localhost:8080",
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "nil config",
			mutate:  nil,
			wantErr: ErrConfigNil,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "openrouter" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "  " },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "zero embedding dimension",
			mutate:  func(c *Config) { c.EmbeddingDim = 0 },
			wantErr: ErrInvalidEmbeddingDim,
		},
		{
			name:    "negative chunk size",
			mutate:  func(c *Config) { c.ChunkSize = -1 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "overlap equals chunk size",
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.ChunkOverlap = -5 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "zero top-k",
			mutate:  func(c *Config) { c.SearchTopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "registry url without scheme",
			mutate:  func(c *Config) { c.RegistryURL = "localhost:8080" },
			wantErr: ErrInvalidRegistryURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg *Config
			if tt.mutate != nil {
				cfg = validConfig()
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := validConfig()
	if err := cfg.RequireAPIKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("RequireAPIKey() error = %v, want ErrMissingAPIKey", err)
	}

	cfg.GeminiAPIKey = "test-key"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("RequireAPIKey() with key set: unexpected error %v", err)
	}

	// Ollama needs no API key.
	cfg = validConfig()
	cfg.Provider = ProviderOllama
	if err := cfg.RequireAPIKey(); err != nil {
		t.Errorf("RequireAPIKey() for ollama: unexpected error %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo}, // unknown falls back to info
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

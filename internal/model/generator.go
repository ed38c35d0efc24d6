// Package model wraps the chat-generation and embedding capabilities behind
// a small surface the agent consumes. Any capability with the same shape is
// pluggable; this package provides the Genkit-backed production one.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/sagekit/sage/internal/config"
	"github.com/sagekit/sage/internal/progress"
)

// StreamCallback receives each text token as it is produced.
// Returning an error aborts the stream.
type StreamCallback func(ctx context.Context, text string) error

// ErrNoEmbedder indicates the configured embedder could not be resolved.
var ErrNoEmbedder = errors.New("embedder not found")

// Genkit is the Genkit-backed generation capability.
// Init must complete before Generate or Embedder are used.
type Genkit struct {
	cfg       *config.Config
	logger    *slog.Logger
	g         *genkit.Genkit
	modelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	embedder  ai.Embedder
}

// New creates an uninitialized Genkit generator.
func New(cfg *config.Config, logger *slog.Logger) *Genkit {
	if logger == nil {
		logger = slog.Default()
	}
	return &Genkit{
		cfg:       cfg,
		logger:    logger,
		modelName: cfg.Provider + "/" + cfg.ModelName,
	}
}

// Init loads the configured provider plugin, registers the chat model and
// embedder, and reports warm-up progress milestones between 0.1 and 0.5.
func (m *Genkit) Init(ctx context.Context, report progress.Func) error {
	report.Emit(progress.Report{Message: "Loading chat model...", Progress: 0.1})

	switch m.cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: m.cfg.OllamaHost}
		m.g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if m.g == nil {
			return errors.New("initializing genkit with ollama provider")
		}
		report.Emit(progress.Report{Message: "Registering model...", Progress: 0.3})
		// Ollama requires explicit model registration (no auto-discovery).
		ollamaPlugin.DefineModel(m.g, ollama.ModelDefinition{
			Name: m.cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(m.g, m.cfg.OllamaHost, m.cfg.EmbedderModel, nil)
		m.embedder = ollama.Embedder(m.g, m.cfg.OllamaHost)

	default: // googleai
		m.g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: m.cfg.GeminiAPIKey}))
		if m.g == nil {
			return errors.New("initializing genkit with googleai provider")
		}
		report.Emit(progress.Report{Message: "Resolving embedder...", Progress: 0.3})
		m.embedder = googlegenai.GoogleAIEmbedder(m.g, m.cfg.EmbedderModel)
	}

	if m.embedder == nil {
		return fmt.Errorf("%w: %q for provider %q", ErrNoEmbedder, m.cfg.EmbedderModel, m.cfg.Provider)
	}

	m.logger.Info("chat model ready", "provider", m.cfg.Provider, "model", m.cfg.ModelName)
	report.Emit(progress.Report{Message: "Chat model ready", Progress: 0.5})
	return nil
}

// Embedder returns the embedding capability resolved during Init.
func (m *Genkit) Embedder() ai.Embedder {
	return m.embedder
}

// Generate invokes the chat model with the given prompt messages.
// If cb is non-nil, each produced token is forwarded to it in generation
// order; the returned text is the full concatenated response either way.
func (m *Genkit) Generate(ctx context.Context, msgs []*ai.Message, cb StreamCallback) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithMessages(msgs...),
		ai.WithModelName(m.modelName),
	}

	if cb != nil {
		opts = append(opts, ai.WithStreaming(forwardChunks(cb)))
	}

	resp, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}
	return resp.Text(), nil
}

// forwardChunks adapts a model response chunk stream to per-token text
// callbacks, skipping empty parts.
func forwardChunks(cb StreamCallback) func(context.Context, *ai.ModelResponseChunk) error {
	return func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
		if chunk == nil {
			return nil
		}
		for _, part := range chunk.Content {
			if part.Text == "" {
				continue
			}
			if err := cb(ctx, part.Text); err != nil {
				return err
			}
		}
		return nil
	}
}

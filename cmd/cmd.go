package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sagekit/sage/internal/agent"
	"github.com/sagekit/sage/internal/config"
	"github.com/sagekit/sage/internal/log"
	"github.com/sagekit/sage/internal/model"
	"github.com/sagekit/sage/internal/progress"
	"github.com/sagekit/sage/internal/provider"
)

// loadConfig loads and validates configuration, printing setup guidance
// to stderr when the API key is missing.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: SAGE_GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "sage requires a Gemini API key for the googleai provider.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export SAGE_GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
		return nil, err
	}

	return cfg, nil
}

// newLogger builds the process logger from configuration.
// Logs go to stderr; stdout is reserved for conversation output.
func newLogger(cfg *config.Config) log.Logger {
	return log.NewWithWriter(os.Stderr, log.Config{
		Level: cfg.SlogLevel(),
		JSON:  cfg.LogJSON,
	})
}

// buildAgent wires the generation, registry, and pipeline layers into an
// uninitialized agent.
func buildAgent(cfg *config.Config, logger log.Logger) (*agent.Agent, error) {
	var opts []provider.ClientOption
	if cfg.RegistryTimeoutMS > 0 {
		opts = append(opts, provider.WithTimeout(time.Duration(cfg.RegistryTimeoutMS)*time.Millisecond))
	}
	if cfg.RegistryRPS > 0 {
		opts = append(opts, provider.WithRateLimit(cfg.RegistryRPS))
	}
	client, err := provider.NewClient(cfg.RegistryURL, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating registry client: %w", err)
	}

	return agent.New(agent.Config{
		Generator:    model.New(cfg, logger),
		Fetcher:      provider.NewFetcher(client, logger),
		Logger:       logger,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		EmbeddingDim: cfg.EmbeddingDim,
		SearchTopK:   cfg.SearchTopK,
	})
}

// initializeAgent runs the agent's startup sequence, rendering progress
// milestones to out on a single updating line.
func initializeAgent(ctx context.Context, ag *agent.Agent, out io.Writer) error {
	err := ag.Initialize(ctx, func(r progress.Report) {
		if r.RAG != nil {
			fmt.Fprintf(out, "\r\033[K[%3.0f%%] %s (%d/%d items, %d errors)",
				r.Progress*100, r.Message, r.RAG.Completed, r.RAG.Total, r.RAG.Errors)
			return
		}
		fmt.Fprintf(out, "\r\033[K[%3.0f%%] %s", r.Progress*100, r.Message)
	})
	fmt.Fprintln(out)
	return err
}

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sagekit/sage/internal/knowledge"
	"github.com/sagekit/sage/internal/progress"
)

// SyncType is the RAGUpdate type reported during provider ingestion.
const SyncType = "provider-sync"

// Registry is the read-only query contract of the provider registry.
// Defined by the consumer; *Client satisfies it.
type Registry interface {
	Providers(ctx context.Context) (providers []Provider, rejected int, err error)
	ProviderData(ctx context.Context, providerID string) (items []DataItem, rejected int, err error)
}

// Fetcher pulls every provider's data items from the registry and wraps
// them into documents with provenance metadata.
type Fetcher struct {
	registry Registry
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher over the given registry.
func NewFetcher(registry Registry, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{registry: registry, logger: logger}
}

// FetchAll retrieves all providers and their data items in a single pass
// (one request per provider), then wraps each item into a Document tagged
// with the provider's identity and an ingestion timestamp.
//
// Failure policy: a single provider's failure is counted in the progress
// RAGUpdate and that provider is skipped; ingestion continues. A total
// registry failure reports one error and returns an empty slice; a cold
// start with zero context is a valid system state, so no error is raised.
//
// The total item count is reported before the first Document is produced,
// letting a caller size a progress bar up front.
func (f *Fetcher) FetchAll(ctx context.Context, report progress.Func) []knowledge.Document {
	providers, errorCount, err := f.registry.Providers(ctx)
	if err != nil {
		f.logger.Warn("provider registry unreachable, continuing with zero documents", "error", err)
		report.Emit(progress.Report{
			Message:  "Provider registry unavailable",
			Progress: 0.8,
			RAG:      &progress.RAGUpdate{Type: SyncType, Errors: 1},
		})
		return nil
	}

	if len(providers) == 0 {
		report.Emit(progress.Report{
			Message:  "No data providers registered",
			Progress: 0.8,
			RAG:      &progress.RAGUpdate{Type: SyncType},
		})
		return nil
	}

	// One pass over the registry: each provider's items are fetched exactly
	// once and held until the full total is known.
	type fetched struct {
		provider Provider
		items    []DataItem
	}

	var (
		collected []fetched
		total     int
	)
	for _, p := range providers {
		items, rejected, err := f.registry.ProviderData(ctx, p.ID)
		errorCount += rejected
		if err != nil {
			f.logger.Warn("skipping provider after fetch failure",
				"provider_id", p.ID, "provider_name", p.Name, "error", err)
			errorCount++
			continue
		}
		collected = append(collected, fetched{provider: p, items: items})
		total += len(items)
	}

	report.Emit(progress.Report{
		Message:  fmt.Sprintf("Syncing %d items from %d providers", total, len(providers)),
		Progress: 0.8,
		RAG: &progress.RAGUpdate{
			Type:       SyncType,
			Total:      total,
			Errors:     errorCount,
			InProgress: true,
		},
	})

	now := time.Now()
	docs := make([]knowledge.Document, 0, total)
	for _, fp := range collected {
		for _, item := range fp.items {
			docs = append(docs, knowledge.Document{
				ID:      uuid.NewString(),
				Content: item.Content,
				Metadata: knowledge.Metadata{
					Source:       "provider",
					ProviderID:   fp.provider.ID,
					ProviderName: fp.provider.Name,
					Type:         knowledge.TypeDocument,
					Timestamp:    now,
				},
			})
		}
	}

	report.Emit(progress.Report{
		Message:  fmt.Sprintf("Synced %d items from %d providers", len(docs), len(collected)),
		Progress: 0.8,
		RAG: &progress.RAGUpdate{
			Type:      SyncType,
			Total:     total,
			Completed: len(docs),
			Errors:    errorCount,
		},
	})

	f.logger.Info("provider data fetched",
		"providers", len(providers),
		"documents", len(docs),
		"errors", errorCount)
	return docs
}

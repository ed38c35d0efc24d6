package provider

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRegistryUnavailable indicates the provider registry could not be
	// reached at all. Ingestion treats this as a cold start with zero
	// context, not a fatal condition.
	ErrRegistryUnavailable = errors.New("provider registry unavailable")

	// ErrInvalidProvider indicates a provider record failed validation.
	ErrInvalidProvider = errors.New("invalid provider record")

	// ErrInvalidDataItem indicates a data item failed validation.
	ErrInvalidDataItem = errors.New("invalid data item")
)

// Provider is one entry in the external provider registry.
// The agent only ever reads providers; mutations belong to a separate
// administrative surface.
type Provider struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ValueScore    int    `json:"valueScore"` // 1..100
	WalletAddress string `json:"walletAddress"`
}

// validate rejects malformed registry payloads at the ingestion boundary.
func (p Provider) validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidProvider)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: provider %q has empty name", ErrInvalidProvider, p.ID)
	}
	if p.ValueScore < 1 || p.ValueScore > 100 {
		return fmt.Errorf("%w: provider %q has value score %d outside 1..100",
			ErrInvalidProvider, p.ID, p.ValueScore)
	}
	return nil
}

// DataItem is one raw unit of content fetched for a provider.
type DataItem struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// validate rejects malformed data items at the ingestion boundary.
func (d DataItem) validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDataItem)
	}
	if d.Content == "" {
		return fmt.Errorf("%w: item %q has empty content", ErrInvalidDataItem, d.ID)
	}
	return nil
}

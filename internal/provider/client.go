package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Default client tuning.
const (
	// DefaultTimeout bounds each registry request.
	DefaultTimeout = 10 * time.Second

	// DefaultRPS is the sustained request rate against the registry.
	DefaultRPS = 5

	// defaultBurst allows short request bursts while fetching many providers.
	defaultBurst = 10

	// maxResponseBytes caps registry response bodies.
	maxResponseBytes = 16 << 20 // 16 MiB
)

// Client is a read-only HTTP client for the provider registry.
//
// Endpoints:
//
//	GET {base}/providers           -> []Provider
//	GET {base}/providers/{id}/data -> []DataItem
//
// Responses are parsed and strictly validated; malformed records are
// rejected and reported via the rejected count, never silently ingested.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit sets the sustained request rate.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), defaultBurst)
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client (used in tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a registry client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid registry base URL %q", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    u.String(),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(DefaultRPS, defaultBurst),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Providers retrieves the full provider list.
// Invalid records are skipped; rejected reports how many were dropped.
func (c *Client) Providers(ctx context.Context) (providers []Provider, rejected int, err error) {
	var raw []Provider
	if err := c.getJSON(ctx, c.baseURL+"/providers", &raw); err != nil {
		return nil, 0, err
	}

	providers = make([]Provider, 0, len(raw))
	for _, p := range raw {
		if vErr := p.validate(); vErr != nil {
			c.logger.Warn("rejecting malformed provider record", "error", vErr)
			rejected++
			continue
		}
		providers = append(providers, p)
	}
	return providers, rejected, nil
}

// ProviderData retrieves all data items for one provider.
// Invalid items are skipped; rejected reports how many were dropped.
func (c *Client) ProviderData(ctx context.Context, providerID string) (items []DataItem, rejected int, err error) {
	if providerID == "" {
		return nil, 0, fmt.Errorf("%w: empty id", ErrInvalidProvider)
	}

	var raw []DataItem
	endpoint := c.baseURL + "/providers/" + url.PathEscape(providerID) + "/data"
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, 0, err
	}

	items = make([]DataItem, 0, len(raw))
	for _, item := range raw {
		if vErr := item.validate(); vErr != nil {
			c.logger.Warn("rejecting malformed data item", "provider_id", providerID, "error", vErr)
			rejected++
			continue
		}
		items = append(items, item)
	}
	return items, rejected, nil
}

// getJSON performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: registry returned %d", ErrRegistryUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("registry returned %d for %s", resp.StatusCode, endpoint)
	}

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decoding registry response: %w", err)
	}
	return nil
}

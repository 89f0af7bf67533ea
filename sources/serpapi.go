package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"valuescout/config"

	"golang.org/x/time/rate"
)

// ErrAPIDisabled is returned when no SerpAPI key is configured
var ErrAPIDisabled = errors.New("search API disabled: SERPAPI_KEY not set")

// SerpClient is the shared HTTP client for SerpAPI calls. Outbound requests
// are paced by a token bucket so concurrent sweeps and searches share one budget.
type SerpClient struct {
	cfg          config.SearchConfig
	client       *http.Client
	limiter      *rate.Limiter
	disabledOnce sync.Once
}

func NewSerpClient(cfg config.SearchConfig) *SerpClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &SerpClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Enabled reports whether calls will be attempted
func (c *SerpClient) Enabled() bool {
	return c.cfg.IsValid()
}

// Config returns the search settings the client was built with
func (c *SerpClient) Config() config.SearchConfig {
	return c.cfg
}

// Get issues one search call and decodes the JSON body into out
func (c *SerpClient) Get(ctx context.Context, params url.Values, out any) error {
	if !c.Enabled() {
		c.disabledOnce.Do(func() {
			log.Printf("⚠️ SerpAPI disabled, marketplace searches return no results")
		})
		return ErrAPIDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("search API returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode search response: %w", err)
	}
	return nil
}

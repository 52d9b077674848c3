// Package request provides the shared outbound HTTP client with retries,
// per-provider backoff, caching, and usage tracking.
package request

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"windrose/pkg/cache"
	"windrose/pkg/tracker"
	"windrose/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("Windrose Compass (windrose/%s)", version.Version)

// ClientConfig holds retry and timeout settings.
type ClientConfig struct {
	Retries   int
	Timeout   time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Client performs GET requests with caching, retries, and backoff.
type Client struct {
	httpClient *http.Client
	cache      cache.Cacher
	tracker    *tracker.Tracker
	backoff    *hostBackoff
	retries    int
}

// New creates a Client.
func New(cfg ClientConfig, c cache.Cacher, t *tracker.Tracker) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      c,
		tracker:    t,
		backoff:    newHostBackoff(cfg.BaseDelay, cfg.MaxDelay),
		retries:    cfg.Retries,
	}
}

// Get performs a GET request, consulting the cache first if a key is provided.
func (c *Client) Get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := normalizeProvider(parsedURL.Host)

	if cacheKey != "" {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.trackCacheHit(provider)
			slog.Debug("Cache hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.trackCacheMiss(provider)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.backoff.Wait(ctx, provider); err != nil {
			return nil, err
		}
		c.trackRequest(provider)

		body, err := c.doGet(ctx, u)
		if err == nil {
			c.backoff.RecordSuccess(provider)
			if cacheKey != "" {
				if cerr := c.cache.SetCache(ctx, cacheKey, body); cerr != nil {
					slog.Warn("Failed to cache response", "provider", provider, "error", cerr)
				}
			}
			return body, nil
		}

		lastErr = err
		c.trackFailure(provider)
		c.backoff.RecordFailure(provider)
		slog.Debug("Request failed", "provider", provider, "attempt", attempt+1, "error", err)
	}

	return nil, fmt.Errorf("request to %s failed: %w", provider, lastErr)
}

func (c *Client) doGet(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *Client) trackRequest(p string) {
	if c.tracker != nil {
		c.tracker.TrackRequest(p)
	}
}

func (c *Client) trackFailure(p string) {
	if c.tracker != nil {
		c.tracker.TrackFailure(p)
	}
}

func (c *Client) trackCacheHit(p string) {
	if c.tracker != nil {
		c.tracker.TrackCacheHit(p)
	}
}

func (c *Client) trackCacheMiss(p string) {
	if c.tracker != nil {
		c.tracker.TrackCacheMiss(p)
	}
}

// normalizeProvider reduces a host to a stable provider name for tracking
// and backoff.
func normalizeProvider(host string) string {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "unknown"
	}
	return host
}

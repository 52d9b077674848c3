// Package locate acquires the user position, with a bounded acquisition
// budget and a configured fallback coordinate.
package locate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"windrose/pkg/geo"
	"windrose/pkg/request"
)

// ErrNoFix is returned when a locator cannot produce a position.
var ErrNoFix = errors.New("no position fix available")

// Fix is a position with its acquisition time.
type Fix struct {
	Point geo.Point
	At    time.Time
}

// Locator produces one-shot position fixes.
type Locator interface {
	Locate(ctx context.Context) (Fix, error)
}

// FuncLocator adapts a function to the Locator interface.
type FuncLocator func(ctx context.Context) (Fix, error)

func (f FuncLocator) Locate(ctx context.Context) (Fix, error) { return f(ctx) }

// StaticLocator always returns a fixed coordinate.
type StaticLocator struct {
	Point geo.Point
}

func (s StaticLocator) Locate(context.Context) (Fix, error) {
	return Fix{Point: s.Point, At: time.Now()}, nil
}

// Config holds resolver tuning.
type Config struct {
	Timeout  time.Duration // acquisition budget, default 10s
	MaxAge   time.Duration // accepted staleness of a cached fix, default 30s
	Fallback geo.Point     // coordinate used when acquisition fails
}

// Resolver wraps a Locator with timeout, staleness tolerance, and fallback.
type Resolver struct {
	mu      sync.Mutex
	loc     Locator
	timeout time.Duration
	maxAge  time.Duration
	fb      geo.Point
	last    Fix
	hasLast bool
}

// NewResolver creates a Resolver.
func NewResolver(loc Locator, cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * time.Second
	}
	return &Resolver{
		loc:     loc,
		timeout: cfg.Timeout,
		maxAge:  cfg.MaxAge,
		fb:      cfg.Fallback,
	}
}

// Resolve returns the user position. A fix no older than the staleness
// tolerance is reused without a new acquisition. On failure or timeout the
// fallback coordinate is returned together with the cause; the caller
// continues with the fallback rather than aborting.
func (r *Resolver) Resolve(ctx context.Context) (geo.Point, error) {
	r.mu.Lock()
	if r.hasLast && time.Since(r.last.At) <= r.maxAge {
		p := r.last.Point
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	if r.loc == nil {
		return r.fb, ErrNoFix
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fix, err := r.loc.Locate(ctx)
	if err != nil {
		return r.fb, fmt.Errorf("geolocation failed, using fallback: %w", err)
	}
	if fix.At.IsZero() {
		fix.At = time.Now()
	}

	r.mu.Lock()
	r.last = fix
	r.hasLast = true
	r.mu.Unlock()

	return fix.Point, nil
}

// Fallback returns the configured fallback coordinate.
func (r *Resolver) Fallback() geo.Point {
	return r.fb
}

// HTTPLocator resolves an approximate position from an IP geolocation
// endpoint (ip-api style JSON).
type HTTPLocator struct {
	client *request.Client
	url    string
}

// NewHTTPLocator creates an HTTPLocator querying the given endpoint.
func NewHTTPLocator(client *request.Client, url string) *HTTPLocator {
	return &HTTPLocator{client: client, url: url}
}

type ipGeoResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (h *HTTPLocator) Locate(ctx context.Context) (Fix, error) {
	body, err := h.client.Get(ctx, h.url, "")
	if err != nil {
		return Fix{}, err
	}

	var resp ipGeoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Fix{}, fmt.Errorf("failed to parse geolocation response: %w", err)
	}
	if resp.Status != "" && resp.Status != "success" {
		return Fix{}, fmt.Errorf("%w: %s", ErrNoFix, resp.Message)
	}

	return Fix{Point: geo.Point{Lat: resp.Lat, Lon: resp.Lon}, At: time.Now()}, nil
}

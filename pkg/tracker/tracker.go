// Package tracker collects usage counters per upstream provider.
package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks request statistics per provider.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds metrics for a specific provider.
// Fields are accessed atomically.
type ProviderStats struct {
	Requests    int64
	Failures    int64
	CacheHits   int64
	CacheMisses int64
	ZeroResults int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{stats: make(map[string]*ProviderStats)}
}

func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackRequest increments the outbound request counter.
func (t *Tracker) TrackRequest(provider string) {
	atomic.AddInt64(&t.getStats(provider).Requests, 1)
}

func (t *Tracker) TrackFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).Failures, 1)
}

func (t *Tracker) TrackCacheHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
}

func (t *Tracker) TrackZeroResult(provider string) {
	atomic.AddInt64(&t.getStats(provider).ZeroResults, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats)
	for k, v := range t.stats {
		result[k] = ProviderStats{
			Requests:    atomic.LoadInt64(&v.Requests),
			Failures:    atomic.LoadInt64(&v.Failures),
			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
			ZeroResults: atomic.LoadInt64(&v.ZeroResults),
		}
	}
	return result
}

package history

import (
	"log/slog"
	"sync"

	"github.com/shortstrade/feedcore/internal/model"
	"github.com/shortstrade/feedcore/internal/series"
)

// Persister saves a snapshot of the cache for session-reload survival.
// Implementations are best-effort: a failed write never affects the cache.
type Persister interface {
	PersistHistory(entries map[string]model.CachedSeries) error
}

// PersisterFunc is a function adapter for Persister.
type PersisterFunc func(map[string]model.CachedSeries) error

func (f PersisterFunc) PersistHistory(entries map[string]model.CachedSeries) error {
	return f(entries)
}

// Cache is the process-wide store of best-known series per market.
type Cache struct {
	mu      sync.Mutex
	entries map[string]model.CachedSeries

	persist Persister
	logger  *slog.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithPersister sets the snapshot persistence hook.
func WithPersister(p Persister) CacheOption {
	return func(c *Cache) { c.persist = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]model.CachedSeries),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for a market, if any.
func (c *Cache) Get(marketID string) (model.CachedSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[marketID]
	return e, ok
}

// HasEntry reports whether any entry exists for a market, loading included.
func (c *Cache) HasEntry(marketID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[marketID]
	return ok
}

// HasResult reports whether a settled entry exists that later scheduling
// passes should not refetch. Error entries stay fetchable so a transient
// failure heals when the item scrolls back into view.
func (c *Cache) HasResult(marketID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[marketID]
	return ok && (e.Status == model.StatusOK || e.Status == model.StatusEmpty)
}

// Register creates a loading entry for a market on first cache miss.
// A no-op when any entry already exists.
func (c *Cache) Register(marketID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[marketID]; !ok {
		c.entries[marketID] = model.CachedSeries{Status: model.StatusLoading}
	}
}

// Publish offers a candidate entry and reports whether it was applied.
//
// A candidate is applied when:
//   - no entry exists for the market, or
//   - the candidate is ok and improves on the current entry: wider span,
//     or equal span with more samples, or
//   - the candidate is empty/error and the current entry has no settled
//     result yet (still loading). A settled entry is never downgraded.
func (c *Cache) Publish(marketID string, candidate model.CachedSeries) bool {
	c.mu.Lock()
	applied := c.publishLocked(marketID, candidate)
	var snapshot map[string]model.CachedSeries
	if applied && c.persist != nil {
		snapshot = c.copyLocked()
	}
	c.mu.Unlock()

	if snapshot != nil {
		// Best-effort: a full session store or an unreachable backend must
		// not affect in-memory correctness.
		if err := c.persist.PersistHistory(snapshot); err != nil {
			c.logger.Debug("history snapshot persist failed", "err", err)
		}
	}

	return applied
}

func (c *Cache) publishLocked(marketID string, candidate model.CachedSeries) bool {
	candidate.SpanSec = series.Span(candidate.Samples)

	current, exists := c.entries[marketID]
	if !exists {
		c.entries[marketID] = candidate
		return true
	}

	switch candidate.Status {
	case model.StatusOK:
		if candidate.SpanSec > current.SpanSec ||
			(candidate.SpanSec == current.SpanSec && len(candidate.Samples) > len(current.Samples)) {
			c.entries[marketID] = candidate
			return true
		}
	case model.StatusEmpty, model.StatusError:
		if current.Status == model.StatusLoading {
			c.entries[marketID] = candidate
			return true
		}
	}

	return false
}

// Entries returns a copy of all entries, for persistence or inspection.
func (c *Cache) Entries() map[string]model.CachedSeries {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

func (c *Cache) copyLocked() map[string]model.CachedSeries {
	out := make(map[string]model.CachedSeries, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Restore seeds the cache from a persisted snapshot. Existing entries win
// over restored ones; restore happens once at session start, before any
// fetches, so in practice the cache is empty.
func (c *Cache) Restore(entries map[string]model.CachedSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		if _, ok := c.entries[k]; !ok {
			v.SpanSec = series.Span(v.Samples)
			c.entries[k] = v
		}
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset clears all entries. Used on explicit session teardown.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]model.CachedSeries)
}

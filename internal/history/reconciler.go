package history

import (
	"log/slog"
	"sync"

	"github.com/shortstrade/feedcore/internal/model"
	"github.com/shortstrade/feedcore/internal/series"
)

// Update is the payload delivered to series observers.
type Update struct {
	MarketID string
	Series   model.CachedSeries
}

// Observer receives de-bounced series updates.
type Observer interface {
	OnSeriesUpdate(Update)
}

// ObserverFunc is a function adapter for Observer.
type ObserverFunc func(Update)

func (f ObserverFunc) OnSeriesUpdate(u Update) { f(u) }

// keyState is the per-market notification de-bounce. It is deliberately
// separate from the cache entry: it records what the observer has already
// been told, and is torn down with the owning chart, while the cache entry
// outlives it.
type keyState struct {
	bestSpan      int64
	bestPoints    int
	nonOKNotified bool
}

// Reconciler merges candidate series from racing sources (seed, fetch,
// widened refetch) into the cache and notifies an observer only on
// meaningful improvement.
type Reconciler struct {
	mu     sync.Mutex
	states map[string]*keyState

	cache    *Cache
	observer Observer
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler publishing into cache.
func NewReconciler(cache *Cache, observer Observer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		states:   make(map[string]*keyState),
		cache:    cache,
		observer: observer,
		logger:   logger,
	}
}

// OfferSeed publishes seed history embedded in a feed item. An absent or
// empty seed says nothing about the market, so it is ignored rather than
// recorded as a negative result.
func (r *Reconciler) OfferSeed(marketID string, seed []model.Sample) {
	normalized := series.FromSamples(seed)
	if len(normalized) == 0 {
		return
	}
	r.offer(marketID, model.CachedSeries{
		Samples: normalized,
		Quality: model.QualitySeed,
		Status:  model.StatusOK,
	})
}

// Offer publishes a fetch result for a market.
func (r *Reconciler) Offer(marketID string, cand model.Candidate) {
	switch cand.Kind() {
	case model.CandidateOK:
		r.offer(marketID, model.CachedSeries{
			Samples: series.FromSamples(cand.Samples()),
			Quality: cand.Quality(),
			Status:  model.StatusOK,
		})
	case model.CandidateEmpty:
		r.offer(marketID, model.CachedSeries{Status: model.StatusEmpty})
	case model.CandidateError:
		r.logger.Debug("series fetch failed", "market", marketID, "err", cand.Err())
		r.offer(marketID, model.CachedSeries{Status: model.StatusError})
	}
}

// offer publishes a candidate and decides whether the observer hears about
// the resulting cache state. The observer sees any number of ok
// improvements but at most one empty/error notification per key.
func (r *Reconciler) offer(marketID string, candidate model.CachedSeries) {
	r.cache.Publish(marketID, candidate)

	current, ok := r.cache.Get(marketID)
	if !ok {
		return
	}

	r.mu.Lock()
	st := r.states[marketID]
	if st == nil {
		st = &keyState{}
		r.states[marketID] = st
	}

	var notify bool
	switch current.Status {
	case model.StatusOK:
		if current.SpanSec > st.bestSpan ||
			(current.SpanSec == st.bestSpan && len(current.Samples) > st.bestPoints) {
			st.bestSpan = current.SpanSec
			st.bestPoints = len(current.Samples)
			notify = true
		}
	case model.StatusEmpty, model.StatusError:
		if !st.nonOKNotified {
			st.nonOKNotified = true
			notify = true
		}
	}
	r.mu.Unlock()

	if notify && r.observer != nil {
		r.observer.OnSeriesUpdate(Update{MarketID: marketID, Series: current})
	}
}

// ResetKey drops the de-bounce state for one market. Called when the chart
// owning that market is torn down; the cache entry itself survives.
func (r *Reconciler) ResetKey(marketID string) {
	r.mu.Lock()
	delete(r.states, marketID)
	r.mu.Unlock()
}

// Reset drops all de-bounce state.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.states = make(map[string]*keyState)
	r.mu.Unlock()
}

package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shortstrade/feedcore/internal/api"
	"github.com/shortstrade/feedcore/internal/feed"
	"github.com/shortstrade/feedcore/internal/history"
	"github.com/shortstrade/feedcore/internal/metrics"
	"github.com/shortstrade/feedcore/internal/model"
	"github.com/shortstrade/feedcore/internal/scheduler"
	"github.com/shortstrade/feedcore/internal/snapshot"
)

// Backend is the slice of the API client the engine needs. Satisfied by
// *api.Client.
type Backend interface {
	GetFeedBatch(ctx context.Context, count int, exclude map[string]struct{}) ([]model.FeedItem, error)
	GetSeriesHistory(ctx context.Context, req api.SeriesRequest) ([]model.Sample, error)
}

// Config holds engine configuration.
type Config struct {
	Session string // Snapshot key; empty disables persistence

	// How many items around the active one count as nearby for history
	// prefetch.
	WindowBehind int // default 1
	WindowAhead  int // default 2

	PeriodMinutes int // History granularity hint (default 60)
	FallbackHours int // Lookback when a market has no known start

	Queue        feed.QueueConfig
	Scheduler    scheduler.Config
	EmbedTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WindowBehind:  1,
		WindowAhead:   2,
		PeriodMinutes: 60,
		Queue:         feed.DefaultQueueConfig(),
		Scheduler:     scheduler.DefaultConfig(),
		EmbedTimeout:  feed.DefaultReadyTimeout,
	}
}

// Engine is the composition root of the feed pipeline.
type Engine struct {
	cfg     Config
	backend Backend
	store   snapshot.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	cache      *history.Cache
	reconciler *history.Reconciler
	scheduler  *scheduler.Scheduler
	queue      *feed.Queue
	tracker    *feed.Tracker
	watchdog   *feed.EmbedWatchdog

	// Observers, set via options before Start and read-only after.
	seriesObs    history.Observer
	removableObs feed.RemovableObserver

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	markets map[string]model.MarketRef // marketID -> latest known ref
	pass    *scheduler.Pass
	started bool
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithSeriesObserver sets the observer for de-bounced series updates.
func WithSeriesObserver(obs history.Observer) Option {
	return func(e *Engine) { e.seriesObs = obs }
}

// WithRemovableObserver sets the observer for items flagged removable by
// the embed watchdog.
func WithRemovableObserver(obs feed.RemovableObserver) Option {
	return func(e *Engine) { e.removableObs = obs }
}

// New creates an engine. store and m may be nil; observers default to
// no-ops.
func New(cfg Config, backend Backend, store snapshot.Store, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.WindowBehind < 0 {
		cfg.WindowBehind = 0
	}
	if cfg.WindowBehind == 0 && cfg.WindowAhead == 0 {
		cfg.WindowBehind = def.WindowBehind
		cfg.WindowAhead = def.WindowAhead
	}
	if cfg.PeriodMinutes == 0 {
		cfg.PeriodMinutes = def.PeriodMinutes
	}
	if cfg.EmbedTimeout == 0 {
		cfg.EmbedTimeout = def.EmbedTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:     cfg,
		backend: backend,
		store:   store,
		metrics: m,
		logger:  logger,
		markets: make(map[string]model.MarketRef),
	}
	for _, opt := range opts {
		opt(e)
	}

	cacheOpts := []history.CacheOption{history.WithLogger(logger)}
	if store != nil && cfg.Session != "" {
		cacheOpts = append(cacheOpts, history.WithPersister(history.PersisterFunc(e.persistHistory)))
	}
	e.cache = history.NewCache(cacheOpts...)
	e.reconciler = history.NewReconciler(e.cache, history.ObserverFunc(e.onSeriesUpdate), logger)
	e.scheduler = scheduler.New(cfg.Scheduler, e.cache, scheduler.ResultHandlerFunc(e.onFetchResult), logger)
	e.queue = feed.NewQueue(cfg.Queue, feed.BatchSourceFunc(e.fetchFeedBatch), logger)
	e.tracker = feed.NewTracker(e.queue, feed.ActiveObserverFunc(e.onActiveChange))
	e.watchdog = feed.NewEmbedWatchdog(cfg.EmbedTimeout, feed.RemovableObserverFunc(e.onRemovable), logger)

	return e
}

// Start restores the previous session snapshot, primes the queue with the
// first batch and activates item zero.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	e.ctx, e.cancel = context.WithCancel(ctx)

	e.restoreSnapshot()

	if err := e.queue.Prime(e.ctx); err != nil {
		e.logger.Warn("initial feed batch failed", "err", err)
	}

	if e.queue.Len() > 0 {
		e.tracker.OnPositionChange(0)
	}

	e.logger.Info("engine started",
		"session", e.cfg.Session,
		"queue_len", e.queue.Len(),
		"restored_series", e.cache.Len(),
	)
	return nil
}

// Stop cancels outstanding work and saves a final snapshot.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	pass := e.pass
	e.pass = nil
	e.mu.Unlock()

	if pass != nil {
		pass.Cancel()
		select {
		case <-pass.Done():
		case <-ctx.Done():
		}
	}
	e.watchdog.Stop()
	if e.cancel != nil {
		e.cancel()
	}

	e.saveSnapshot(ctx)
	e.logger.Info("engine stopped", "session", e.cfg.Session)
	return nil
}

// OnPositionChange reports a scroll to rawIndex.
func (e *Engine) OnPositionChange(rawIndex int) { e.tracker.OnPositionChange(rawIndex) }

// Advance moves one item forward (programmatic skip).
func (e *Engine) Advance() { e.tracker.Advance() }

// Retreat moves one item back.
func (e *Engine) Retreat() { e.tracker.Retreat() }

// CurrentIndex returns the active item index.
func (e *Engine) CurrentIndex() int { return e.tracker.CurrentIndex() }

// Items returns a copy of the current queue.
func (e *Engine) Items() []model.FeedItem { return e.queue.Items() }

// Series returns the cached history for a market.
func (e *Engine) Series(marketID string) (model.CachedSeries, bool) { return e.cache.Get(marketID) }

// EmbedReady reports that an external embed completed its ready handshake.
func (e *Engine) EmbedReady(itemID string) { e.watchdog.Ready(itemID) }

// EmbedBlocked reports that an external embed signalled failure.
func (e *Engine) EmbedBlocked(itemID string) { e.watchdog.Blocked(itemID) }

// HandleInjection splices a side-channel clip near the current position.
// Implements inject.Handler.
func (e *Engine) HandleInjection(ev model.InjectionEvent) {
	if !e.queue.Inject(ev, e.tracker.CurrentIndex()) {
		return // duplicate
	}
	if e.metrics != nil {
		e.metrics.InjectionsTotal.Inc()
		e.metrics.QueueLength.Set(float64(e.queue.Len()))
	}
	e.noteMarkets(ev.Markets)
	e.logger.Debug("injected item", "item", ev.ItemID, "markets", len(ev.Markets))
}

// Reset tears down session state: queue, tracker, cache, de-bounce state
// and the current scheduling pass. The engine stays usable.
func (e *Engine) Reset() {
	e.mu.Lock()
	pass := e.pass
	e.pass = nil
	e.markets = make(map[string]model.MarketRef)
	e.mu.Unlock()

	if pass != nil {
		pass.Cancel()
	}
	e.queue.Reset()
	e.tracker.Reset()
	e.cache.Reset()
	e.reconciler.Reset()

	if e.metrics != nil {
		e.metrics.QueueLength.Set(0)
		e.metrics.CacheEntries.Set(0)
	}
	e.logger.Info("session reset")
}

// onActiveChange runs on every logical item change: start the embed
// watchdog for external embeds, prefetch history for nearby markets and
// top up the queue.
func (e *Engine) onActiveChange(index int, item model.FeedItem) {
	if item.Media.Kind == model.MediaExternalEmbed {
		e.watchdog.Watch(item.ID)
	}

	keys := e.collectWindow(index)
	e.schedule(keys)

	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	e.queue.RequestMore(ctx, index)

	if e.metrics != nil {
		e.metrics.QueueLength.Set(float64(e.queue.Len()))
		e.metrics.CacheEntries.Set(float64(e.cache.Len()))
	}
}

// collectWindow registers nearby markets, publishes their seeds and
// returns the market ids still lacking a settled result.
func (e *Engine) collectWindow(index int) []string {
	lo := index - e.cfg.WindowBehind
	hi := index + e.cfg.WindowAhead
	if lo < 0 {
		lo = 0
	}

	var keys []string
	for i := lo; i <= hi; i++ {
		item, ok := e.queue.Get(i)
		if !ok {
			continue
		}
		e.noteMarkets(item.Markets)
		for _, ref := range item.Markets {
			if ref.MarketID == "" {
				continue
			}
			if !e.cache.HasResult(ref.MarketID) {
				keys = append(keys, ref.MarketID)
			}
		}
	}
	return keys
}

// noteMarkets records refs for later fetches and publishes embedded seeds.
func (e *Engine) noteMarkets(refs []model.MarketRef) {
	e.mu.Lock()
	for _, ref := range refs {
		if ref.MarketID != "" {
			e.markets[ref.MarketID] = ref
		}
	}
	e.mu.Unlock()

	for _, ref := range refs {
		if ref.MarketID == "" || len(ref.SeedHistory) == 0 {
			continue
		}
		e.cache.Register(ref.MarketID)
		e.reconciler.OfferSeed(ref.MarketID, ref.SeedHistory)
	}
}

// schedule replaces the current pass with one over keys. The superseded
// pass is cancelled; its dispatched fetches finish but their results are
// discarded.
func (e *Engine) schedule(keys []string) {
	if len(keys) == 0 {
		return
	}
	for _, key := range keys {
		e.cache.Register(key)
	}

	e.mu.Lock()
	prev := e.pass
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.pass = e.scheduler.Schedule(e.ctx, keys, e.fetchOne)
	e.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
}

// fetchOne fetches history for one market. An empty result from a
// range-scoped request triggers a single retry without the start bound
// before the key is declared authoritatively empty.
func (e *Engine) fetchOne(ctx context.Context, key string) model.Candidate {
	e.mu.Lock()
	ref, ok := e.markets[key]
	e.mu.Unlock()
	if !ok {
		return model.EmptyCandidate()
	}

	start := time.Now()
	if e.metrics != nil {
		e.metrics.InFlightFetches.Inc()
		defer func() {
			e.metrics.InFlightFetches.Dec()
			e.metrics.FetchDuration.Observe(time.Since(start).Seconds())
		}()
	}

	req := api.SeriesRequest{
		MarketID:      ref.MarketID,
		SeriesID:      ref.SeriesID,
		PeriodMinutes: e.cfg.PeriodMinutes,
		StartTS:       ref.OpenTS,
		FallbackHours: e.cfg.FallbackHours,
	}

	samples, err := e.backend.GetSeriesHistory(ctx, req)
	if err != nil {
		return model.ErrorCandidate(err)
	}
	if len(samples) > 0 {
		return model.OKCandidate(samples, model.QualityFetched)
	}

	if req.StartTS > 0 {
		// Widen: the presumed market start may postdate all history.
		req.StartTS = 0
		samples, err = e.backend.GetSeriesHistory(ctx, req)
		if err != nil {
			return model.ErrorCandidate(err)
		}
		if len(samples) > 0 {
			return model.OKCandidate(samples, model.QualityRefined)
		}
	}

	return model.EmptyCandidate()
}

// onFetchResult forwards scheduler results to the reconciler.
func (e *Engine) onFetchResult(key string, cand model.Candidate) {
	if e.metrics != nil {
		switch cand.Kind() {
		case model.CandidateOK:
			e.metrics.FetchesTotal.WithLabelValues("ok").Inc()
		case model.CandidateEmpty:
			e.metrics.FetchesTotal.WithLabelValues("empty").Inc()
		case model.CandidateError:
			e.metrics.FetchesTotal.WithLabelValues("error").Inc()
		}
	}
	e.reconciler.Offer(key, cand)
}

// onSeriesUpdate relays de-bounced cache improvements to the configured
// observer.
func (e *Engine) onSeriesUpdate(u history.Update) {
	if e.metrics != nil && u.Series.Status == model.StatusOK {
		e.metrics.CacheImprovements.Inc()
	}
	if e.seriesObs != nil {
		e.seriesObs.OnSeriesUpdate(u)
	}
}

// onRemovable evicts an item whose embed never became ready.
func (e *Engine) onRemovable(r feed.RemovableItem) {
	e.queue.Remove(r.ItemID)
	if e.metrics != nil {
		e.metrics.EmbedBlockedTotal.Inc()
		e.metrics.QueueLength.Set(float64(e.queue.Len()))
	}
	e.logger.Info("removed blocked item", "item", r.ItemID, "err", r.Err)
	if e.removableObs != nil {
		e.removableObs.OnRemovableItem(r)
	}
}

// fetchFeedBatch adapts the backend to the queue's BatchSource.
func (e *Engine) fetchFeedBatch(ctx context.Context, count int, exclude map[string]struct{}) ([]model.FeedItem, error) {
	items, err := e.backend.GetFeedBatch(ctx, count, exclude)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.BatchRefillsTotal.Inc()
	}
	for _, it := range items {
		e.noteMarkets(it.Markets)
	}
	return items, nil
}

// persistHistory is the cache's best-effort snapshot hook.
func (e *Engine) persistHistory(entries map[string]model.CachedSeries) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.store.SaveHistory(ctx, e.cfg.Session, entries)
}

func (e *Engine) restoreSnapshot() {
	if e.store == nil || e.cfg.Session == "" {
		return
	}

	entries, err := e.store.LoadHistory(e.ctx, e.cfg.Session)
	if err != nil {
		e.logger.Warn("history snapshot restore failed", "err", err)
	} else if len(entries) > 0 {
		e.cache.Restore(entries)
	}

	keys, err := e.store.LoadSeenKeys(e.ctx, e.cfg.Session)
	if err != nil {
		e.logger.Warn("seen keys restore failed", "err", err)
	} else if len(keys) > 0 {
		e.queue.MarkSeen(keys)
	}
}

func (e *Engine) saveSnapshot(ctx context.Context) {
	if e.store == nil || e.cfg.Session == "" {
		return
	}

	if err := e.store.SaveHistory(ctx, e.cfg.Session, e.cache.Entries()); err != nil {
		e.logger.Warn("history snapshot save failed", "err", err)
	}
	if err := e.store.SaveSeenKeys(ctx, e.cfg.Session, e.queue.Keys()); err != nil {
		e.logger.Warn("seen keys save failed", "err", err)
	}
}

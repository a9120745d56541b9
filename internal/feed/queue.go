package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shortstrade/feedcore/internal/model"
	"github.com/shortstrade/feedcore/internal/synth"
)

// BatchSource fetches one batch of feed items from the backend.
type BatchSource interface {
	FetchBatch(ctx context.Context, count int, exclude map[string]struct{}) ([]model.FeedItem, error)
}

// BatchSourceFunc is a function adapter for BatchSource.
type BatchSourceFunc func(ctx context.Context, count int, exclude map[string]struct{}) ([]model.FeedItem, error)

func (f BatchSourceFunc) FetchBatch(ctx context.Context, count int, exclude map[string]struct{}) ([]model.FeedItem, error) {
	return f(ctx, count, exclude)
}

// QueueConfig holds feed queue configuration.
type QueueConfig struct {
	LowWaterMark int // Remaining-unwatched threshold that triggers a refill (default: 5)
	BatchSize    int // Items per refill fetch (default: 10)
	InjectWindow int // Injected items land within this many positions past current+1 (default: 3)
}

// DefaultQueueConfig returns sensible defaults.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		LowWaterMark: 5,
		BatchSize:    10,
		InjectWindow: 3,
	}
}

// Queue maintains the ordered feed with batch-append, dedup by item key,
// proximity-triggered refill and side-channel injection.
type Queue struct {
	cfg    QueueConfig
	source BatchSource
	logger *slog.Logger

	mu       sync.Mutex
	items    []model.FeedItem
	seen     map[string]struct{}
	fetching bool
	lastErr  error
}

// NewQueue creates an empty queue backed by source.
func NewQueue(cfg QueueConfig, source BatchSource, logger *slog.Logger) *Queue {
	def := DefaultQueueConfig()
	if cfg.LowWaterMark < 1 {
		cfg.LowWaterMark = def.LowWaterMark
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.InjectWindow < 1 {
		cfg.InjectWindow = def.InjectWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		cfg:    cfg,
		source: source,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// AppendBatch appends items whose keys have not been seen before and
// records their keys. Appending a batch of already-known items leaves the
// queue unchanged. Returns the number of items actually appended.
func (q *Queue) AppendBatch(items []model.FeedItem) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.appendLocked(items)
}

func (q *Queue) appendLocked(items []model.FeedItem) int {
	added := 0
	for _, it := range items {
		key := it.Key()
		if _, dup := q.seen[key]; dup {
			continue
		}
		q.seen[key] = struct{}{}
		q.items = append(q.items, it)
		added++
	}
	return added
}

// RequestMore triggers one background batch fetch when the number of
// unwatched items has dropped below the low-water mark but the feed is not
// exhausted. Re-entrant calls while a fetch is in flight are no-ops.
// Reports whether a fetch was started.
func (q *Queue) RequestMore(ctx context.Context, currentIndex int) bool {
	q.mu.Lock()
	unwatched := len(q.items) - currentIndex
	if unwatched >= q.cfg.LowWaterMark || unwatched <= 0 || q.fetching {
		q.mu.Unlock()
		return false
	}
	q.fetching = true
	exclude := make(map[string]struct{}, len(q.seen))
	for k := range q.seen {
		exclude[k] = struct{}{}
	}
	q.mu.Unlock()

	go q.fetchBatch(ctx, exclude)
	return true
}

// Prime synchronously fetches one batch regardless of the low-water mark.
// Used at session start, when the queue is empty and RequestMore's
// exhaustion guard would otherwise never fire.
func (q *Queue) Prime(ctx context.Context) error {
	q.mu.Lock()
	if q.fetching {
		q.mu.Unlock()
		return nil
	}
	q.fetching = true
	exclude := make(map[string]struct{}, len(q.seen))
	for k := range q.seen {
		exclude[k] = struct{}{}
	}
	q.mu.Unlock()

	q.fetchBatch(ctx, exclude)
	return q.Err()
}

func (q *Queue) fetchBatch(ctx context.Context, exclude map[string]struct{}) {
	items, err := q.source.FetchBatch(ctx, q.cfg.BatchSize, exclude)

	q.mu.Lock()
	q.fetching = false
	if err != nil {
		q.lastErr = err
		q.mu.Unlock()
		q.logger.Warn("feed batch fetch failed", "err", err)
		return
	}
	q.lastErr = nil
	added := q.appendLocked(items)
	total := len(q.items)
	q.mu.Unlock()

	q.logger.Debug("feed batch appended", "added", added, "total", total)
}

// Inject splices a side-channel item a small deterministic offset ahead of
// the current index, so it shows up soon without displacing the item the
// viewer is about to see. Duplicate item ids are dropped.
func (q *Queue) Inject(ev model.InjectionEvent, currentIndex int) bool {
	item := model.FeedItem{
		ID:       ev.ItemID,
		Media:    ev.Media,
		Markets:  ev.Markets,
		Injected: true,
	}
	key := item.Key()

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.seen[key]; dup {
		return false
	}
	q.seen[key] = struct{}{}

	// Deterministic placement keyed by the item id: at least one slot past
	// the immediately-next item, at most InjectWindow slots further.
	offset := 1 + synth.New(key).IntN(q.cfg.InjectWindow)
	pos := currentIndex + 1 + offset
	if pos > len(q.items) {
		pos = len(q.items)
	}
	if pos < 0 {
		pos = 0
	}

	q.items = append(q.items, model.FeedItem{})
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = item
	return true
}

// Remove filters an item out of the queue. Its key stays in the seen set so
// a broken item does not reappear in a later batch.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, it := range q.items {
		if it.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns a copy of the current queue.
func (q *Queue) Items() []model.FeedItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.FeedItem, len(q.items))
	copy(out, q.items)
	return out
}

// Get returns the item at index.
func (q *Queue) Get(index int) (model.FeedItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.items) {
		return model.FeedItem{}, false
	}
	return q.items[index], true
}

// Len returns the queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Err returns the feed-level error from the most recent batch fetch, nil
// after any successful fetch.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

// Keys returns the ordered item ids, for session snapshotting.
func (q *Queue) Keys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := make([]string, len(q.items))
	for i, it := range q.items {
		keys[i] = it.Key()
	}
	return keys
}

// MarkSeen records keys from a previous session so refetched batches do
// not resurface items the viewer already watched.
func (q *Queue) MarkSeen(keys []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, k := range keys {
		q.seen[k] = struct{}{}
	}
}

// Reset clears the queue and the seen set.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.seen = make(map[string]struct{})
	q.fetching = false
	q.lastErr = nil
}

package feed

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrEmbedBlocked reports an external embed that signalled an error or
// never completed its ready-handshake within the allowed wait.
var ErrEmbedBlocked = errors.New("embed blocked or unavailable")

// RemovableItem identifies a feed item the caller should evict.
type RemovableItem struct {
	ItemID string
	Err    error
}

// RemovableObserver receives eviction requests for blocked items.
type RemovableObserver interface {
	OnRemovableItem(RemovableItem)
}

// RemovableObserverFunc is a function adapter for RemovableObserver.
type RemovableObserverFunc func(RemovableItem)

func (f RemovableObserverFunc) OnRemovableItem(r RemovableItem) { f(r) }

// DefaultReadyTimeout bounds the wait for an embed's ready-handshake.
const DefaultReadyTimeout = 8 * time.Second

// EmbedWatchdog waits for external embeds to report ready. An embed that
// does not hand-shake in time is flagged so the item can be evicted and
// reported; it is not retried in place.
type EmbedWatchdog struct {
	timeout  time.Duration
	observer RemovableObserver
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewEmbedWatchdog creates a watchdog with the given handshake timeout.
func NewEmbedWatchdog(timeout time.Duration, observer RemovableObserver, logger *slog.Logger) *EmbedWatchdog {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbedWatchdog{
		timeout:  timeout,
		observer: observer,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
	}
}

// Watch starts the handshake clock for an item's embed. Watching an item
// already under watch restarts its clock.
func (w *EmbedWatchdog) Watch(itemID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[itemID]; ok {
		timer.Stop()
	}
	w.pending[itemID] = time.AfterFunc(w.timeout, func() {
		w.expire(itemID)
	})
}

// Ready records a completed handshake and cancels the clock.
func (w *EmbedWatchdog) Ready(itemID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[itemID]; ok {
		timer.Stop()
		delete(w.pending, itemID)
	}
}

// Blocked records an explicit embed error before the timeout.
func (w *EmbedWatchdog) Blocked(itemID string) {
	w.mu.Lock()
	timer, ok := w.pending[itemID]
	if ok {
		timer.Stop()
		delete(w.pending, itemID)
	}
	w.mu.Unlock()

	if ok {
		w.report(itemID)
	}
}

func (w *EmbedWatchdog) expire(itemID string) {
	w.mu.Lock()
	_, ok := w.pending[itemID]
	delete(w.pending, itemID)
	w.mu.Unlock()

	if ok {
		w.report(itemID)
	}
}

func (w *EmbedWatchdog) report(itemID string) {
	w.logger.Warn("embed blocked", "item", itemID)
	if w.observer != nil {
		w.observer.OnRemovableItem(RemovableItem{ItemID: itemID, Err: ErrEmbedBlocked})
	}
}

// Stop cancels all pending clocks.
func (w *EmbedWatchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, timer := range w.pending {
		timer.Stop()
		delete(w.pending, id)
	}
}

package feed

import (
	"sync"

	"github.com/shortstrade/feedcore/internal/model"
)

// ActiveObserver is notified when the active feed item changes.
type ActiveObserver interface {
	OnActiveItemChange(index int, item model.FeedItem)
}

// ActiveObserverFunc is a function adapter for ActiveObserver.
type ActiveObserverFunc func(index int, item model.FeedItem)

func (f ActiveObserverFunc) OnActiveItemChange(index int, item model.FeedItem) {
	f(index, item)
}

// Tracker derives the active item from raw scroll positions. A burst of
// position updates resolving to the same item produces a single
// notification.
type Tracker struct {
	queue    *Queue
	observer ActiveObserver

	mu      sync.Mutex
	current int
	lastKey string
}

// NewTracker creates a Tracker over queue.
func NewTracker(queue *Queue, observer ActiveObserver) *Tracker {
	return &Tracker{queue: queue, observer: observer}
}

// OnPositionChange clamps a raw scroll index into the queue bounds and
// notifies the observer when the clamped index resolves to a different
// item key than last notified.
func (t *Tracker) OnPositionChange(rawIndex int) {
	t.moveTo(rawIndex)
}

// Advance moves to the next item programmatically (non-scroll navigation),
// applying the same clamp and notification path as scrolling.
func (t *Tracker) Advance() {
	t.mu.Lock()
	target := t.current + 1
	t.mu.Unlock()
	t.moveTo(target)
}

// Retreat moves to the previous item programmatically.
func (t *Tracker) Retreat() {
	t.mu.Lock()
	target := t.current - 1
	t.mu.Unlock()
	t.moveTo(target)
}

func (t *Tracker) moveTo(rawIndex int) {
	n := t.queue.Len()
	if n == 0 {
		return
	}

	index := rawIndex
	if index < 0 {
		index = 0
	}
	if index > n-1 {
		index = n - 1
	}

	item, ok := t.queue.Get(index)
	if !ok {
		return
	}

	t.mu.Lock()
	t.current = index
	changed := item.Key() != t.lastKey
	if changed {
		t.lastKey = item.Key()
	}
	t.mu.Unlock()

	if changed && t.observer != nil {
		t.observer.OnActiveItemChange(index, item)
	}
}

// CurrentIndex returns the last resolved active index.
func (t *Tracker) CurrentIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Reset clears position state, so the next position change renotifies.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = 0
	t.lastKey = ""
}

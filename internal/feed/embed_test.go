package feed

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type removableLog struct {
	mu    sync.Mutex
	items []RemovableItem
}

func (r *removableLog) OnRemovableItem(it RemovableItem) {
	r.mu.Lock()
	r.items = append(r.items, it)
	r.mu.Unlock()
}

func (r *removableLog) snapshot() []RemovableItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RemovableItem, len(r.items))
	copy(out, r.items)
	return out
}

func TestWatchdogTimeoutReports(t *testing.T) {
	log := &removableLog{}
	w := NewEmbedWatchdog(20*time.Millisecond, log, nil)
	defer w.Stop()

	w.Watch("vid-1")

	deadline := time.Now().Add(2 * time.Second)
	for len(log.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	items := log.snapshot()
	if len(items) != 1 {
		t.Fatalf("reports = %d, want 1", len(items))
	}
	if items[0].ItemID != "vid-1" || !errors.Is(items[0].Err, ErrEmbedBlocked) {
		t.Errorf("unexpected report: %+v", items[0])
	}
}

func TestWatchdogReadyCancels(t *testing.T) {
	log := &removableLog{}
	w := NewEmbedWatchdog(20*time.Millisecond, log, nil)
	defer w.Stop()

	w.Watch("vid-1")
	w.Ready("vid-1")

	time.Sleep(60 * time.Millisecond)
	if n := len(log.snapshot()); n != 0 {
		t.Errorf("reports = %d after ready handshake, want 0", n)
	}
}

func TestWatchdogExplicitBlock(t *testing.T) {
	log := &removableLog{}
	w := NewEmbedWatchdog(time.Hour, log, nil)
	defer w.Stop()

	w.Watch("vid-1")
	w.Blocked("vid-1")

	items := log.snapshot()
	if len(items) != 1 || items[0].ItemID != "vid-1" {
		t.Fatalf("reports = %v, want one for vid-1", items)
	}

	// Blocking an unknown item is a no-op.
	w.Blocked("vid-2")
	if n := len(log.snapshot()); n != 1 {
		t.Errorf("reports = %d, want 1", n)
	}
}

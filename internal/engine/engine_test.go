package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shortstrade/feedcore/internal/api"
	"github.com/shortstrade/feedcore/internal/feed"
	"github.com/shortstrade/feedcore/internal/history"
	"github.com/shortstrade/feedcore/internal/model"
	"github.com/shortstrade/feedcore/internal/snapshot"
)

// fakeBackend scripts feed batches and history responses per market.
type fakeBackend struct {
	mu        sync.Mutex
	batches   [][]model.FeedItem
	history   map[string][][]model.Sample // per market, per call
	histErr   map[string]error
	histCalls map[string][]api.SeriesRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		history:   make(map[string][][]model.Sample),
		histErr:   make(map[string]error),
		histCalls: make(map[string][]api.SeriesRequest),
	}
}

func (f *fakeBackend) GetFeedBatch(_ context.Context, _ int, _ map[string]struct{}) ([]model.FeedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeBackend) GetSeriesHistory(_ context.Context, req api.SeriesRequest) ([]model.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.histCalls[req.MarketID] = append(f.histCalls[req.MarketID], req)
	if err := f.histErr[req.MarketID]; err != nil {
		return nil, err
	}
	responses := f.history[req.MarketID]
	if len(responses) == 0 {
		return nil, nil
	}
	resp := responses[0]
	f.history[req.MarketID] = responses[1:]
	return resp, nil
}

func (f *fakeBackend) calls(marketID string) []api.SeriesRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.SeriesRequest, len(f.histCalls[marketID]))
	copy(out, f.histCalls[marketID])
	return out
}

func item(id string, markets ...model.MarketRef) model.FeedItem {
	return model.FeedItem{
		ID:      id,
		Media:   model.Media{Kind: model.MediaFile, Ref: "https://cdn/" + id + ".mp4"},
		Markets: markets,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startEngine(t *testing.T, cfg Config, backend Backend, store snapshot.Store, opts ...Option) *Engine {
	t.Helper()
	e := New(cfg, backend, store, nil, nil, opts...)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		e.Stop(ctx)
	})
	return e
}

func TestWidenFallbackOnEmptyRangeScopedFetch(t *testing.T) {
	backend := newFakeBackend()
	backend.batches = [][]model.FeedItem{{
		item("vid-1", model.MarketRef{MarketID: "M1", SeriesID: "S1", OpenTS: 1700000000}),
	}}
	// First (range-scoped) call returns nothing, the widened retry too.
	backend.history["M1"] = [][]model.Sample{nil, nil}

	e := startEngine(t, DefaultConfig(), backend, nil)

	waitFor(t, func() bool {
		s, ok := e.Series("M1")
		return ok && s.Status == model.StatusEmpty
	})

	calls := backend.calls("M1")
	if len(calls) != 2 {
		t.Fatalf("history calls = %d, want 2 (range-scoped + widened)", len(calls))
	}
	if calls[0].StartTS != 1700000000 {
		t.Errorf("first call StartTS = %d, want the market start", calls[0].StartTS)
	}
	if calls[1].StartTS != 0 {
		t.Errorf("widened call StartTS = %d, want 0", calls[1].StartTS)
	}
}

func TestWidenFallbackRecoversHistory(t *testing.T) {
	backend := newFakeBackend()
	backend.batches = [][]model.FeedItem{{
		item("vid-1", model.MarketRef{MarketID: "M1", SeriesID: "S1", OpenTS: 1700000000}),
	}}
	recovered := []model.Sample{{TS: 1690000000, Value: 40}, {TS: 1695000000, Value: 45}}
	backend.history["M1"] = [][]model.Sample{nil, recovered}

	e := startEngine(t, DefaultConfig(), backend, nil)

	waitFor(t, func() bool {
		s, ok := e.Series("M1")
		return ok && s.Status == model.StatusOK
	})

	s, _ := e.Series("M1")
	if s.Quality != model.QualityRefined {
		t.Errorf("quality = %q, want refined", s.Quality)
	}
	if len(s.Samples) != 2 {
		t.Errorf("samples = %d, want 2", len(s.Samples))
	}
}

func TestNoWidenRetryWithoutStartBound(t *testing.T) {
	backend := newFakeBackend()
	backend.batches = [][]model.FeedItem{{
		item("vid-1", model.MarketRef{MarketID: "M1", SeriesID: "S1"}), // no OpenTS
	}}

	e := startEngine(t, DefaultConfig(), backend, nil)

	waitFor(t, func() bool {
		s, ok := e.Series("M1")
		return ok && s.Status == model.StatusEmpty
	})

	if calls := backend.calls("M1"); len(calls) != 1 {
		t.Errorf("history calls = %d, want 1 (nothing to widen)", len(calls))
	}
}

func TestSeedPublishedThenImprovedByFetch(t *testing.T) {
	seed := []model.Sample{{TS: 1700000000, Value: 50}}
	fetched := []model.Sample{
		{TS: 1699000000, Value: 42},
		{TS: 1700000000, Value: 50},
		{TS: 1700003600, Value: 55},
	}

	backend := newFakeBackend()
	backend.batches = [][]model.FeedItem{{
		item("vid-1", model.MarketRef{MarketID: "M1", SeriesID: "S1", SeedHistory: seed}),
	}}
	backend.history["M1"] = [][]model.Sample{fetched}

	var mu sync.Mutex
	var updates []history.Update
	e := startEngine(t, DefaultConfig(), backend, nil,
		WithSeriesObserver(history.ObserverFunc(func(u history.Update) {
			mu.Lock()
			updates = append(updates, u)
			mu.Unlock()
		})))

	waitFor(t, func() bool {
		s, ok := e.Series("M1")
		return ok && s.Quality == model.QualityFetched
	})

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 2 {
		t.Fatalf("updates = %d, want 2 (seed then fetched)", len(updates))
	}
	if updates[0].Series.Quality != model.QualitySeed || len(updates[0].Series.Samples) != 1 {
		t.Errorf("first update = %+v, want the seed", updates[0].Series)
	}
	if updates[1].Series.Quality != model.QualityFetched || len(updates[1].Series.Samples) != 3 {
		t.Errorf("second update = %+v, want the fetched series", updates[1].Series)
	}
}

func TestFetchErrorIsRetriedOnLaterPass(t *testing.T) {
	backend := newFakeBackend()
	backend.batches = [][]model.FeedItem{{
		item("vid-1", model.MarketRef{MarketID: "M1", SeriesID: "S1"}),
		item("vid-2"),
	}}
	backend.histErr["M1"] = errors.New("backend down")

	e := startEngine(t, DefaultConfig(), backend, nil)

	waitFor(t, func() bool {
		s, ok := e.Series("M1")
		return ok && s.Status == model.StatusError
	})

	// Recover the backend; scrolling back re-enters the window and retries.
	backend.mu.Lock()
	delete(backend.histErr, "M1")
	backend.history["M1"] = [][]model.Sample{{{TS: 1700000000, Value: 50}}}
	backend.mu.Unlock()

	e.OnPositionChange(1)
	e.OnPositionChange(0)

	waitFor(t, func() bool {
		s, ok := e.Series("M1")
		return ok && s.Status == model.StatusOK
	})
}

func TestInjectionSplicedAndFetchable(t *testing.T) {
	backend := newFakeBackend()
	backend.batches = [][]model.FeedItem{{
		item("vid-1"), item("vid-2"), item("vid-3"), item("vid-4"), item("vid-5"), item("vid-6"),
	}}
	backend.history["GEN-M"] = [][]model.Sample{{{TS: 1700000000, Value: 61}}}

	e := startEngine(t, DefaultConfig(), backend, nil)

	e.HandleInjection(model.InjectionEvent{
		ItemID:  "gen-1",
		Media:   model.Media{Kind: model.MediaFile, Ref: "https://cdn/gen-1.mp4"},
		Markets: []model.MarketRef{{MarketID: "GEN-M", SeriesID: "GEN-S"}},
		Side:    "yes",
	})

	items := e.Items()
	pos := -1
	for i, it := range items {
		if it.ID == "gen-1" {
			pos = i
		}
	}
	if pos < 2 || pos > 1+1+3 {
		t.Errorf("injected at %d, want within the near-future window", pos)
	}
	if !items[pos].Injected {
		t.Error("spliced item not flagged as injected")
	}

	// Duplicate push is a no-op.
	before := len(items)
	e.HandleInjection(model.InjectionEvent{ItemID: "gen-1"})
	if len(e.Items()) != before {
		t.Error("duplicate injection changed the queue")
	}

	// Scrolling to the injected item prefetches its market.
	e.OnPositionChange(pos)
	waitFor(t, func() bool {
		s, ok := e.Series("GEN-M")
		return ok && s.Status == model.StatusOK
	})
}

func TestBlockedEmbedEvicted(t *testing.T) {
	backend := newFakeBackend()
	embedItem := model.FeedItem{
		ID:    "vid-embed",
		Media: model.Media{Kind: model.MediaExternalEmbed, Ref: "yt-1"},
	}
	backend.batches = [][]model.FeedItem{{embedItem, item("vid-2")}}

	cfg := DefaultConfig()
	cfg.EmbedTimeout = 30 * time.Millisecond

	removed := make(chan feed.RemovableItem, 1)
	e := startEngine(t, cfg, backend, nil,
		WithRemovableObserver(feed.RemovableObserverFunc(func(r feed.RemovableItem) {
			removed <- r
		})))

	select {
	case r := <-removed:
		if r.ItemID != "vid-embed" {
			t.Errorf("removed item = %q, want vid-embed", r.ItemID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked embed never reported")
	}

	for _, it := range e.Items() {
		if it.ID == "vid-embed" {
			t.Error("blocked item still in queue")
		}
	}
}

func TestReadyEmbedKept(t *testing.T) {
	backend := newFakeBackend()
	embedItem := model.FeedItem{
		ID:    "vid-embed",
		Media: model.Media{Kind: model.MediaExternalEmbed, Ref: "yt-1"},
	}
	backend.batches = [][]model.FeedItem{{embedItem}}

	cfg := DefaultConfig()
	cfg.EmbedTimeout = 50 * time.Millisecond

	e := startEngine(t, cfg, backend, nil)
	e.EmbedReady("vid-embed")

	time.Sleep(100 * time.Millisecond)
	if len(e.Items()) != 1 {
		t.Error("ready embed was evicted")
	}
}

func TestSnapshotRoundTripAcrossSessions(t *testing.T) {
	store := snapshot.NewMemoryStore()

	backend := newFakeBackend()
	backend.batches = [][]model.FeedItem{{
		item("vid-1", model.MarketRef{MarketID: "M1", SeriesID: "S1"}),
	}}
	backend.history["M1"] = [][]model.Sample{{{TS: 1700000000, Value: 50}, {TS: 1700003600, Value: 55}}}

	cfg := DefaultConfig()
	cfg.Session = "viewer-7"

	e := New(cfg, backend, store, nil, nil)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool {
		s, ok := e.Series("M1")
		return ok && s.Status == model.StatusOK
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	e.Stop(ctx)
	cancel()

	// A fresh engine on the same session restores without refetching.
	backend2 := newFakeBackend()
	e2 := New(cfg, backend2, store, nil, nil)
	if err := e2.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		e2.Stop(ctx)
	}()

	s, ok := e2.Series("M1")
	if !ok || s.Status != model.StatusOK || len(s.Samples) != 2 {
		t.Errorf("restored series = (%+v, %v)", s, ok)
	}
	if len(backend2.calls("M1")) != 0 {
		t.Error("restored market was refetched")
	}
}

func TestResetClearsSession(t *testing.T) {
	backend := newFakeBackend()
	backend.batches = [][]model.FeedItem{{
		item("vid-1", model.MarketRef{MarketID: "M1", SeriesID: "S1"}),
	}}
	backend.history["M1"] = [][]model.Sample{{{TS: 1700000000, Value: 50}}}

	e := startEngine(t, DefaultConfig(), backend, nil)
	waitFor(t, func() bool {
		s, ok := e.Series("M1")
		return ok && s.Status == model.StatusOK
	})

	e.Reset()

	if len(e.Items()) != 0 {
		t.Error("queue not cleared")
	}
	if _, ok := e.Series("M1"); ok {
		t.Error("cache not cleared")
	}
	if e.CurrentIndex() != 0 {
		t.Errorf("index = %d after reset", e.CurrentIndex())
	}
}

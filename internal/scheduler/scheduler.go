package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/shortstrade/feedcore/internal/model"
)

// FetchFunc fetches history for one key. It reports failures through the
// candidate variant, never by panicking.
type FetchFunc func(ctx context.Context, key string) model.Candidate

// ResultHandler receives the outcome of each completed fetch.
type ResultHandler interface {
	HandleResult(key string, cand model.Candidate)
}

// ResultHandlerFunc is a function adapter for ResultHandler.
type ResultHandlerFunc func(string, model.Candidate)

func (f ResultHandlerFunc) HandleResult(key string, cand model.Candidate) { f(key, cand) }

// Cached reports whether a key already has a settled result and can be
// skipped. Satisfied by the history cache.
type Cached interface {
	HasResult(key string) bool
}

// Config holds scheduler configuration.
type Config struct {
	Concurrency int // Max parallel fetches per batch (default: 4)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 4}
}

// Scheduler runs scheduling passes with a shared in-flight set, so two
// overlapping passes never fetch the same key concurrently.
type Scheduler struct {
	cfg     Config
	cached  Cached
	handler ResultHandler
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Scheduler.
func New(cfg Config, cached Cached, handler ResultHandler, logger *slog.Logger) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:      cfg,
		cached:   cached,
		handler:  handler,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Pass is a handle to one scheduling pass.
type Pass struct {
	cancelled atomic.Bool
	done      chan struct{}

	mu      sync.Mutex
	pending map[string]struct{} // queued but not yet dispatched
	sched   *Scheduler
}

// Cancel marks the pass cancelled. Fetches already dispatched run to
// completion but their results are discarded; keys never started have
// their in-flight markers cleared immediately.
func (p *Pass) Cancel() {
	if p.cancelled.Swap(true) {
		return
	}
	p.mu.Lock()
	for key := range p.pending {
		p.sched.clearInflight(key)
	}
	p.pending = make(map[string]struct{})
	p.mu.Unlock()
}

// Done is closed when every fetch of the pass has settled or been skipped.
func (p *Pass) Done() <-chan struct{} {
	return p.done
}

// take claims a pending key for dispatch. Returns false if the pass was
// cancelled and the key's marker already cleared.
func (p *Pass) take(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.pending[key]; !ok {
		return false
	}
	delete(p.pending, key)
	return true
}

// Schedule starts a pass over keys. Keys with a settled cache result or an
// in-flight fetch are filtered out; the rest are marked in-flight up front
// so a concurrent pass cannot double-fetch them. ctx bounds the lifetime
// of the underlying network calls; the returned Pass cancels cooperatively.
func (s *Scheduler) Schedule(ctx context.Context, keys []string, fetch FetchFunc) *Pass {
	pass := &Pass{
		done:    make(chan struct{}),
		pending: make(map[string]struct{}),
		sched:   s,
	}

	var claimed []string
	s.mu.Lock()
	for _, key := range keys {
		if _, dup := pass.pending[key]; dup {
			continue
		}
		if s.cached != nil && s.cached.HasResult(key) {
			continue
		}
		if _, busy := s.inflight[key]; busy {
			continue
		}
		s.inflight[key] = struct{}{}
		pass.pending[key] = struct{}{}
		claimed = append(claimed, key)
	}
	s.mu.Unlock()

	if len(claimed) == 0 {
		close(pass.done)
		return pass
	}

	go s.run(ctx, pass, claimed, fetch)
	return pass
}

// run processes claimed keys in sequential batches of Concurrency; batch
// b+1 does not start until every fetch in batch b has settled.
func (s *Scheduler) run(ctx context.Context, pass *Pass, keys []string, fetch FetchFunc) {
	defer close(pass.done)

	for start := 0; start < len(keys); start += s.cfg.Concurrency {
		end := start + s.cfg.Concurrency
		if end > len(keys) {
			end = len(keys)
		}

		if pass.cancelled.Load() || ctx.Err() != nil {
			// Markers for keys never dispatched: Cancel already cleared
			// the pass-cancel case, clear the ctx-cancel case here.
			for _, key := range keys[start:] {
				if pass.take(key) {
					s.clearInflight(key)
				}
			}
			return
		}

		g := new(errgroup.Group)
		for _, key := range keys[start:end] {
			if !pass.take(key) {
				continue // cancelled between batches
			}
			g.Go(func() error {
				defer s.clearInflight(key)

				cand := fetch(ctx, key)
				if pass.cancelled.Load() {
					return nil // discard result
				}
				if s.handler != nil {
					s.handler.HandleResult(key, cand)
				}
				return nil
			})
		}
		g.Wait()
	}
}

// InFlight returns the number of keys currently being fetched.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

func (s *Scheduler) clearInflight(key string) {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
}

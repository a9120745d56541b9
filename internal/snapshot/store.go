package snapshot

import (
	"context"

	"github.com/shortstrade/feedcore/internal/model"
)

// Store saves and restores per-session engine state. Implementations must
// be safe for concurrent use. LoadHistory and LoadSeenKeys return nil, not
// an error, when the session has no saved state.
type Store interface {
	SaveHistory(ctx context.Context, session string, entries map[string]model.CachedSeries) error
	LoadHistory(ctx context.Context, session string) (map[string]model.CachedSeries, error)

	SaveSeenKeys(ctx context.Context, session string, keys []string) error
	LoadSeenKeys(ctx context.Context, session string) ([]string, error)

	Close() error
}

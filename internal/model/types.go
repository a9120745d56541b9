package model

// -----------------------------------------------------------------------------
// Feed Types
// -----------------------------------------------------------------------------

// MediaKind tells the player how to resolve a feed item's primary media.
type MediaKind string

const (
	// MediaExternalEmbed is a clip hosted by a third party and rendered
	// through its embed player (ref is the external video id).
	MediaExternalEmbed MediaKind = "external-embed"

	// MediaFile is a directly playable file (ref is its URL).
	MediaFile MediaKind = "file"
)

// Media is the primary media of a feed item.
type Media struct {
	Kind MediaKind `json:"kind"`
	Ref  string    `json:"ref"`
}

// FeedItem is one entry in the scrollable feed: a clip plus the markets
// matched to it. Immutable once enqueued; its position is implicit.
type FeedItem struct {
	ID       string      `json:"id"` // Unique, stable across refetch
	Media    Media       `json:"media"`
	Markets  []MarketRef `json:"markets"`  // Ordered, best match first
	Injected bool        `json:"injected"` // Arrived via the side channel
}

// Key returns the dedup key used by the feed queue and the active-item
// tracker. Items refetched in later batches carry the same key.
func (it FeedItem) Key() string {
	return it.ID
}

// MarketRef is a market matched to a feed item, with the display prices
// known at match time and an optional seed of price history.
type MarketRef struct {
	MarketID    string   `json:"market_id"` // Market ticker, unique and stable
	SeriesID    string   `json:"series_id"` // Series ticker for history lookups
	Question    string   `json:"question"`
	YesPrice    int      `json:"yes_price"` // Cents, 0-100
	NoPrice     int      `json:"no_price"`  // Cents, 0-100; yes+no need not sum to 100
	OpenTS      int64    `json:"open_ts,omitempty"` // Unix seconds, 0 when unknown
	SeedHistory []Sample `json:"seed_history,omitempty"`
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// Sample is one price observation. Within a published series timestamps are
// strictly ascending and unique, and values sit in [0,100].
type Sample struct {
	TS    int64   `json:"ts"`    // Unix seconds
	Value float64 `json:"value"` // Cents, clamped to [0,100]
}

// SeriesStatus is the lifecycle state of a cached series.
type SeriesStatus string

const (
	StatusLoading SeriesStatus = "loading" // Entry registered, no result yet
	StatusOK      SeriesStatus = "ok"      // Has at least one sample
	StatusEmpty   SeriesStatus = "empty"   // Authoritatively no history
	StatusError   SeriesStatus = "error"   // Fetch failed, retry possible later
)

// SourceQuality ranks where a cached series came from.
type SourceQuality string

const (
	QualitySeed    SourceQuality = "seed"    // Embedded in a feed item
	QualityFetched SourceQuality = "fetched" // Direct history fetch
	QualityRefined SourceQuality = "refined" // Range-widened refinement fetch
)

// CachedSeries is the best-known price history for one market.
type CachedSeries struct {
	Samples []Sample      `json:"samples"`
	SpanSec int64         `json:"span_sec"` // Last TS minus first TS, >= 0
	Quality SourceQuality `json:"quality"`
	Status  SeriesStatus  `json:"status"`
}

// -----------------------------------------------------------------------------
// Candidate (tagged variant)
// -----------------------------------------------------------------------------

// CandidateKind discriminates the three outcomes of a history fetch.
type CandidateKind int

const (
	CandidateOK CandidateKind = iota
	CandidateEmpty
	CandidateError
)

// Candidate is the result of one attempt to obtain history for a market.
// Construct it through OKCandidate, EmptyCandidate or ErrorCandidate so an
// "ok" without data cannot be built.
type Candidate struct {
	kind    CandidateKind
	samples []Sample
	quality SourceQuality
	err     error
}

// OKCandidate builds a successful candidate. Empty input degrades to an
// empty candidate rather than an ok-with-no-data.
func OKCandidate(samples []Sample, quality SourceQuality) Candidate {
	if len(samples) == 0 {
		return EmptyCandidate()
	}
	return Candidate{kind: CandidateOK, samples: samples, quality: quality}
}

// EmptyCandidate builds a candidate recording that no history exists.
func EmptyCandidate() Candidate {
	return Candidate{kind: CandidateEmpty}
}

// ErrorCandidate builds a candidate recording a failed fetch.
func ErrorCandidate(err error) Candidate {
	return Candidate{kind: CandidateError, err: err}
}

// Kind returns the variant tag.
func (c Candidate) Kind() CandidateKind { return c.kind }

// Samples returns the data of an ok candidate, nil otherwise.
func (c Candidate) Samples() []Sample { return c.samples }

// Quality returns the source quality of an ok candidate.
func (c Candidate) Quality() SourceQuality { return c.quality }

// Err returns the failure of an error candidate, nil otherwise.
func (c Candidate) Err() error { return c.err }

// -----------------------------------------------------------------------------
// Injection Types
// -----------------------------------------------------------------------------

// InjectionEvent is a generated clip pushed over the side channel.
type InjectionEvent struct {
	ItemID  string      `json:"item_id"`
	Media   Media       `json:"media"`
	Markets []MarketRef `json:"markets"`
	Side    string      `json:"side,omitempty"` // "yes" or "no" stance of the clip
}

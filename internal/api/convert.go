package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shortstrade/feedcore/internal/model"
	"github.com/shortstrade/feedcore/internal/series"
)

// numberToFloat parses a json.Number, reporting whether it was present and
// valid.
func numberToFloat(n json.Number) (float64, bool) {
	if n == "" {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// toCents resolves a price given either a cents number or a dollar string.
// Cents win when both are present.
func toCents(cents json.Number, dollars string) (float64, bool) {
	if v, ok := numberToFloat(cents); ok {
		return v, true
	}
	dollars = strings.TrimSpace(dollars)
	if dollars == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(dollars, 64)
	if err != nil {
		return 0, false
	}
	return f * 100, true
}

// CloseCents extracts the closing price of a candle in cents, trying in
// order: price.close, yes_bid.close, the synthetic previous_price, then
// price.previous. Candles for thinly-traded markets often carry only the
// later fallbacks.
func (c *APICandle) CloseCents() (float64, bool) {
	for _, payload := range []*APICandlePrice{c.Price, c.YesBid} {
		if payload == nil {
			continue
		}
		if v, ok := toCents(payload.Close, payload.CloseDollars); ok {
			return v, true
		}
	}

	if v, ok := toCents(c.PreviousPrice, c.PreviousPriceDollars); ok {
		return v, true
	}

	if c.Price != nil {
		if v, ok := toCents(c.Price.Previous, c.Price.PreviousDollars); ok {
			return v, true
		}
	}

	return 0, false
}

// ToSamples converts a candlestick response into a normalized series:
// candles missing a timestamp or any resolvable close price are dropped,
// the rest go through the canonical dedup/clamp/sort pass.
func (r *CandlesticksResponse) ToSamples() []model.Sample {
	points := make([]series.Point, 0, len(r.Candlesticks))
	for _, candle := range r.Candlesticks {
		ts, ok := numberToFloat(candle.EndPeriodTS)
		if !ok {
			continue
		}
		price, ok := candle.CloseCents()
		if !ok {
			continue
		}
		points = append(points, series.Point{TS: ts, Value: price})
	}
	return series.Normalize(points)
}

// ParseTimestamp parses a flexible timestamp field to unix seconds: RFC3339
// strings, bare date-times, or numeric epochs in seconds or milliseconds.
// Returns 0 when unparseable.
func ParseTimestamp(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n <= 0 {
			return 0
		}
		if n > 10_000_000_000 {
			return n / 1000
		}
		return n
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05", raw)
		if err != nil {
			return 0
		}
	}
	if ts := t.Unix(); ts > 0 {
		return ts
	}
	return 0
}

// StartTS resolves a market's start timestamp: the explicit field if the
// backend computed one, else created_time, else open_time.
func (m *APIMarket) StartTS() int64 {
	if m.MarketStartTS > 0 {
		return m.MarketStartTS
	}
	if ts := ParseTimestamp(m.CreatedTime); ts > 0 {
		return ts
	}
	return ParseTimestamp(m.OpenTime)
}

// ToModel converts an APIMarket to a model.MarketRef, normalizing any
// embedded seed history.
func (m *APIMarket) ToModel() model.MarketRef {
	var seed []model.Sample
	if len(m.PriceHistory) > 0 {
		points := make([]series.Point, len(m.PriceHistory))
		for i, p := range m.PriceHistory {
			points[i] = series.Point{TS: p.TS, Value: p.Price}
		}
		seed = series.Normalize(points)
	}

	return model.MarketRef{
		MarketID:    m.Ticker,
		SeriesID:    m.SeriesTicker,
		Question:    m.Question,
		YesPrice:    int(series.Clamp(m.YesPrice) + 0.5),
		NoPrice:     int(series.Clamp(m.NoPrice) + 0.5),
		OpenTS:      m.StartTS(),
		SeedHistory: seed,
	}
}

// ToModel converts an APIFeedItem to a model.FeedItem. Generated clips
// carry a direct file URL; everything else is an external embed.
func (it *APIFeedItem) ToModel() model.FeedItem {
	media := model.Media{Kind: model.MediaExternalEmbed, Ref: it.Video.VideoID}
	if it.Video.FileURL != "" {
		media = model.Media{Kind: model.MediaFile, Ref: it.Video.FileURL}
	}

	markets := make([]model.MarketRef, len(it.Markets))
	for i := range it.Markets {
		markets[i] = it.Markets[i].ToModel()
	}

	return model.FeedItem{
		ID:      it.ID,
		Media:   media,
		Markets: markets,
	}
}

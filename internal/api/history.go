package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shortstrade/feedcore/internal/model"
)

// SeriesRequest parameterizes one history fetch.
type SeriesRequest struct {
	MarketID      string
	SeriesID      string
	PeriodMinutes int   // Granularity hint: 1, 60 or 1440
	StartTS       int64 // Unix seconds; 0 means "derive from FallbackHours"
	EndTS         int64 // Unix seconds; 0 means now
	FallbackHours int   // Window when no start bound is known
}

// DefaultFallbackHours is the lookback used when a market's start time is
// unknown: wide enough to catch anything a daily-granularity chart shows.
const DefaultFallbackHours = 24 * 365

// GetSeriesHistory fetches price history for one market and converts it to
// a normalized sample series. A degenerate window (start >= end) returns an
// empty series without issuing a request, mirroring the backend's own
// validation.
func (c *Client) GetSeriesHistory(ctx context.Context, req SeriesRequest) ([]model.Sample, error) {
	if req.MarketID == "" || req.SeriesID == "" {
		return nil, nil
	}

	endTS := req.EndTS
	if endTS <= 0 {
		endTS = time.Now().Unix()
	}
	startTS := req.StartTS
	if startTS <= 0 {
		hours := req.FallbackHours
		if hours <= 0 {
			hours = DefaultFallbackHours
		}
		startTS = endTS - int64(hours)*3600
		if startTS < 0 {
			startTS = 0
		}
	}
	if startTS >= endTS {
		return nil, nil
	}

	period := req.PeriodMinutes
	if period != 1 && period != 60 && period != 1440 {
		period = 60
	}

	query := url.Values{}
	query.Set("start_ts", strconv.FormatInt(startTS, 10))
	query.Set("end_ts", strconv.FormatInt(endTS, 10))
	query.Set("period_interval", strconv.Itoa(period))
	query.Set("include_latest_before_start", "true")

	path := "/series/" + req.SeriesID + "/markets/" + req.MarketID + "/candlesticks"

	var resp CandlesticksResponse
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("get series history %s: %w", req.MarketID, err)
	}

	return resp.ToSamples(), nil
}

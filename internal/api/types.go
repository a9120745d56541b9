package api

import "encoding/json"

// FeedResponse from GET /shorts/feed
type FeedResponse struct {
	Items []APIFeedItem `json:"items"`
}

// APIFeedItem is one feed record from the backend: a clip plus the markets
// matched to it.
type APIFeedItem struct {
	ID      string      `json:"id"`
	Video   APIVideo    `json:"video"`
	Markets []APIMarket `json:"markets"`
}

// APIVideo describes the clip half of a feed record.
type APIVideo struct {
	VideoID          string `json:"video_id"`
	FileURL          string `json:"file_url,omitempty"` // Set for generated clips
	Title            string `json:"title"`
	Thumbnail        string `json:"thumbnail"`
	Channel          string `json:"channel"`
	ChannelThumbnail string `json:"channel_thumbnail"`
}

// APIMarket is a matched market inside a feed record.
type APIMarket struct {
	Ticker        string `json:"ticker"`
	EventTicker   string `json:"event_ticker"`
	SeriesTicker  string `json:"series_ticker"`
	Question      string `json:"question"`
	Outcome       string `json:"outcome"`
	CreatedTime   string `json:"created_time,omitempty"`
	OpenTime      string `json:"open_time,omitempty"`
	MarketStartTS int64  `json:"market_start_ts,omitempty"`

	// Prices in cents
	YesPrice float64 `json:"yes_price"`
	NoPrice  float64 `json:"no_price"`

	Volume   int64  `json:"volume"`
	ImageURL string `json:"image_url,omitempty"`

	// Seed history embedded at match time, may be absent
	PriceHistory []APIPricePoint `json:"price_history,omitempty"`
}

// APIPricePoint is one seed-history sample on the wire.
type APIPricePoint struct {
	TS    float64 `json:"ts"` // Seconds or milliseconds; normalized on convert
	Price float64 `json:"price"`
}

// CandlesticksResponse from the candlesticks endpoint.
type CandlesticksResponse struct {
	Candlesticks []APICandle `json:"candlesticks"`
}

// APICandle is one candlestick on the wire. Price payloads vary by market
// age and venue: close prices may arrive in cents, dollar strings, or only
// as a synthetic "previous" price, so fields stay loosely typed and the
// convert layer resolves them in priority order.
type APICandle struct {
	EndPeriodTS json.Number     `json:"end_period_ts"`
	Price       *APICandlePrice `json:"price,omitempty"`
	YesBid      *APICandlePrice `json:"yes_bid,omitempty"`

	PreviousPrice        json.Number `json:"previous_price,omitempty"`
	PreviousPriceDollars string      `json:"previous_price_dollars,omitempty"`
}

// APICandlePrice is a candle's price payload.
type APICandlePrice struct {
	Close           json.Number `json:"close,omitempty"`
	CloseDollars    string      `json:"close_dollars,omitempty"`
	Previous        json.Number `json:"previous,omitempty"`
	PreviousDollars string      `json:"previous_dollars,omitempty"`
}

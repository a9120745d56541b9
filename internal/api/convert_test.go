package api

import (
	"testing"

	"github.com/shortstrade/feedcore/internal/model"
)

func TestCloseCentsPriority(t *testing.T) {
	tests := []struct {
		name   string
		candle APICandle
		want   float64
		ok     bool
	}{
		{
			name: "price close wins over everything",
			candle: APICandle{
				Price:         &APICandlePrice{Close: "55"},
				YesBid:        &APICandlePrice{Close: "50"},
				PreviousPrice: "45",
			},
			want: 55,
			ok:   true,
		},
		{
			name: "dollar string scaled to cents",
			candle: APICandle{
				Price: &APICandlePrice{CloseDollars: "0.62"},
			},
			want: 62,
			ok:   true,
		},
		{
			name: "cents beat dollars in the same payload",
			candle: APICandle{
				Price: &APICandlePrice{Close: "40", CloseDollars: "0.99"},
			},
			want: 40,
			ok:   true,
		},
		{
			name: "yes bid close when price payload empty",
			candle: APICandle{
				Price:  &APICandlePrice{},
				YesBid: &APICandlePrice{Close: "48"},
			},
			want: 48,
			ok:   true,
		},
		{
			name: "previous price fallback",
			candle: APICandle{
				PreviousPrice: "33",
			},
			want: 33,
			ok:   true,
		},
		{
			name: "price previous is the last resort",
			candle: APICandle{
				Price: &APICandlePrice{Previous: "21"},
			},
			want: 21,
			ok:   true,
		},
		{
			name:   "nothing resolvable",
			candle: APICandle{Price: &APICandlePrice{}},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.candle.CloseCents()
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("CloseCents() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToSamplesNormalizes(t *testing.T) {
	resp := CandlesticksResponse{
		Candlesticks: []APICandle{
			{EndPeriodTS: "1700003600", Price: &APICandlePrice{Close: "60"}},
			{EndPeriodTS: "1700000000000", Price: &APICandlePrice{Close: "150"}}, // ms; collides after conversion
			{EndPeriodTS: "1700000000", Price: &APICandlePrice{Close: "-5"}},
			{EndPeriodTS: "", Price: &APICandlePrice{Close: "99"}},
		},
	}

	samples := resp.ToSamples()
	want := []model.Sample{
		{TS: 1700000000, Value: 0},
		{TS: 1700003600, Value: 60},
	}
	if len(samples) != len(want) {
		t.Fatalf("samples = %v, want %v", samples, want)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"1700000000", 1700000000},
		{"1700000000000", 1700000000}, // milliseconds
		{"2023-11-14T22:13:20Z", 1700000000},
		{"2023-11-14T22:13:20", 1700000000},
		{"", 0},
		{"-50", 0},
		{"not a time", 0},
	}

	for _, tt := range tests {
		if got := ParseTimestamp(tt.raw); got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestMarketStartTS(t *testing.T) {
	tests := []struct {
		name   string
		market APIMarket
		want   int64
	}{
		{
			name:   "explicit start wins",
			market: APIMarket{MarketStartTS: 1700000000, CreatedTime: "1600000000"},
			want:   1700000000,
		},
		{
			name:   "created time next",
			market: APIMarket{CreatedTime: "1600000000", OpenTime: "1500000000"},
			want:   1600000000,
		},
		{
			name:   "open time last",
			market: APIMarket{OpenTime: "1500000000"},
			want:   1500000000,
		},
		{
			name:   "nothing known",
			market: APIMarket{},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.market.StartTS(); got != tt.want {
				t.Errorf("StartTS() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMarketToModelNormalizesSeed(t *testing.T) {
	m := APIMarket{
		Ticker:       "KXBTC-25DEC",
		SeriesTicker: "KXBTC",
		Question:     "Bitcoin above 100k?",
		YesPrice:     104.5, // Above range; clamped and rounded
		NoPrice:      -3,
		PriceHistory: []APIPricePoint{
			{TS: 1700003600000, Price: 61}, // ms
			{TS: 1700000000, Price: 55},
		},
	}

	ref := m.ToModel()
	if ref.MarketID != "KXBTC-25DEC" || ref.SeriesID != "KXBTC" {
		t.Errorf("identifiers = %q / %q", ref.MarketID, ref.SeriesID)
	}
	if ref.YesPrice != 100 || ref.NoPrice != 0 {
		t.Errorf("prices = %d / %d, want 100 / 0", ref.YesPrice, ref.NoPrice)
	}
	wantSeed := []model.Sample{
		{TS: 1700000000, Value: 55},
		{TS: 1700003600, Value: 61},
	}
	if len(ref.SeedHistory) != 2 || ref.SeedHistory[0] != wantSeed[0] || ref.SeedHistory[1] != wantSeed[1] {
		t.Errorf("seed = %v, want %v", ref.SeedHistory, wantSeed)
	}
}

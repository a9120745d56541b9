package series

import (
	"math"
	"reflect"
	"testing"

	"github.com/shortstrade/feedcore/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   []model.Sample
	}{
		{
			name:   "empty input",
			points: nil,
			want:   nil,
		},
		{
			name: "already canonical",
			points: []Point{
				{TS: 100, Value: 40},
				{TS: 200, Value: 60},
			},
			want: []model.Sample{
				{TS: 100, Value: 40},
				{TS: 200, Value: 60},
			},
		},
		{
			name: "millisecond timestamps converted",
			points: []Point{
				{TS: 1700000000000, Value: 52},
			},
			want: []model.Sample{
				{TS: 1700000000, Value: 52},
			},
		},
		{
			name: "ms duplicate after conversion, last wins, clamped",
			points: []Point{
				{TS: 1700000000000, Value: 150},
				{TS: 1700000000, Value: -5},
			},
			want: []model.Sample{
				{TS: 1700000000, Value: 0},
			},
		},
		{
			name: "non-finite points dropped",
			points: []Point{
				{TS: math.NaN(), Value: 50},
				{TS: 100, Value: math.Inf(1)},
				{TS: 200, Value: 30},
			},
			want: []model.Sample{
				{TS: 200, Value: 30},
			},
		},
		{
			name: "all points malformed degrades to empty",
			points: []Point{
				{TS: math.Inf(-1), Value: 50},
				{TS: 100, Value: math.NaN()},
			},
			want: nil,
		},
		{
			name: "unsorted input is sorted",
			points: []Point{
				{TS: 300, Value: 10},
				{TS: 100, Value: 20},
				{TS: 200, Value: 30},
			},
			want: []model.Sample{
				{TS: 100, Value: 20},
				{TS: 200, Value: 30},
				{TS: 300, Value: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.points)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := [][]Point{
		{{TS: 1700000000000, Value: 150}, {TS: 1700000000, Value: -5}},
		{{TS: 300, Value: 10}, {TS: 100, Value: 20}, {TS: 100, Value: 25}},
		{{TS: math.NaN(), Value: 1}},
		nil,
	}

	for _, points := range inputs {
		once := Normalize(points)
		twice := FromSamples(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("normalize not idempotent: first %v, second %v", once, twice)
		}
	}
}

func TestSpan(t *testing.T) {
	tests := []struct {
		name    string
		samples []model.Sample
		want    int64
	}{
		{"empty", nil, 0},
		{"single sample", []model.Sample{{TS: 100}}, 0},
		{"two samples", []model.Sample{{TS: 100}, {TS: 86500}}, 86400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Span(tt.samples); got != tt.want {
				t.Errorf("Span() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-3); got != 0 {
		t.Errorf("Clamp(-3) = %v, want 0", got)
	}
	if got := Clamp(150); got != 100 {
		t.Errorf("Clamp(150) = %v, want 100", got)
	}
	if got := Clamp(52.5); got != 52.5 {
		t.Errorf("Clamp(52.5) = %v, want 52.5", got)
	}
}

package series

import (
	"math"
	"sort"

	"github.com/shortstrade/feedcore/internal/model"
)

// msThreshold separates second-scale from millisecond-scale timestamps.
// Anything above it is assumed to be milliseconds (Sat Nov 20 2286 in
// seconds, well past any market close).
const msThreshold = 10_000_000_000

// Point is a raw (timestamp, value) observation before normalization.
// Timestamps may be seconds or milliseconds; values may be out of range.
type Point struct {
	TS    float64
	Value float64
}

// Normalize converts raw points into a canonical series: millisecond
// timestamps reduced to seconds, non-finite points dropped, duplicate
// timestamps resolved last-wins, values clamped to [0,100], output sorted
// strictly ascending. Malformed input degrades to an empty series.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(points []Point) []model.Sample {
	if len(points) == 0 {
		return nil
	}

	byTS := make(map[int64]float64, len(points))
	for _, p := range points {
		if math.IsNaN(p.TS) || math.IsInf(p.TS, 0) {
			continue
		}
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}

		ts := int64(p.TS)
		if ts > msThreshold {
			ts /= 1000
		}
		byTS[ts] = Clamp(p.Value)
	}

	if len(byTS) == 0 {
		return nil
	}

	out := make([]model.Sample, 0, len(byTS))
	for ts, v := range byTS {
		out = append(out, model.Sample{TS: ts, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS < out[j].TS })

	return out
}

// FromSamples re-normalizes an already typed series. Used when seed data
// embedded in a feed item cannot be trusted to be canonical.
func FromSamples(samples []model.Sample) []model.Sample {
	points := make([]Point, len(samples))
	for i, s := range samples {
		points[i] = Point{TS: float64(s.TS), Value: s.Value}
	}
	return Normalize(points)
}

// Clamp bounds a price value to the displayable [0,100] range.
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Span returns the time distance in seconds between the first and last
// sample of an ascending series, 0 for series shorter than two samples.
func Span(samples []model.Sample) int64 {
	if len(samples) < 2 {
		return 0
	}
	return samples[len(samples)-1].TS - samples[0].TS
}

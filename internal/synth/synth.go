// Package synth provides deterministic pseudo-random generation keyed by a
// stable string id. A linear congruential generator is seeded from the
// FNV-1a hash of the key, so the same key always yields the same stream.
// Exact bit-reproducibility across platforms is guaranteed by using fixed
// 64-bit constants (Knuth MMIX multiplier).
package synth

import (
	"hash/fnv"

	"github.com/shortstrade/feedcore/internal/model"
)

// LCG constants (Knuth, TAOCP Vol 2, MMIX).
const (
	lcgMul = 6364136223846793005
	lcgInc = 1442695040888963407
)

// Rand is a deterministic generator keyed by a string.
type Rand struct {
	state uint64
}

// New seeds a generator from the FNV-1a hash of key.
func New(key string) *Rand {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &Rand{state: h.Sum64()}
}

// next advances the LCG and returns the raw state.
func (r *Rand) next() uint64 {
	r.state = r.state*lcgMul + lcgInc
	return r.state
}

// IntN returns a value in [0, n). n must be positive.
func (r *Rand) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	// Top bits have the longest period in an LCG.
	return int((r.next() >> 33) % uint64(n))
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.next()>>11) / (1 << 53)
}

// Series generates a plausible random-walk price series for a market id:
// count samples ending at endTS, stepSec apart, walking from a mid price
// with bounded steps. Deterministic for a given (key, count, stepSec,
// endTS) tuple.
func Series(key string, count int, stepSec, endTS int64) []model.Sample {
	if count <= 0 {
		return nil
	}

	r := New(key)
	price := 30 + r.Float64()*40 // start somewhere mid-range

	out := make([]model.Sample, count)
	start := endTS - int64(count-1)*stepSec
	for i := 0; i < count; i++ {
		step := (r.Float64() - 0.5) * 6
		price += step
		if price < 1 {
			price = 1
		}
		if price > 99 {
			price = 99
		}
		out[i] = model.Sample{TS: start + int64(i)*stepSec, Value: price}
	}

	return out
}

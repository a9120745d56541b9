// Package series holds the pure time-series normalization helpers shared by
// the history cache and the API conversion layer.
package series

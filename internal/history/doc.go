// Package history implements the History Cache and the Series Reconciler.
//
// The cache maps a market id to its best-known price series under a
// monotonic improvement rule: concurrent publishes for the same market
// converge to the single best-available series regardless of arrival order
// and never regress. The reconciler sits in front of the cache and decides,
// per candidate arrival, whether observers need to hear about it.
package history

// Package snapshot persists per-session engine state so a reloaded session
// starts from its best-known price history instead of refetching everything.
//
// Three backends implement the same Store interface:
//   - memory: process-local, for tests and single-run tools
//   - redis: shared cache with TTL expiry
//   - postgres: durable key-value rows, one per session and kind
package snapshot

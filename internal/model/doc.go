// Package model defines shared data types used across the feed/price-history
// synchronization engine.
//
// Conventions:
//   - Prices: float cents (0-100), the display range of a binary contract
//   - Timestamps: int64 seconds since Unix epoch unless a field says otherwise
//   - IDs: string for feed items, market tickers and series tickers
package model

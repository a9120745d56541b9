// Package api provides the REST client for the two backend contracts the
// engine consumes: batched feed fetches and market price-history fetches.
//
// Requests are signed with RSA-PSS credentials when configured, retried
// with exponential backoff on retryable failures, and converted into the
// engine's model types at the package boundary.
package api

// Package scheduler implements the bounded-concurrency fetch scheduler.
//
// A scheduling pass takes the set of markets near the active feed item that
// lack cached history, filters out keys already settled or in flight, and
// fetches the remainder in sequential batches of at most Concurrency
// parallel requests. Each key is attempted at most once per pass.
package scheduler

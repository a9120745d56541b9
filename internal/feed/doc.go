// Package feed implements the Feed Queue Manager, the Active-Item Tracker
// and the embed ready-handshake watchdog.
//
// The queue owns the ordered, deduplicated list of feed items and grows it
// in batches as the viewer approaches the end. The tracker derives the
// active item from raw scroll positions and notifies its observer exactly
// once per logical item change.
package feed

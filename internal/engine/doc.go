// Package engine wires the feed pipeline together: the queue and tracker
// produce an active item, the scheduler fetches price history for markets
// on nearby items, and the reconciler merges racing results into the
// cache. The engine also owns session state: snapshot save/restore, the
// embed watchdog, and splicing of side-channel injections.
package engine

// Package inject subscribes to the injection side channel: a WebSocket
// feed of server-generated clips that get spliced into the local queue a
// few positions ahead of the viewer. The subscriber maintains one
// connection with automatic reconnect and delivers decoded events to a
// handler; consumed events are acknowledged so the server stops resending
// them.
package inject

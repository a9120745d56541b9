package inject

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shortstrade/feedcore/internal/model"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Envelope is the outer frame of every side-channel message.
type Envelope struct {
	Type string          `json:"type"` // "inject", "ping", "error"
	Msg  json.RawMessage `json:"msg"`
}

// InjectMsg is the message content for an "inject" frame.
type InjectMsg struct {
	Event model.InjectionEvent `json:"event"`
}

// Ack tells the server a pushed clip reached the local queue.
type Ack struct {
	Type   string `json:"type"` // Always "ack"
	ItemID string `json:"item_id"`
}

// ClientConfig configures the side-channel WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL
	APIKey       string        // Bearer token, empty for anonymous
	PingTimeout  time.Duration // Max time without ping before considering connection stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   64,
	}
}

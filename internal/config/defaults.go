package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL            = "https://api.shortstrade.com/v1"
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryBackoff       = 1 * time.Second
	DefaultConcurrency        = 4
	DefaultLowWaterMark       = 5
	DefaultBatchSize          = 10
	DefaultInjectWindow       = 3
	DefaultEmbedReadyTimeout  = 8 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultPingInterval       = 15 * time.Second
	DefaultReadTimeout        = 30 * time.Second
	DefaultSnapshotBackend    = "memory"
	DefaultSnapshotTTL        = 24 * time.Hour
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultRedisAddr          = "localhost:6379"
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
)

func (c *EngineConfig) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Scheduler defaults
	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = DefaultConcurrency
	}

	// Queue defaults
	if c.Queue.LowWaterMark == 0 {
		c.Queue.LowWaterMark = DefaultLowWaterMark
	}
	if c.Queue.BatchSize == 0 {
		c.Queue.BatchSize = DefaultBatchSize
	}
	if c.Queue.InjectWindow == 0 {
		c.Queue.InjectWindow = DefaultInjectWindow
	}

	// Embed defaults
	if c.Embed.ReadyTimeout == 0 {
		c.Embed.ReadyTimeout = DefaultEmbedReadyTimeout
	}

	// Inject defaults
	if c.Inject.ReconnectBaseDelay == 0 {
		c.Inject.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Inject.ReconnectMaxDelay == 0 {
		c.Inject.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Inject.PingInterval == 0 {
		c.Inject.PingInterval = DefaultPingInterval
	}
	if c.Inject.ReadTimeout == 0 {
		c.Inject.ReadTimeout = DefaultReadTimeout
	}

	// Snapshot defaults
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = DefaultSnapshotBackend
	}
	if c.Snapshot.TTL == 0 {
		c.Snapshot.TTL = DefaultSnapshotTTL
	}
	if c.Snapshot.Redis.Addr == "" {
		c.Snapshot.Redis.Addr = DefaultRedisAddr
	}
	applyDBDefaults(&c.Snapshot.Postgres)

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

package config

import "time"

// EngineConfig is the root configuration for a feed engine instance.
type EngineConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	API       APIConfig       `yaml:"api"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Queue     QueueConfig     `yaml:"queue"`
	Embed     EmbedConfig     `yaml:"embed"`
	Inject    InjectConfig    `yaml:"inject"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this engine instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds feed backend API settings.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`          // API key ID, empty for unsigned requests
	PrivateKeyPath string        `yaml:"private_key_path"` // Path to RSA private key PEM file
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
}

// SchedulerConfig holds history fetch scheduler settings.
type SchedulerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// QueueConfig holds feed queue settings.
type QueueConfig struct {
	LowWaterMark int `yaml:"low_water_mark"`
	BatchSize    int `yaml:"batch_size"`
	InjectWindow int `yaml:"inject_window"`
}

// EmbedConfig holds external embed playback settings.
type EmbedConfig struct {
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
}

// InjectConfig holds the injection side-channel settings. An empty URL
// disables the subscriber.
type InjectConfig struct {
	WSURL              string        `yaml:"ws_url"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
}

// SnapshotConfig selects and configures the session snapshot store.
type SnapshotConfig struct {
	Backend  string        `yaml:"backend"` // memory, redis or postgres
	TTL      time.Duration `yaml:"ttl"`
	Redis    RedisConfig   `yaml:"redis"`
	Postgres DBConfig      `yaml:"postgres"`
}

// RedisConfig holds a Redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DBConfig holds a single Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *EngineConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if (c.API.APIKey == "") != (c.API.PrivateKeyPath == "") {
		return errors.New("api.api_key and api.private_key_path must be set together")
	}

	if c.Scheduler.Concurrency < 1 {
		return errors.New("scheduler.concurrency must be >= 1")
	}

	if c.Queue.LowWaterMark < 1 {
		return errors.New("queue.low_water_mark must be >= 1")
	}
	if c.Queue.BatchSize < 1 {
		return errors.New("queue.batch_size must be >= 1")
	}
	if c.Queue.InjectWindow < 1 {
		return errors.New("queue.inject_window must be >= 1")
	}

	switch c.Snapshot.Backend {
	case "memory":
	case "redis":
		if c.Snapshot.Redis.Addr == "" {
			return errors.New("snapshot.redis.addr is required")
		}
	case "postgres":
		if err := c.Snapshot.Postgres.validate("snapshot.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("snapshot.backend must be memory, redis or postgres, got %q", c.Snapshot.Backend)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

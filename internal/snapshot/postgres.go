package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shortstrade/feedcore/internal/config"
	"github.com/shortstrade/feedcore/internal/model"
)

// PostgresStore keeps session snapshots as key-value rows, one per session
// and kind. Durable across restarts, unlike the Redis backend.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS feed_snapshots (
	session_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, kind)
)`

const upsertSnapshot = `
INSERT INTO feed_snapshots (session_id, kind, payload, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (session_id, kind)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`

const selectSnapshot = `
SELECT payload FROM feed_snapshots WHERE session_id = $1 AND kind = $2`

// NewPostgresStore connects to Postgres, verifies the connection, and
// ensures the snapshot table exists.
func NewPostgresStore(ctx context.Context, cfg config.DBConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, snapshotSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

func (s *PostgresStore) save(ctx context.Context, session, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", kind, err)
	}
	if _, err := s.pool.Exec(ctx, upsertSnapshot, session, kind, data); err != nil {
		return fmt.Errorf("save %s snapshot: %w", kind, err)
	}
	return nil
}

func (s *PostgresStore) load(ctx context.Context, session, kind string, out any) (bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, selectSnapshot, session, kind).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s snapshot: %w", kind, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal %s snapshot: %w", kind, err)
	}
	return true, nil
}

func (s *PostgresStore) SaveHistory(ctx context.Context, session string, entries map[string]model.CachedSeries) error {
	return s.save(ctx, session, "history", entries)
}

func (s *PostgresStore) LoadHistory(ctx context.Context, session string) (map[string]model.CachedSeries, error) {
	var entries map[string]model.CachedSeries
	found, err := s.load(ctx, session, "history", &entries)
	if err != nil || !found {
		return nil, err
	}
	return entries, nil
}

func (s *PostgresStore) SaveSeenKeys(ctx context.Context, session string, keys []string) error {
	return s.save(ctx, session, "seen", keys)
}

func (s *PostgresStore) LoadSeenKeys(ctx context.Context, session string) ([]string, error) {
	var keys []string
	found, err := s.load(ctx, session, "seen", &keys)
	if err != nil || !found {
		return nil, err
	}
	return keys, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

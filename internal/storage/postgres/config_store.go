// Package postgres provides the pgx-backed ConfigStore.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kayiwa/browsertrix-cloud/internal/crawlconfig"
)

const uniqueViolation = "23505"

// ConfigStoreConfig controls the Postgres connection pool.
type ConfigStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// ConfigStore persists crawl configurations in the crawl_configs table.
// Assumed schema:
//
//	CREATE TABLE crawl_configs (
//	    id TEXT PRIMARY KEY,
//	    aid TEXT NOT NULL,
//	    userid TEXT NOT NULL,
//	    schedule TEXT NOT NULL DEFAULT '',
//	    crawl_timeout INTEGER NOT NULL DEFAULT 0,
//	    crawl_count BIGINT NOT NULL DEFAULT 0,
//	    config JSONB NOT NULL,
//	    created TIMESTAMPTZ NOT NULL
//	);
type ConfigStore struct {
	pool pgxPool
}

// NewConfigStore creates a Postgres-backed ConfigStore using the provided config.
func NewConfigStore(ctx context.Context, cfg ConfigStoreConfig) (*ConfigStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ConfigStore{pool: pool}, nil
}

// NewConfigStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewConfigStoreWithPool(pool pgxPool) (*ConfigStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ConfigStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ConfigStore) Close() {
	s.pool.Close()
}

// Insert stores a new record, mapping a unique violation to ErrDuplicateKey.
func (s *ConfigStore) Insert(ctx context.Context, cfg crawlconfig.CrawlConfig) error {
	rawConfig, err := json.Marshal(cfg.Config)
	if err != nil {
		return fmt.Errorf("marshal raw config: %w", err)
	}
	query := `
		INSERT INTO crawl_configs (id, aid, userid, schedule, crawl_timeout, crawl_count, config, created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.pool.Exec(ctx, query,
		cfg.ID,
		cfg.Archive,
		cfg.User,
		cfg.Schedule,
		cfg.CrawlTimeout,
		cfg.CrawlCount,
		rawConfig,
		cfg.Created,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return crawlconfig.ErrDuplicateKey
		}
		return fmt.Errorf("insert crawl config: %w", err)
	}
	return nil
}

// FindOne returns the single record matching the filter.
func (s *ConfigStore) FindOne(ctx context.Context, f crawlconfig.Filter) (crawlconfig.CrawlConfig, error) {
	where, args := whereClause(f)
	query := selectColumns + " FROM crawl_configs " + where
	row := s.pool.QueryRow(ctx, query, args...)
	cfg, err := scanConfig(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crawlconfig.CrawlConfig{}, crawlconfig.ErrNotFound
		}
		return crawlconfig.CrawlConfig{}, fmt.Errorf("find crawl config: %w", err)
	}
	return cfg, nil
}

// FindMany returns all records matching the filter.
func (s *ConfigStore) FindMany(ctx context.Context, f crawlconfig.Filter) ([]crawlconfig.CrawlConfig, error) {
	where, args := whereClause(f)
	query := selectColumns + " FROM crawl_configs " + where + " ORDER BY created"
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list crawl configs: %w", err)
	}
	defer rows.Close()

	out := make([]crawlconfig.CrawlConfig, 0)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan crawl config: %w", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawl configs: %w", err)
	}
	return out, nil
}

// UpdateSchedule atomically replaces the schedule of the matching record.
func (s *ConfigStore) UpdateSchedule(ctx context.Context, f crawlconfig.Filter, schedule string) error {
	where, args := whereClauseFrom(f, 2)
	query := "UPDATE crawl_configs SET schedule = $1 " + where
	tag, err := s.pool.Exec(ctx, query, append([]any{schedule}, args...)...)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return crawlconfig.ErrNotFound
	}
	return nil
}

// IncrementCrawlCount adds one to the counter in a single UPDATE, so
// concurrent callers never lose an increment. Zero rows affected means the
// record is gone, which is a no-op by contract.
func (s *ConfigStore) IncrementCrawlCount(ctx context.Context, cid string) error {
	query := "UPDATE crawl_configs SET crawl_count = crawl_count + 1 WHERE id = $1"
	if _, err := s.pool.Exec(ctx, query, cid); err != nil {
		return fmt.Errorf("increment crawl count: %w", err)
	}
	return nil
}

// DeleteOne removes the matching record.
func (s *ConfigStore) DeleteOne(ctx context.Context, f crawlconfig.Filter) error {
	where, args := whereClause(f)
	tag, err := s.pool.Exec(ctx, "DELETE FROM crawl_configs "+where, args...)
	if err != nil {
		return fmt.Errorf("delete crawl config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return crawlconfig.ErrNotFound
	}
	return nil
}

// DeleteMany removes all matching records and returns how many.
func (s *ConfigStore) DeleteMany(ctx context.Context, f crawlconfig.Filter) (int64, error) {
	where, args := whereClause(f)
	tag, err := s.pool.Exec(ctx, "DELETE FROM crawl_configs "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete crawl configs: %w", err)
	}
	return tag.RowsAffected(), nil
}

const selectColumns = "SELECT id, aid, userid, schedule, crawl_timeout, crawl_count, config, created"

func scanConfig(row pgx.Row) (crawlconfig.CrawlConfig, error) {
	var cfg crawlconfig.CrawlConfig
	var rawConfig []byte
	if err := row.Scan(
		&cfg.ID,
		&cfg.Archive,
		&cfg.User,
		&cfg.Schedule,
		&cfg.CrawlTimeout,
		&cfg.CrawlCount,
		&rawConfig,
		&cfg.Created,
	); err != nil {
		return crawlconfig.CrawlConfig{}, err
	}
	if err := json.Unmarshal(rawConfig, &cfg.Config); err != nil {
		return crawlconfig.CrawlConfig{}, fmt.Errorf("unmarshal raw config: %w", err)
	}
	return cfg, nil
}

func whereClause(f crawlconfig.Filter) (string, []any) {
	return whereClauseFrom(f, 1)
}

// whereClauseFrom builds the exact-match WHERE conjunction, numbering
// placeholders from start.
func whereClauseFrom(f crawlconfig.Filter, start int) (string, []any) {
	var conds []string
	var args []any
	n := start
	if f.ID != "" {
		conds = append(conds, "id = $"+strconv.Itoa(n))
		args = append(args, f.ID)
		n++
	}
	if f.Archive != "" {
		conds = append(conds, "aid = $"+strconv.Itoa(n))
		args = append(args, f.Archive)
		n++
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/kayiwa/browsertrix-cloud/internal/crawlconfig"
)

var configColumns = []string{"id", "aid", "userid", "schedule", "crawl_timeout", "crawl_count", "config", "created"}

func sampleConfig(t *testing.T) (crawlconfig.CrawlConfig, []byte) {
	t.Helper()
	cfg := crawlconfig.CrawlConfig{
		ID:       "cid-1",
		Archive:  "archive-1",
		User:     "user-1",
		Schedule: "0 0 * * *",
		Config: crawlconfig.RawCrawlConfig{
			Seeds: []crawlconfig.Seed{{URL: "https://example.com/", ScopeType: crawlconfig.ScopePrefix}},
		},
		Created: time.Unix(1600000000, 0).UTC(),
	}
	raw, err := json.Marshal(cfg.Config)
	require.NoError(t, err)
	return cfg, raw
}

func TestInsertStoresRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	cfg, raw := sampleConfig(t)
	mock.ExpectExec("INSERT INTO crawl_configs").
		WithArgs(cfg.ID, cfg.Archive, cfg.User, cfg.Schedule, cfg.CrawlTimeout, cfg.CrawlCount, raw, cfg.Created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Insert(context.Background(), cfg))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMapsUniqueViolation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	cfg, raw := sampleConfig(t)
	mock.ExpectExec("INSERT INTO crawl_configs").
		WithArgs(cfg.ID, cfg.Archive, cfg.User, cfg.Schedule, cfg.CrawlTimeout, cfg.CrawlCount, raw, cfg.Created).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = store.Insert(context.Background(), cfg)
	require.ErrorIs(t, err, crawlconfig.ErrDuplicateKey)
}

func TestFindOneScansRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	cfg, raw := sampleConfig(t)
	mock.ExpectQuery("SELECT id, aid, userid, schedule, crawl_timeout, crawl_count, config, created FROM crawl_configs").
		WithArgs("cid-1", "archive-1").
		WillReturnRows(pgxmock.NewRows(configColumns).
			AddRow(cfg.ID, cfg.Archive, cfg.User, cfg.Schedule, cfg.CrawlTimeout, cfg.CrawlCount, raw, cfg.Created))

	got, err := store.FindOne(context.Background(), crawlconfig.Filter{ID: "cid-1", Archive: "archive-1"})
	require.NoError(t, err)
	require.Equal(t, cfg.ID, got.ID)
	require.Equal(t, cfg.Schedule, got.Schedule)
	require.Equal(t, "https://example.com/", got.Config.Seeds[0].URL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOneNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM crawl_configs").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(configColumns))

	_, err = store.FindOne(context.Background(), crawlconfig.Filter{ID: "missing"})
	require.ErrorIs(t, err, crawlconfig.ErrNotFound)
}

func TestFindManyReturnsAllRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	cfg, raw := sampleConfig(t)
	mock.ExpectQuery("SELECT .+ FROM crawl_configs .+ ORDER BY created").
		WithArgs("archive-1").
		WillReturnRows(pgxmock.NewRows(configColumns).
			AddRow("cid-1", cfg.Archive, cfg.User, cfg.Schedule, 0, int64(0), raw, cfg.Created).
			AddRow("cid-2", cfg.Archive, cfg.User, "", 0, int64(3), raw, cfg.Created))

	configs, err := store.FindMany(context.Background(), crawlconfig.Filter{Archive: "archive-1"})
	require.NoError(t, err)
	require.Len(t, configs, 2)
	require.EqualValues(t, 3, configs[1].CrawlCount)
}

func TestUpdateScheduleAffectsMatchingRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE crawl_configs SET schedule").
		WithArgs("30 2 * * *", "cid-1", "archive-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.UpdateSchedule(context.Background(), crawlconfig.Filter{ID: "cid-1", Archive: "archive-1"}, "30 2 * * *")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScheduleNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE crawl_configs SET schedule").
		WithArgs("", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateSchedule(context.Background(), crawlconfig.Filter{ID: "missing"}, "")
	require.ErrorIs(t, err, crawlconfig.ErrNotFound)
}

func TestIncrementCrawlCountIsSingleUpdate(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE crawl_configs SET crawl_count = crawl_count \+ 1`).
		WithArgs("cid-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.IncrementCrawlCount(context.Background(), "cid-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementCrawlCountMissingIsNoOp(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE crawl_configs SET crawl_count = crawl_count \+ 1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, store.IncrementCrawlCount(context.Background(), "missing"))
}

func TestDeleteOneNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("DELETE FROM crawl_configs").
		WithArgs("missing", "archive-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = store.DeleteOne(context.Background(), crawlconfig.Filter{ID: "missing", Archive: "archive-1"})
	require.ErrorIs(t, err, crawlconfig.ErrNotFound)
}

func TestDeleteManyReturnsCount(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewConfigStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("DELETE FROM crawl_configs").
		WithArgs("archive-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	deleted, err := store.DeleteMany(context.Background(), crawlconfig.Filter{Archive: "archive-1"})
	require.NoError(t, err)
	require.EqualValues(t, 4, deleted)
}

func TestNewConfigStoreWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewConfigStoreWithPool(nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, crawlconfig.ErrNotFound))
}

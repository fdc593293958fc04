package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kayiwa/browsertrix-cloud/internal/crawlconfig"
)

func sampleConfig(id, aid string) crawlconfig.CrawlConfig {
	return crawlconfig.CrawlConfig{
		ID:      id,
		Archive: aid,
		User:    "user-1",
		Config: crawlconfig.RawCrawlConfig{
			Seeds: []crawlconfig.Seed{{URL: "https://example.com/", ScopeType: crawlconfig.ScopePrefix}},
		},
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	store := NewConfigStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleConfig("cid-1", "archive-1")))
	err := store.Insert(ctx, sampleConfig("cid-1", "archive-2"))
	require.ErrorIs(t, err, crawlconfig.ErrDuplicateKey)
}

func TestFindOneEnforcesArchiveBoundary(t *testing.T) {
	t.Parallel()

	store := NewConfigStore()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, sampleConfig("cid-1", "archive-1")))

	_, err := store.FindOne(ctx, crawlconfig.Filter{ID: "cid-1", Archive: "archive-2"})
	require.ErrorIs(t, err, crawlconfig.ErrNotFound)

	got, err := store.FindOne(ctx, crawlconfig.Filter{ID: "cid-1", Archive: "archive-1"})
	require.NoError(t, err)
	require.Equal(t, "cid-1", got.ID)
}

func TestFindManyFiltersByArchive(t *testing.T) {
	t.Parallel()

	store := NewConfigStore()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, sampleConfig("cid-1", "archive-1")))
	require.NoError(t, store.Insert(ctx, sampleConfig("cid-2", "archive-1")))
	require.NoError(t, store.Insert(ctx, sampleConfig("cid-3", "archive-2")))

	configs, err := store.FindMany(ctx, crawlconfig.Filter{Archive: "archive-1"})
	require.NoError(t, err)
	require.Len(t, configs, 2)
}

func TestUpdateScheduleOnlyTouchesSchedule(t *testing.T) {
	t.Parallel()

	store := NewConfigStore()
	ctx := context.Background()
	cfg := sampleConfig("cid-1", "archive-1")
	cfg.CrawlCount = 5
	require.NoError(t, store.Insert(ctx, cfg))

	require.NoError(t, store.UpdateSchedule(ctx, crawlconfig.Filter{ID: "cid-1"}, "0 0 * * *"))

	got, err := store.FindOne(ctx, crawlconfig.Filter{ID: "cid-1"})
	require.NoError(t, err)
	require.Equal(t, "0 0 * * *", got.Schedule)
	require.EqualValues(t, 5, got.CrawlCount)
	require.Equal(t, "user-1", got.User)
}

func TestIncrementCrawlCountConcurrent(t *testing.T) {
	t.Parallel()

	store := NewConfigStore()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, sampleConfig("cid-1", "archive-1")))

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = store.IncrementCrawlCount(ctx, "cid-1")
		}()
	}
	wg.Wait()

	got, err := store.FindOne(ctx, crawlconfig.Filter{ID: "cid-1"})
	require.NoError(t, err)
	require.EqualValues(t, n, got.CrawlCount)
}

func TestIncrementCrawlCountMissingIsNoOp(t *testing.T) {
	t.Parallel()

	store := NewConfigStore()
	require.NoError(t, store.IncrementCrawlCount(context.Background(), "missing"))
}

func TestDeleteManyReturnsCount(t *testing.T) {
	t.Parallel()

	store := NewConfigStore()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, sampleConfig("cid-1", "archive-1")))
	require.NoError(t, store.Insert(ctx, sampleConfig("cid-2", "archive-1")))
	require.NoError(t, store.Insert(ctx, sampleConfig("cid-3", "archive-2")))

	deleted, err := store.DeleteMany(ctx, crawlconfig.Filter{Archive: "archive-1"})
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	remaining, err := store.FindMany(ctx, crawlconfig.Filter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "cid-3", remaining[0].ID)
}

func TestDeleteOneNotFound(t *testing.T) {
	t.Parallel()

	store := NewConfigStore()
	err := store.DeleteOne(context.Background(), crawlconfig.Filter{ID: "missing"})
	require.ErrorIs(t, err, crawlconfig.ErrNotFound)
}

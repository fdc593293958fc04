package crawlconfig

import (
	"context"
	"time"
)

// ConfigStore persists crawl configuration records. Each method is atomic on
// the record key; the coordination service relies on that instead of holding
// any lock of its own.
type ConfigStore interface {
	// Insert stores a new record, returning ErrDuplicateKey on id collision.
	Insert(ctx context.Context, cfg CrawlConfig) error
	// FindOne returns the single record matching the filter, or ErrNotFound.
	FindOne(ctx context.Context, f Filter) (CrawlConfig, error)
	// FindMany returns all records matching the filter.
	FindMany(ctx context.Context, f Filter) ([]CrawlConfig, error)
	// UpdateSchedule atomically replaces only the schedule field of the
	// matching record, returning ErrNotFound if nothing matched.
	UpdateSchedule(ctx context.Context, f Filter, schedule string) error
	// IncrementCrawlCount adds exactly one to the matching record's counter.
	// A missing record is a no-op, not an error.
	IncrementCrawlCount(ctx context.Context, cid string) error
	// DeleteOne removes the matching record, returning ErrNotFound if nothing
	// matched.
	DeleteOne(ctx context.Context, f Filter) error
	// DeleteMany removes all matching records and returns how many.
	DeleteMany(ctx context.Context, f Filter) (int64, error)
}

// CrawlManager is the orchestrator capability the coordination service
// consumes. Every call is keyed on the configuration id and must be safe to
// repeat: callers retry at least once on transient failure.
type CrawlManager interface {
	// AddCrawlConfig registers a configuration with the orchestrator and
	// returns the derived job name. A non-empty schedule creates the
	// recurring job; an empty one registers limits and storage only.
	AddCrawlConfig(ctx context.Context, cfg CrawlConfig, storage StorageTarget) (string, error)
	// UpdateSchedule reconciles the recurring job for cid: empty schedule
	// deregisters, non-empty creates or replaces. Idempotent.
	UpdateSchedule(ctx context.Context, cid string, schedule string) error
	// DeleteCrawlConfig removes any orchestrator state for cid. Idempotent.
	DeleteCrawlConfig(ctx context.Context, cid string) error
	// RunCrawlConfig starts an ad hoc crawl from the given stored
	// configuration and returns the crawl id.
	RunCrawlConfig(ctx context.Context, cfg CrawlConfig) (string, error)
}

// IDGenerator produces record ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

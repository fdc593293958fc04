package crawlconfig

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kayiwa/browsertrix-cloud/internal/metrics"
)

// Ops is the coordination service: it sequences store writes and orchestrator
// calls so the two stay consistent, and maps every partial failure to a typed
// outcome the caller can retry.
//
// There is no lock here. Correctness comes from the store being atomic per
// record key and every CrawlManager call being idempotent keyed on the
// configuration id, so interleaved retries converge instead of duplicating.
type Ops struct {
	store   ConfigStore
	manager CrawlManager
	idGen   IDGenerator
	clock   Clock
	logger  *zap.Logger
}

// New constructs the coordination service from its collaborators.
func New(store ConfigStore, manager CrawlManager, idGen IDGenerator, clock Clock, logger *zap.Logger) *Ops {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ops{
		store:   store,
		manager: manager,
		idGen:   idGen,
		clock:   clock,
		logger:  logger,
	}
}

// Add validates and persists a new configuration, registers it with the
// orchestrator, and optionally starts an immediate crawl.
//
// If the record is stored but registration fails, the record is kept and a
// *RegistrationError is returned: losing user data on a transient
// orchestrator fault is worse than a temporarily unregistered schedule, and
// the registration can be re-driven later with the same id.
func (o *Ops) Add(ctx context.Context, in CrawlConfigIn, archive Archive, user string) (CreateResult, error) {
	if err := Normalize(&in); err != nil {
		return CreateResult{}, err
	}

	cid, err := o.idGen.NewID()
	if err != nil {
		return CreateResult{}, fmt.Errorf("generate config id: %w", err)
	}

	cfg := CrawlConfig{
		ID:           cid,
		Archive:      archive.ID,
		User:         user,
		Schedule:     in.Schedule,
		CrawlTimeout: in.CrawlTimeout,
		Config:       in.Config,
		Created:      o.clock.Now(),
	}

	if err := o.store.Insert(ctx, cfg); err != nil {
		return CreateResult{}, fmt.Errorf("insert crawl config: %w", err)
	}

	jobName, err := o.manager.AddCrawlConfig(ctx, cfg, archive.Storage)
	if err != nil {
		o.logger.Error("orchestrator registration failed",
			zap.String("cid", cid),
			zap.String("aid", archive.ID),
			zap.Error(err),
		)
		metrics.RecordManagerFailure("register")
		return CreateResult{ID: cid}, &RegistrationError{ConfigID: cid, Err: err}
	}

	o.logger.Info("crawl config added",
		zap.String("cid", cid),
		zap.String("aid", archive.ID),
		zap.String("job", jobName),
		zap.String("schedule", cfg.Schedule),
	)
	metrics.RecordConfigAdded()

	result := CreateResult{ID: cid}
	if in.RunNow {
		crawlID, err := o.manager.RunCrawlConfig(ctx, cfg)
		if err != nil {
			metrics.RecordManagerFailure("run")
			return result, &SyncError{ConfigID: cid, Op: "run", Err: err}
		}
		metrics.RecordCrawlStarted()
		result.CrawlID = crawlID
	}
	return result, nil
}

// Get returns the record for cid within the archive's ownership boundary.
func (o *Ops) Get(ctx context.Context, cid, aid string) (CrawlConfig, error) {
	return o.store.FindOne(ctx, Filter{ID: cid, Archive: aid})
}

// List returns all configurations owned by the archive.
func (o *Ops) List(ctx context.Context, aid string) ([]CrawlConfig, error) {
	return o.store.FindMany(ctx, Filter{Archive: aid})
}

// UpdateSchedule stores the new schedule and reconciles the orchestrator's
// recurring job for cid: empty deregisters, non-empty creates or replaces.
//
// The store write lands first, making the stored schedule authoritative; a
// *SyncError afterwards means a retry of the identical call will re-drive
// orchestrator state without side effects.
func (o *Ops) UpdateSchedule(ctx context.Context, cid, aid, schedule string) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}
	if err := o.store.UpdateSchedule(ctx, Filter{ID: cid, Archive: aid}, schedule); err != nil {
		return err
	}
	if err := o.manager.UpdateSchedule(ctx, cid, schedule); err != nil {
		o.logger.Error("schedule reconciliation failed",
			zap.String("cid", cid),
			zap.String("schedule", schedule),
			zap.Error(err),
		)
		metrics.RecordManagerFailure("reconcile")
		return &SyncError{ConfigID: cid, Op: "reconcile schedule", Err: err}
	}
	o.logger.Info("schedule updated", zap.String("cid", cid), zap.String("schedule", schedule))
	return nil
}

// IncrementCrawlCount adds one to the run counter for cid. The orchestrator
// invokes this as a fire-and-forget completion signal, so a record deleted in
// the meantime is a no-op rather than an error.
func (o *Ops) IncrementCrawlCount(ctx context.Context, cid string) error {
	return o.store.IncrementCrawlCount(ctx, cid)
}

// Run starts an ad hoc crawl from the record's current stored configuration,
// not a snapshot taken at creation. The stored record is not mutated.
func (o *Ops) Run(ctx context.Context, cid, aid string) (string, error) {
	cfg, err := o.store.FindOne(ctx, Filter{ID: cid, Archive: aid})
	if err != nil {
		return "", err
	}
	crawlID, err := o.manager.RunCrawlConfig(ctx, cfg)
	if err != nil {
		metrics.RecordManagerFailure("run")
		return "", fmt.Errorf("start crawl for config %s: %w", cid, err)
	}
	o.logger.Info("crawl started", zap.String("cid", cid), zap.String("crawl_id", crawlID))
	metrics.RecordCrawlStarted()
	return crawlID, nil
}

// Delete deregisters the orchestrator job before removing the record. If
// deregistration fails the record is kept and a *SyncError returned: an
// orphaned schedule firing against a vanished record is strictly worse than a
// dangling record the caller can delete again.
func (o *Ops) Delete(ctx context.Context, cid, aid string) error {
	if err := o.manager.DeleteCrawlConfig(ctx, cid); err != nil {
		o.logger.Error("orchestrator deregistration failed",
			zap.String("cid", cid),
			zap.Error(err),
		)
		metrics.RecordManagerFailure("deregister")
		return &SyncError{ConfigID: cid, Op: "deregister", Err: err}
	}
	if err := o.store.DeleteOne(ctx, Filter{ID: cid, Archive: aid}); err != nil {
		return err
	}
	o.logger.Info("crawl config deleted", zap.String("cid", cid))
	metrics.RecordConfigDeleted()
	return nil
}

// DeleteAllForArchive deregisters and removes every configuration the archive
// owns. Partial deregistration failure is surfaced in the result: records
// whose orchestrator job could not be removed stay stored and their ids are
// reported in Remaining.
func (o *Ops) DeleteAllForArchive(ctx context.Context, aid string) (DeleteAllResult, error) {
	configs, err := o.store.FindMany(ctx, Filter{Archive: aid})
	if err != nil {
		return DeleteAllResult{}, fmt.Errorf("list crawl configs for archive %s: %w", aid, err)
	}

	var result DeleteAllResult
	var deregistered []string
	for _, cfg := range configs {
		if err := o.manager.DeleteCrawlConfig(ctx, cfg.ID); err != nil {
			o.logger.Error("orchestrator deregistration failed during bulk delete",
				zap.String("cid", cfg.ID),
				zap.String("aid", aid),
				zap.Error(err),
			)
			metrics.RecordManagerFailure("deregister")
			result.Remaining = append(result.Remaining, cfg.ID)
			continue
		}
		deregistered = append(deregistered, cfg.ID)
	}

	if len(result.Remaining) == 0 {
		deleted, err := o.store.DeleteMany(ctx, Filter{Archive: aid})
		if err != nil {
			return result, fmt.Errorf("bulk delete crawl configs for archive %s: %w", aid, err)
		}
		result.Deleted = deleted
	} else {
		// Records whose jobs could not be deregistered must survive, so the
		// bulk path is off the table; remove only what is safe.
		for _, cid := range deregistered {
			if err := o.store.DeleteOne(ctx, Filter{ID: cid, Archive: aid}); err != nil {
				if errors.Is(err, ErrNotFound) {
					// Deleted concurrently; the orchestrator job is gone either way.
					continue
				}
				result.Remaining = append(result.Remaining, cid)
				continue
			}
			result.Deleted++
		}
	}
	metrics.RecordConfigsDeleted(result.Deleted)
	return result, nil
}

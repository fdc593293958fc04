// Package manager holds crawl orchestrator client implementations. The
// capability contract itself lives in crawlconfig.CrawlManager; production
// deployments point this at the external orchestrator, while the no-op
// implementation here runs the service without one.
package manager

import (
	"context"
	"fmt"

	"github.com/kayiwa/browsertrix-cloud/internal/crawlconfig"
)

// NoOpManager accepts every orchestrator call without doing anything. It is
// useful for local development and for running the API against a store only.
type NoOpManager struct{}

// NewNoOpManager creates a NoOpManager.
func NewNoOpManager() *NoOpManager {
	return &NoOpManager{}
}

// AddCrawlConfig returns a job name derived from the config id.
func (NoOpManager) AddCrawlConfig(_ context.Context, cfg crawlconfig.CrawlConfig, _ crawlconfig.StorageTarget) (string, error) {
	return JobName(cfg.ID), nil
}

// UpdateSchedule does nothing and reports success.
func (NoOpManager) UpdateSchedule(_ context.Context, _ string, _ string) error {
	return nil
}

// DeleteCrawlConfig does nothing and reports success.
func (NoOpManager) DeleteCrawlConfig(_ context.Context, _ string) error {
	return nil
}

// RunCrawlConfig returns a synthetic crawl id.
func (NoOpManager) RunCrawlConfig(_ context.Context, cfg crawlconfig.CrawlConfig) (string, error) {
	return fmt.Sprintf("noop-crawl-%s", cfg.ID), nil
}

// JobName derives the orchestrator job name for a configuration id. The name
// is a pure function of the id so repeated registrations collide into the
// same job instead of creating duplicates.
func JobName(cid string) string {
	return "crawl-job-" + cid
}

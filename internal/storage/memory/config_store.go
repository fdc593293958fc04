// Package memory provides an in-memory ConfigStore for development/testing.
package memory

import (
	"context"
	"sync"

	"github.com/kayiwa/browsertrix-cloud/internal/crawlconfig"
)

// ConfigStore keeps crawl configurations in a mutex-guarded map. Every
// operation is atomic on the record key, matching the contract the
// coordination service relies on.
type ConfigStore struct {
	mu      sync.RWMutex
	configs map[string]crawlconfig.CrawlConfig
}

// NewConfigStore constructs a ConfigStore.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		configs: make(map[string]crawlconfig.CrawlConfig),
	}
}

// Insert stores a new record, failing on id collision.
func (s *ConfigStore) Insert(_ context.Context, cfg crawlconfig.CrawlConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[cfg.ID]; exists {
		return crawlconfig.ErrDuplicateKey
	}
	s.configs[cfg.ID] = cfg
	return nil
}

// FindOne returns the record matching the filter.
func (s *ConfigStore) FindOne(_ context.Context, f crawlconfig.Filter) (crawlconfig.CrawlConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f.ID != "" {
		cfg, ok := s.configs[f.ID]
		if !ok || !f.Matches(cfg) {
			return crawlconfig.CrawlConfig{}, crawlconfig.ErrNotFound
		}
		return cfg, nil
	}
	for _, cfg := range s.configs {
		if f.Matches(cfg) {
			return cfg, nil
		}
	}
	return crawlconfig.CrawlConfig{}, crawlconfig.ErrNotFound
}

// FindMany returns all records matching the filter.
func (s *ConfigStore) FindMany(_ context.Context, f crawlconfig.Filter) ([]crawlconfig.CrawlConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawlconfig.CrawlConfig, 0)
	for _, cfg := range s.configs {
		if f.Matches(cfg) {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// UpdateSchedule replaces only the schedule field of the matching record.
func (s *ConfigStore) UpdateSchedule(_ context.Context, f crawlconfig.Filter, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[f.ID]
	if !ok || !f.Matches(cfg) {
		return crawlconfig.ErrNotFound
	}
	cfg.Schedule = schedule
	s.configs[f.ID] = cfg
	return nil
}

// IncrementCrawlCount adds one to the counter; missing records are a no-op.
func (s *ConfigStore) IncrementCrawlCount(_ context.Context, cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[cid]
	if !ok {
		return nil
	}
	cfg.CrawlCount++
	s.configs[cid] = cfg
	return nil
}

// DeleteOne removes the matching record.
func (s *ConfigStore) DeleteOne(_ context.Context, f crawlconfig.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[f.ID]
	if !ok || !f.Matches(cfg) {
		return crawlconfig.ErrNotFound
	}
	delete(s.configs, f.ID)
	return nil
}

// DeleteMany removes all matching records and returns how many.
func (s *ConfigStore) DeleteMany(_ context.Context, f crawlconfig.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, cfg := range s.configs {
		if f.Matches(cfg) {
			delete(s.configs, id)
			deleted++
		}
	}
	return deleted, nil
}

package crawlconfig

import (
	"github.com/robfig/cron/v3"
)

// Defaults applied during normalization.
const (
	DefaultCollection      = "my-web-archive"
	DefaultDepth           = -1
	DefaultPageLimit       = 0
	DefaultBehaviorTimeout = 90
	DefaultWorkers         = 1
	DefaultBehavior        = "autoscroll"
)

var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ValidateSchedule accepts an empty string (no recurrence) or a five-field
// cron expression.
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return &ValidationError{Field: "schedule", Reason: err.Error()}
	}
	return nil
}

// Normalize validates the payload and fills in defaults in place. It returns
// a *ValidationError before any state has been touched, so a failed request
// never leaves partial state anywhere.
func Normalize(in *CrawlConfigIn) error {
	if err := ValidateSchedule(in.Schedule); err != nil {
		return err
	}
	return normalizeRawConfig(&in.Config)
}

func normalizeRawConfig(cfg *RawCrawlConfig) error {
	if len(cfg.Seeds) == 0 {
		return &ValidationError{Field: "seeds", Reason: "at least one seed is required"}
	}
	for i := range cfg.Seeds {
		seed := &cfg.Seeds[i]
		if seed.URL == "" {
			return &ValidationError{Field: "seeds", Reason: "seed URL must not be empty"}
		}
		if seed.ScopeType == "" {
			seed.ScopeType = ScopePrefix
		}
		if !seed.ScopeType.Valid() {
			return &ValidationError{Field: "seeds.scopeType", Reason: "unknown scope type " + string(seed.ScopeType)}
		}
	}

	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.ScopeType == "" {
		cfg.ScopeType = ScopePrefix
	}
	if !cfg.ScopeType.Valid() {
		return &ValidationError{Field: "scopeType", Reason: "unknown scope type " + string(cfg.ScopeType)}
	}

	if cfg.Depth == nil {
		cfg.Depth = intPtr(DefaultDepth)
	}
	if cfg.Limit == nil {
		cfg.Limit = intPtr(DefaultPageLimit)
	}
	if cfg.BehaviorTimeout == nil {
		cfg.BehaviorTimeout = intPtr(DefaultBehaviorTimeout)
	}
	if cfg.Workers == nil {
		cfg.Workers = intPtr(DefaultWorkers)
	}
	if *cfg.Workers < 1 {
		return &ValidationError{Field: "workers", Reason: "must be at least 1"}
	}
	if len(cfg.Behaviors) == 0 {
		cfg.Behaviors = StringList{DefaultBehavior}
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}

// Package crawlconfig defines crawl configuration records and the
// coordination logic that keeps them in sync with the crawl orchestrator.
package crawlconfig

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScopeType restricts which discovered URLs a seed may expand into.
type ScopeType string

// Scope type values accepted in crawl configurations.
const (
	ScopePage    ScopeType = "page"
	ScopePageSPA ScopeType = "page-spa"
	ScopePrefix  ScopeType = "prefix"
	ScopeHost    ScopeType = "host"
	ScopeAny     ScopeType = "any"
)

// Valid reports whether s is one of the enumerated scope types.
func (s ScopeType) Valid() bool {
	switch s {
	case ScopePage, ScopePageSPA, ScopePrefix, ScopeHost, ScopeAny:
		return true
	default:
		return false
	}
}

// StringList accepts either a single JSON string or an ordered list of strings.
type StringList []string

// UnmarshalJSON decodes a bare string as a one-element list.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = StringList(many)
	return nil
}

// SitemapSetting accepts either a boolean toggle or an explicit sitemap URL.
type SitemapSetting struct {
	Enabled bool
	URL     string
}

// UnmarshalJSON decodes a bool or a URL string.
func (s *SitemapSetting) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*s = SitemapSetting{Enabled: enabled}
		return nil
	}
	var url string
	if err := json.Unmarshal(data, &url); err != nil {
		return fmt.Errorf("expected bool or sitemap URL: %w", err)
	}
	*s = SitemapSetting{Enabled: url != "", URL: url}
	return nil
}

// MarshalJSON emits the URL when present, else the boolean toggle.
func (s SitemapSetting) MarshalJSON() ([]byte, error) {
	if s.URL != "" {
		return json.Marshal(s.URL)
	}
	return json.Marshal(s.Enabled)
}

// RawCrawlConfig is the embedded crawl behavior specification: seeds, scope
// rules, limits and output options. The coordination layer validates it but
// otherwise treats it as opaque.
type RawCrawlConfig struct {
	Seeds []Seed `json:"seeds"`

	Collection string `json:"collection,omitempty"`

	ScopeType ScopeType  `json:"scopeType,omitempty"`
	Scope     StringList `json:"scope,omitempty"`
	Exclude   StringList `json:"exclude,omitempty"`

	Depth *int `json:"depth,omitempty"`
	Limit *int `json:"limit,omitempty"`

	BehaviorTimeout *int `json:"behaviorTimeout,omitempty"`

	Workers *int `json:"workers,omitempty"`

	Headless bool `json:"headless,omitempty"`

	GenerateWACZ bool `json:"generateWACZ,omitempty"`
	CombineWARC  bool `json:"combineWARC,omitempty"`

	Logging   string     `json:"logging,omitempty"`
	Behaviors StringList `json:"behaviors,omitempty"`
}

// CrawlConfigIn is the payload submitted to create a crawl configuration.
type CrawlConfigIn struct {
	Schedule string `json:"schedule,omitempty"`
	RunNow   bool   `json:"runNow,omitempty"`

	CrawlTimeout int `json:"crawlTimeout,omitempty"`

	Config RawCrawlConfig `json:"config"`
}

// CrawlConfig is the stored, schedulable configuration record.
type CrawlConfig struct {
	ID string `json:"id"`

	Archive string `json:"aid"`
	User    string `json:"userid"`

	Schedule string `json:"schedule"`

	CrawlTimeout int   `json:"crawlTimeout"`
	CrawlCount   int64 `json:"crawlCount"`

	Config RawCrawlConfig `json:"config"`

	Created time.Time `json:"created"`
}

// Workers returns the effective parallelism for a run.
func (c CrawlConfig) Workers() int {
	if c.Config.Workers == nil {
		return 1
	}
	return *c.Config.Workers
}

// Archive identifies the owning archive and its storage target.
type Archive struct {
	ID      string
	Storage StorageTarget
}

// StorageTarget is where the orchestrator writes crawl output for an archive.
type StorageTarget struct {
	Name     string
	Endpoint string
	Bucket   string
}

// Filter selects records by exact-match conjunction. Zero-valued fields are
// ignored.
type Filter struct {
	ID      string
	Archive string
}

// Matches reports whether cfg satisfies every set field of the filter.
func (f Filter) Matches(cfg CrawlConfig) bool {
	if f.ID != "" && cfg.ID != f.ID {
		return false
	}
	if f.Archive != "" && cfg.Archive != f.Archive {
		return false
	}
	return true
}

// CreateResult is returned by Add: the new record id plus, when runNow was
// requested, the id of the immediately started crawl.
type CreateResult struct {
	ID      string `json:"added"`
	CrawlID string `json:"started,omitempty"`
}

// DeleteAllResult reports a bulk delete: how many records were removed and
// which ids remain because orchestrator deregistration failed for them.
type DeleteAllResult struct {
	Deleted   int64    `json:"deleted"`
	Remaining []string `json:"remaining,omitempty"`
}

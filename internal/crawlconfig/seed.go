package crawlconfig

import (
	"encoding/json"
	"fmt"
)

// Seed is a crawl starting point. On the wire it is either a bare URL string
// or a structured object; both decode into this type, with the bare form
// getting the default scope during normalization.
type Seed struct {
	URL       string    `json:"url"`
	ScopeType ScopeType `json:"scopeType,omitempty"`

	Include StringList `json:"include,omitempty"`
	Exclude StringList `json:"exclude,omitempty"`

	Sitemap   *SitemapSetting `json:"sitemap,omitempty"`
	AllowHash *bool           `json:"allowHash,omitempty"`
	Depth     *int            `json:"depth,omitempty"`
}

// seedAlias avoids recursing into Seed.UnmarshalJSON for the object form.
type seedAlias Seed

// UnmarshalJSON decodes the two wire forms explicitly rather than relying on
// runtime type coercion.
func (s *Seed) UnmarshalJSON(data []byte) error {
	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		*s = Seed{URL: url}
		return nil
	}
	var full seedAlias
	if err := json.Unmarshal(data, &full); err != nil {
		return fmt.Errorf("seed must be a URL string or object: %w", err)
	}
	*s = Seed(full)
	return nil
}

package crawlconfig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validInput() CrawlConfigIn {
	return CrawlConfigIn{
		Config: RawCrawlConfig{
			Seeds: []Seed{{URL: "https://example.com/"}},
		},
	}
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	t.Parallel()

	in := validInput()
	require.NoError(t, Normalize(&in))

	cfg := in.Config
	require.Equal(t, DefaultCollection, cfg.Collection)
	require.Equal(t, ScopePrefix, cfg.ScopeType)
	require.Equal(t, ScopePrefix, cfg.Seeds[0].ScopeType)
	require.Equal(t, DefaultDepth, *cfg.Depth)
	require.Equal(t, DefaultPageLimit, *cfg.Limit)
	require.Equal(t, DefaultBehaviorTimeout, *cfg.BehaviorTimeout)
	require.Equal(t, DefaultWorkers, *cfg.Workers)
	require.False(t, cfg.Headless)
	require.False(t, cfg.GenerateWACZ)
	require.False(t, cfg.CombineWARC)
	require.Empty(t, cfg.Logging)
	require.Equal(t, StringList{DefaultBehavior}, cfg.Behaviors)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	workers := 4
	depth := 2
	in := CrawlConfigIn{
		Schedule: "30 2 * * 1",
		Config: RawCrawlConfig{
			Seeds:     []Seed{{URL: "https://example.com/", ScopeType: ScopeHost, Depth: &depth}},
			ScopeType: ScopeAny,
			Workers:   &workers,
			Behaviors: StringList{"autoplay"},
		},
	}
	require.NoError(t, Normalize(&in))
	require.Equal(t, ScopeAny, in.Config.ScopeType)
	require.Equal(t, ScopeHost, in.Config.Seeds[0].ScopeType)
	require.Equal(t, 4, *in.Config.Workers)
	require.Equal(t, StringList{"autoplay"}, in.Config.Behaviors)
}

func TestNormalizeRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*CrawlConfigIn)
		field  string
	}{
		{
			name:   "no seeds",
			mutate: func(in *CrawlConfigIn) { in.Config.Seeds = nil },
			field:  "seeds",
		},
		{
			name:   "empty seed url",
			mutate: func(in *CrawlConfigIn) { in.Config.Seeds = []Seed{{}} },
			field:  "seeds",
		},
		{
			name:   "unknown seed scope",
			mutate: func(in *CrawlConfigIn) { in.Config.Seeds[0].ScopeType = "domain" },
			field:  "seeds.scopeType",
		},
		{
			name:   "unknown top-level scope",
			mutate: func(in *CrawlConfigIn) { in.Config.ScopeType = "site" },
			field:  "scopeType",
		},
		{
			name: "workers below one",
			mutate: func(in *CrawlConfigIn) {
				zero := 0
				in.Config.Workers = &zero
			},
			field: "workers",
		},
		{
			name:   "bad schedule",
			mutate: func(in *CrawlConfigIn) { in.Schedule = "not cron" },
			field:  "schedule",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in := validInput()
			tc.mutate(&in)
			err := Normalize(&in)
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			require.Equal(t, tc.field, valErr.Field)
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSchedule(""))
	require.NoError(t, ValidateSchedule("0 0 * * *"))
	require.Error(t, ValidateSchedule("@every 5m"))
	require.Error(t, ValidateSchedule("0 0 * *"))
}

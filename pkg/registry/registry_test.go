package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/pkg/config"
	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/observability"
	"github.com/pagelens/pagelens/pkg/store"
)

func testConfig() config.RegistryConfig {
	return config.RegistryConfig{
		ArchiveAfter:        30 * 24 * time.Hour,
		ConfidenceFloor:     0.1,
		ConfidenceEpsilon:   0.05,
		RecentFailureWindow: 10,
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(testConfig(), store.NewMemoryStore(), observability.NewNoopLogger(), observability.NewNoopMetrics())
	require.NoError(t, r.Initialize())
	return r
}

func TestRegistry_BootstrapSeeding(t *testing.T) {
	r := newTestRegistry(t)

	assert.Equal(t, 8, r.PatternCount())

	reddit, ok := r.GetPattern("bootstrap:reddit")
	require.True(t, ok)
	assert.True(t, reddit.IsBootstrap())
	assert.Equal(t, 1.0, reddit.Metrics.Confidence)

	// Domain and type indexes must both know the pattern.
	assert.Contains(t, patternIDs(r.GetPatternsForDomain("reddit.com")), "bootstrap:reddit")
	assert.Contains(t, patternIDs(r.GetPatternsByType(models.TemplateJSONSuffix)), "bootstrap:reddit")
}

func TestRegistry_RedditJSONSuffix(t *testing.T) {
	r := newTestRegistry(t)

	matches := r.FindMatchingPatterns("https://reddit.com/r/rust/comments/abc/title")
	require.NotEmpty(t, matches)

	top := matches[0]
	assert.Equal(t, "bootstrap:reddit", top.Pattern.ID)
	assert.Equal(t, "https://reddit.com/r/rust/comments/abc/title.json", top.APIEndpoint)
	assert.Equal(t, 1.0, top.Confidence)
}

func TestRegistry_NPMRegistryLookup(t *testing.T) {
	r := newTestRegistry(t)

	matches := r.FindMatchingPatterns("https://npmjs.com/package/lodash")
	require.NotEmpty(t, matches)

	top := matches[0]
	assert.Equal(t, "bootstrap:npm", top.Pattern.ID)
	assert.Equal(t, map[string]string{"package": "lodash"}, top.ExtractedVariables)
	assert.Equal(t, "https://registry.npmjs.org/lodash", top.APIEndpoint)
}

func TestRegistry_HackerNewsFirebase(t *testing.T) {
	r := newTestRegistry(t)

	matches := r.FindMatchingPatterns("https://news.ycombinator.com/item?id=42")
	require.NotEmpty(t, matches)

	top := matches[0]
	assert.Equal(t, "bootstrap:hackernews", top.Pattern.ID)
	assert.Equal(t, map[string]string{"id": "42"}, top.ExtractedVariables)
	assert.Equal(t, "https://hacker-news.firebaseio.com/v0/item/42.json", top.APIEndpoint)
}

func TestRegistry_FindMatchingPatterns(t *testing.T) {
	t.Run("Invalid URL falls back to full scan", func(t *testing.T) {
		r := newTestRegistry(t)

		require.NoError(t, r.LearnPattern(&models.LearnedPattern{
			ID:               "learned:anything",
			TemplateType:     models.TemplateQueryAPI,
			URLPatterns:      []string{`.*grab-me.*`},
			EndpointTemplate: "{url}",
			Method:           "GET",
			ResponseFormat:   models.FormatJSON,
		}))

		matches := r.FindMatchingPatterns("::not a url::grab-me")
		require.Len(t, matches, 1)
		assert.Equal(t, "learned:anything", matches[0].Pattern.ID)
	})

	t.Run("Deterministic ordering by confidence then insertion", func(t *testing.T) {
		r := newTestRegistry(t)

		add := func(id string, success, failure int) {
			p := &models.LearnedPattern{
				ID:               id,
				TemplateType:     models.TemplateQueryAPI,
				URLPatterns:      []string{`https?://ordered\.test/.*`},
				EndpointTemplate: "{url}",
				Method:           "GET",
				ResponseFormat:   models.FormatJSON,
				Metrics: models.PatternMetrics{
					SuccessCount: success,
					FailureCount: failure,
					Domains:      []string{"ordered.test"},
				},
			}
			p.Metrics.Confidence = float64(success) / float64(success+failure)
			require.NoError(t, r.LearnPattern(p))
		}
		add("learned:low", 1, 3)
		add("learned:high", 9, 1)
		add("learned:alsohigh", 18, 2)

		first := r.FindMatchingPatterns("https://ordered.test/x")
		second := r.FindMatchingPatterns("https://ordered.test/x")
		require.Len(t, first, 3)

		assert.Equal(t, "learned:high", first[0].Pattern.ID)
		assert.Equal(t, "learned:alsohigh", first[1].Pattern.ID)
		assert.Equal(t, "learned:low", first[2].Pattern.ID)
		assert.Equal(t, patternIDsFromMatches(first), patternIDsFromMatches(second))
	})

	t.Run("Tier two scans cross-domain", func(t *testing.T) {
		r := newTestRegistry(t)

		require.NoError(t, r.LearnPattern(&models.LearnedPattern{
			ID:               "learned:crossdomain",
			TemplateType:     models.TemplateQueryAPI,
			URLPatterns:      []string{`https?://[^/]*\.mirror\.example/items/\d+`},
			EndpointTemplate: "{url}",
			Method:           "GET",
			ResponseFormat:   models.FormatJSON,
			Metrics:          models.PatternMetrics{Domains: []string{"a.mirror.example"}},
		}))

		// b.mirror.example is not in any domain index; tier two finds it.
		matches := r.FindMatchingPatterns("https://b.mirror.example/items/7")
		require.Len(t, matches, 1)
		assert.Equal(t, "learned:crossdomain", matches[0].Pattern.ID)
	})
}

func TestRegistry_UpdatePatternMetrics(t *testing.T) {
	r := newTestRegistry(t)

	var events []models.Event
	unsubscribe := r.Subscribe(func(e models.Event) { events = append(events, e) })
	defer unsubscribe()

	require.NoError(t, r.UpdatePatternMetrics("bootstrap:npm", true, "npmjs.com", 120, ""))
	require.NoError(t, r.UpdatePatternMetrics("bootstrap:npm", false, "npmjs.com", 0, "HTTP 500"))

	p, _ := r.GetPattern("bootstrap:npm")
	assert.Equal(t, 11, p.Metrics.SuccessCount)
	assert.Equal(t, 1, p.Metrics.FailureCount)
	assert.InDelta(t, 11.0/12.0, p.Metrics.Confidence, 1e-9)
	assert.Equal(t, "HTTP 500", p.Metrics.LastFailureReason)

	var types []models.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, models.EventPatternApplied)
	// 1.0 -> 0.917 is a move larger than epsilon.
	assert.Contains(t, types, models.EventConfidenceDecayed)

	assert.ErrorIs(t, r.UpdatePatternMetrics("learned:missing", true, "", 0, ""), ErrPatternNotFound)
}

func TestRegistry_ListenerPanicIsolation(t *testing.T) {
	r := newTestRegistry(t)

	received := 0
	r.Subscribe(func(models.Event) { panic("listener bug") })
	r.Subscribe(func(models.Event) { received++ })

	require.NoError(t, r.UpdatePatternMetrics("bootstrap:npm", true, "npmjs.com", 10, ""))
	assert.Greater(t, received, 0)
}

func TestRegistry_PersistenceRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()

	r := NewRegistry(testConfig(), st, observability.NewNoopLogger(), observability.NewNoopMetrics())
	require.NoError(t, r.Initialize())
	require.NoError(t, r.LearnPattern(&models.LearnedPattern{
		ID:               "learned:roundtrip",
		TemplateType:     models.TemplateQueryAPI,
		URLPatterns:      []string{`https?://roundtrip\.test/.*`},
		EndpointTemplate: "{url}",
		Method:           "GET",
		ResponseFormat:   models.FormatJSON,
		Metrics:          models.PatternMetrics{Domains: []string{"roundtrip.test"}},
	}))
	require.NoError(t, r.Flush())

	// The on-disk contract is a bare JSON array of patterns.
	blob, err := st.Load()
	require.NoError(t, err)
	var asArray []models.LearnedPattern
	require.NoError(t, json.Unmarshal(blob, &asArray))
	assert.Len(t, asArray, 9)

	reloaded := NewRegistry(testConfig(), st, observability.NewNoopLogger(), observability.NewNoopMetrics())
	require.NoError(t, reloaded.Initialize())
	assert.Equal(t, 9, reloaded.PatternCount())
	_, ok := reloaded.GetPattern("learned:roundtrip")
	assert.True(t, ok)
}

func TestRegistry_Cleanup(t *testing.T) {
	r := newTestRegistry(t)

	stale := &models.LearnedPattern{
		ID:               "learned:stale",
		TemplateType:     models.TemplateQueryAPI,
		URLPatterns:      []string{`https?://stale\.test/.*`},
		EndpointTemplate: "{url}",
		Method:           "GET",
		ResponseFormat:   models.FormatJSON,
		CreatedAt:        time.Now().Add(-90 * 24 * time.Hour),
	}
	require.NoError(t, r.LearnPattern(stale))

	hopeless := &models.LearnedPattern{
		ID:               "learned:hopeless",
		TemplateType:     models.TemplateQueryAPI,
		URLPatterns:      []string{`https?://hopeless\.test/.*`},
		EndpointTemplate: "{url}",
		Method:           "GET",
		ResponseFormat:   models.FormatJSON,
	}
	require.NoError(t, r.LearnPattern(hopeless))
	for i := 0; i < 20; i++ {
		require.NoError(t, r.UpdatePatternMetrics("learned:hopeless", false, "hopeless.test", 0, "nope"))
	}
	require.NoError(t, r.UpdatePatternMetrics("learned:hopeless", true, "hopeless.test", 5, ""))

	var archivedEvents []string
	r.Subscribe(func(e models.Event) {
		if e.Type == models.EventPatternArchived {
			archivedEvents = append(archivedEvents, e.PatternID)
		}
	})

	archived := r.Cleanup()
	assert.Equal(t, 2, archived)
	assert.ElementsMatch(t, []string{"learned:stale", "learned:hopeless"}, archivedEvents)

	_, ok := r.GetPattern("learned:stale")
	assert.False(t, ok)
	assert.Empty(t, r.GetPatternsForDomain("hopeless.test"))
}

func TestRegistry_IndexesStayCoherent(t *testing.T) {
	r := newTestRegistry(t)

	for _, p := range r.ExportPatterns() {
		for _, domain := range p.Metrics.Domains {
			assert.Contains(t, patternIDs(r.GetPatternsForDomain(domain)), p.ID,
				"domain index missing %s for %s", p.ID, domain)
		}
		assert.Contains(t, patternIDs(r.GetPatternsByType(p.TemplateType)), p.ID)
	}
}

func patternIDs(patterns []*models.LearnedPattern) []string {
	ids := make([]string, 0, len(patterns))
	for _, p := range patterns {
		ids = append(ids, p.ID)
	}
	return ids
}

func patternIDsFromMatches(matches []MatchResult) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Pattern.ID)
	}
	return ids
}

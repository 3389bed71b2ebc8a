package transfer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/pkg/config"
	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/observability"
	"github.com/pagelens/pagelens/pkg/registry"
	"github.com/pagelens/pagelens/pkg/store"
)

func newTestService(t *testing.T) (*Service, *registry.Registry) {
	t.Helper()
	reg := registry.NewRegistry(config.RegistryConfig{
		ArchiveAfter:        30 * 24 * time.Hour,
		ConfidenceFloor:     0.1,
		ConfidenceEpsilon:   0.05,
		RecentFailureWindow: 10,
	}, store.NewMemoryStore(), observability.NewNoopLogger(), observability.NewNoopMetrics())
	require.NoError(t, reg.Initialize())

	svc := NewService(config.TransferConfig{
		MinSimilarity:   0.3,
		ConfidenceDecay: 0.5,
		MaxCandidates:   3,
	}, reg, observability.NewNoopLogger(), observability.NewNoopMetrics())
	return svc, reg
}

func TestComputeSimilarity_QAForums(t *testing.T) {
	_, reg := newTestService(t)

	source, ok := reg.GetPattern("bootstrap:stackoverflow")
	require.True(t, ok)

	score := ComputeSimilarity(source, "stackoverflow.com", "serverfault.com")
	assert.GreaterOrEqual(t, score.URLStructure, 0.3)
	assert.Equal(t, 0.8, score.ResponseFormat)
	assert.Equal(t, 1.0, score.TemplateType)
	assert.Equal(t, 1.0, score.DomainGroup)
	assert.GreaterOrEqual(t, score.Overall, 0.795)
}

func TestComputeSimilarity_UngroupedTarget(t *testing.T) {
	_, reg := newTestService(t)

	source, ok := reg.GetPattern("bootstrap:github")
	require.True(t, ok)

	score := ComputeSimilarity(source, "github.com", "intranet.example")
	assert.Equal(t, 0.3, score.URLStructure)
	assert.Equal(t, 0.0, score.TemplateType)
	assert.Equal(t, 0.2, score.DomainGroup)
	assert.Less(t, score.Overall, 0.3)
}

func TestGroupForDomain(t *testing.T) {
	group, ok := GroupForDomain("serverfault.com")
	require.True(t, ok)
	assert.Equal(t, "qa_forums", group.Name)

	// Subdomains and www resolve to the parent group.
	group, ok = GroupForDomain("en.wikipedia.org")
	require.True(t, ok)
	assert.Equal(t, "knowledge_bases", group.Name)
	group, ok = GroupForDomain("www.npmjs.com")
	require.True(t, ok)
	assert.Equal(t, "package_registries", group.Name)

	_, ok = GroupForDomain("intranet.example")
	assert.False(t, ok)
}

func TestTransferPattern(t *testing.T) {
	t.Run("StackOverflow to ServerFault", func(t *testing.T) {
		svc, reg := newTestService(t)

		result, err := svc.TransferPattern("bootstrap:stackoverflow", "serverfault.com")
		require.NoError(t, err)
		require.True(t, result.Success)

		transferred := result.Pattern
		assert.True(t, strings.HasPrefix(transferred.ID, models.PrefixTransfer))
		assert.Equal(t, 0.5, transferred.Metrics.Confidence)
		assert.Equal(t, 0, transferred.Metrics.SuccessCount)
		assert.Equal(t, []string{"serverfault.com"}, transferred.Metrics.Domains)

		// The clone answers for the target domain with the source's structure.
		matches := reg.FindMatchingPatterns("https://serverfault.com/questions/999")
		require.NotEmpty(t, matches)
		assert.Equal(t, transferred.ID, matches[0].Pattern.ID)
		assert.Equal(t,
			"https://api.stackexchange.com/2.3/questions/999?site=stackoverflow&filter=withbody",
			matches[0].APIEndpoint)
	})

	t.Run("Rejects already indexed target", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.TransferPattern("bootstrap:stackoverflow", "stackoverflow.com")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "target domain already has patterns", result.Reason)
	})

	t.Run("Rejects low similarity", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.TransferPattern("bootstrap:reddit", "serverfault.com")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "similarity below threshold", result.Reason)
		assert.Less(t, result.Similarity.Overall, 0.3)
	})

	t.Run("Unknown source pattern errors", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.TransferPattern("learned:missing", "serverfault.com")
		assert.ErrorIs(t, err, registry.ErrPatternNotFound)
	})

	t.Run("Clone shares no mutable substructure with source", func(t *testing.T) {
		svc, reg := newTestService(t)

		result, err := svc.TransferPattern("bootstrap:github", "gitlab.com")
		require.NoError(t, err)
		require.True(t, result.Success)

		result.Pattern.ContentMapping.Metadata["stars"] = "mutated"
		result.Pattern.Extractors[0].Name = "mutated"

		source, _ := reg.GetPattern("bootstrap:github")
		assert.Equal(t, "stargazers_count", source.ContentMapping.Metadata["stars"])
		assert.Equal(t, "owner", source.Extractors[0].Name)
	})
}

func TestRecordOutcome(t *testing.T) {
	t.Run("Failure decays multiplicatively", func(t *testing.T) {
		svc, reg := newTestService(t)

		result, err := svc.TransferPattern("bootstrap:stackoverflow", "serverfault.com")
		require.NoError(t, err)
		require.True(t, result.Success)

		require.NoError(t, svc.RecordOutcome(result.Pattern.ID, false, "serverfault.com", 0, "HTTP 404"))
		p, _ := reg.GetPattern(result.Pattern.ID)
		assert.Equal(t, 1, p.Metrics.FailureCount)
		assert.Equal(t, 0.0, p.Metrics.Confidence)
	})

	t.Run("Success boost stays capped at one", func(t *testing.T) {
		svc, reg := newTestService(t)

		result, err := svc.TransferPattern("bootstrap:stackoverflow", "serverfault.com")
		require.NoError(t, err)

		require.NoError(t, svc.RecordOutcome(result.Pattern.ID, true, "serverfault.com", 40, ""))
		p, _ := reg.GetPattern(result.Pattern.ID)
		assert.Equal(t, 1, p.Metrics.SuccessCount)
		assert.Equal(t, 1.0, p.Metrics.Confidence)
	})
}

func TestAutoTransfer(t *testing.T) {
	t.Run("First accepted candidate wins", func(t *testing.T) {
		svc, _ := newTestService(t)

		var probed []string
		result, err := svc.AutoTransfer(context.Background(), "serverfault.com",
			func(_ context.Context, p *models.LearnedPattern) bool {
				probed = append(probed, p.ID)
				return true
			})
		require.NoError(t, err)
		require.True(t, result.Success)

		// The QA-forum source outranks every other candidate.
		assert.Equal(t, models.TemplateQueryAPI, result.Pattern.TemplateType)
		assert.Len(t, probed, 1)
	})

	t.Run("Tries at most three candidates", func(t *testing.T) {
		svc, _ := newTestService(t)

		probes := 0
		result, err := svc.AutoTransfer(context.Background(), "serverfault.com",
			func(context.Context, *models.LearnedPattern) bool {
				probes++
				return false
			})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, 3, probes)
	})

	t.Run("No viable candidates", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.AutoTransfer(context.Background(), "intranet.example", nil)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "no candidates above similarity threshold", result.Reason)
	})
}

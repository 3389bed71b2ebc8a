package failure

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/pkg/config"
	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/observability"
	"github.com/pagelens/pagelens/pkg/registry"
	"github.com/pagelens/pagelens/pkg/store"
)

func newTestLearner(t *testing.T) (*Learner, *registry.Registry) {
	t.Helper()
	reg := registry.NewRegistry(config.RegistryConfig{
		ArchiveAfter:        30 * 24 * time.Hour,
		ConfidenceFloor:     0.1,
		ConfidenceEpsilon:   0.05,
		RecentFailureWindow: 10,
	}, store.NewMemoryStore(), observability.NewNoopLogger(), observability.NewNoopMetrics())
	require.NoError(t, reg.Initialize())

	learner := NewLearner(config.FailureConfig{
		AntiPatternThreshold: 3,
		AntiPatternTTL:       24 * time.Hour,
		MaxRetries:           3,
		MaxBackoff:           60 * time.Second,
	}, 10, reg, observability.NewNoopLogger(), observability.NewNoopMetrics())
	return learner, reg
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		message      string
		responseTime time.Duration
		category     models.FailureCategory
		antiPattern  bool
		strategy     RetryStrategy
	}{
		{"Unauthorized", 401, "unauthorized", 0, models.FailureAuthRequired, true, RetryAfterAuth},
		{"Forbidden", 403, "", 0, models.FailureAuthRequired, true, RetryAfterAuth},
		{"Rate limited", 429, "too many requests", 0, models.FailureRateLimited, false, RetryWaitFixed},
		{"Not found", 404, "", 0, models.FailureNotFound, true, RetryNone},
		{"Gone", 410, "", 0, models.FailureNotFound, true, RetryNone},
		{"Server error", 503, "", 0, models.FailureServerError, false, RetryBackoff},
		{"Validation", 422, "missing field", 0, models.FailureValidation, true, RetryNone},
		{"Timeout message", 0, "context deadline exceeded", 0, models.FailureTimeout, false, RetryBackoff},
		{"Slow response", 0, "", 31 * time.Second, models.FailureTimeout, false, RetryBackoff},
		{"Network", 0, "dial tcp: connection refused", 0, models.FailureNetwork, false, RetryBackoff},
		{"Unknown", 0, "something odd", 0, models.FailureUnknown, false, RetryImmediate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.status, tt.message, tt.responseTime)
			assert.Equal(t, tt.category, c.Category)
			assert.Equal(t, tt.antiPattern, c.ShouldCreateAntiPattern)
			assert.Equal(t, tt.strategy, c.RetryStrategy)
		})
	}
}

func TestRepeatedAuthFailuresSynthesizeAntiPattern(t *testing.T) {
	learner, reg := newTestLearner(t)

	var created int
	reg.Subscribe(func(e models.Event) {
		if e.Type == models.EventAntiPatternCreated {
			created++
		}
	})

	for i := 0; i < 3; i++ {
		c, err := learner.RecordPatternFailure("bootstrap:github", "x.com", "https://x.com/y", 401, "unauthorized")
		require.NoError(t, err)
		assert.Equal(t, models.FailureAuthRequired, c.Category)
	}

	anti, ok := reg.AntiPatternFor("bootstrap:github", models.FailureAuthRequired)
	require.True(t, ok)
	assert.Equal(t, "auth_required", string(anti.FailureCategory))
	assert.Equal(t, 3, anti.FailureCount)
	assert.Equal(t, 1, created)

	matches := reg.CheckAntiPatterns("https://x.com/y")
	require.Len(t, matches, 1)
	assert.Equal(t, anti.ID, matches[0].ID)

	// The pattern's own metrics carry the window and category totals.
	p, _ := reg.GetPattern("bootstrap:github")
	assert.Equal(t, 3, p.Metrics.FailuresByCategory[models.FailureAuthRequired])
	assert.Len(t, p.Metrics.RecentFailures, 3)
}

func TestBelowThresholdCreatesNothing(t *testing.T) {
	learner, reg := newTestLearner(t)

	for i := 0; i < 2; i++ {
		_, err := learner.RecordPatternFailure("bootstrap:github", "x.com", "https://x.com/y", 401, "unauthorized")
		require.NoError(t, err)
	}
	_, ok := reg.AntiPatternFor("bootstrap:github", models.FailureAuthRequired)
	assert.False(t, ok)
}

func TestBackoffInterval(t *testing.T) {
	assert.Equal(t, time.Second, BackoffInterval(0))
	assert.Equal(t, 2*time.Second, BackoffInterval(1))
	assert.Equal(t, 32*time.Second, BackoffInterval(5))
	// Capped at 60 seconds from attempt 6 on.
	assert.Equal(t, 60*time.Second, BackoffInterval(6))
	assert.Equal(t, 60*time.Second, BackoffInterval(20))
}

func TestRetryAfterInterval(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	t.Run("Seconds and HTTP-date parse to the same instant", func(t *testing.T) {
		bySeconds := http.Header{"Retry-After": []string{"30"}}
		byDate := http.Header{"Retry-After": []string{now.Add(30 * time.Second).Format(http.TimeFormat)}}

		a, ok := RetryAfterInterval(bySeconds, now)
		require.True(t, ok)
		b, ok := RetryAfterInterval(byDate, now)
		require.True(t, ok)
		assert.Equal(t, a, b)
		assert.Equal(t, 30*time.Second, a)
	})

	t.Run("X-RateLimit-Reset is a Unix timestamp", func(t *testing.T) {
		headers := http.Header{"X-Ratelimit-Reset": []string{"1787918445"}}
		wait, ok := RetryAfterInterval(headers, time.Unix(1787918400, 0))
		require.True(t, ok)
		assert.Equal(t, 45*time.Second, wait)
	})

	t.Run("Waits cap at sixty seconds", func(t *testing.T) {
		headers := http.Header{"Retry-After": []string{"3600"}}
		wait, ok := RetryAfterInterval(headers, now)
		require.True(t, ok)
		assert.Equal(t, 60*time.Second, wait)
	})

	t.Run("Past instants clamp to zero", func(t *testing.T) {
		headers := http.Header{"Retry-After": []string{now.Add(-time.Minute).Format(http.TimeFormat)}}
		wait, ok := RetryAfterInterval(headers, now)
		require.True(t, ok)
		assert.Equal(t, time.Duration(0), wait)
	})

	t.Run("No headers", func(t *testing.T) {
		_, ok := RetryAfterInterval(http.Header{}, now)
		assert.False(t, ok)
	})
}

func TestRetry(t *testing.T) {
	t.Run("Immediate retries up to the attempt cap", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), RetryImmediate, 3, func(context.Context) error {
			calls++
			return errors.New("still broken")
		})
		assert.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("None runs exactly once", func(t *testing.T) {
		calls := 0
		_ = Retry(context.Background(), RetryNone, 3, func(context.Context) error {
			calls++
			return errors.New("broken")
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("After-auth refuses to retry blindly", func(t *testing.T) {
		err := Retry(context.Background(), RetryAfterAuth, 3, func(context.Context) error {
			t.Fatal("operation must not run")
			return nil
		})
		assert.Error(t, err)
	})

	t.Run("Success stops retrying", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), RetryWaitFixed, 3, func(context.Context) error {
			calls++
			if calls < 2 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestAnalyzeHealth(t *testing.T) {
	t.Run("Auth-dominated window is unhealthy", func(t *testing.T) {
		p := &models.LearnedPattern{ID: "learned:x"}
		for i := 0; i < 4; i++ {
			p.Metrics.PushRecentFailure(models.RecentFailure{Category: models.FailureAuthRequired}, 10)
		}
		p.Metrics.PushRecentFailure(models.RecentFailure{Category: models.FailureTimeout}, 10)

		h := AnalyzeHealth(p)
		assert.False(t, h.IsHealthy)
		assert.Equal(t, models.FailureAuthRequired, h.DominantFailureType)
		assert.Contains(t, h.SuggestedAction, "credentials")
	})

	t.Run("Transient failures alone stay healthy", func(t *testing.T) {
		p := &models.LearnedPattern{ID: "learned:x"}
		p.Metrics.SuccessCount = 8
		p.Metrics.FailureCount = 2
		p.Metrics.Confidence = 0.8
		for i := 0; i < 2; i++ {
			p.Metrics.PushRecentFailure(models.RecentFailure{Category: models.FailureServerError}, 10)
		}
		assert.True(t, AnalyzeHealth(p).IsHealthy)
	})

	t.Run("Low confidence with enough samples is unhealthy", func(t *testing.T) {
		p := &models.LearnedPattern{ID: "learned:x"}
		p.Metrics.SuccessCount = 1
		p.Metrics.FailureCount = 9
		p.Metrics.Confidence = 0.1
		p.Metrics.PushRecentFailure(models.RecentFailure{Category: models.FailureServerError}, 10)

		h := AnalyzeHealth(p)
		assert.False(t, h.IsHealthy)
		assert.Contains(t, h.Reason, "confidence")
	})
}

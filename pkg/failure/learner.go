package failure

import (
	"time"

	"github.com/pagelens/pagelens/pkg/config"
	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/observability"
	"github.com/pagelens/pagelens/pkg/registry"
)

// Learner feeds failures into pattern metrics and synthesizes anti-patterns
// once a failure category repeats past the configured threshold.
type Learner struct {
	cfg      config.FailureConfig
	window   int
	registry *registry.Registry
	logger   observability.Logger
	metrics  observability.MetricsClient
}

// NewLearner creates a failure learner bound to the registry. window is the
// recent-failure window capacity shared with the registry configuration.
func NewLearner(cfg config.FailureConfig, window int, reg *registry.Registry, logger observability.Logger, metrics observability.MetricsClient) *Learner {
	return &Learner{
		cfg:      cfg,
		window:   window,
		registry: reg,
		logger:   logger,
		metrics:  metrics,
	}
}

// RecordPatternFailure classifies the failure, applies it to the pattern's
// metrics and recent-failure window, and synthesizes an anti-pattern when
// the category count in the window reaches the threshold. The returned
// classification tells the caller whether and how to retry.
func (l *Learner) RecordPatternFailure(patternID, domain, url string, statusCode int, message string) (Classification, error) {
	classification := Classify(statusCode, message, 0)

	if err := l.registry.UpdatePatternMetrics(patternID, false, domain, 0, message); err != nil {
		return classification, err
	}

	var categoryCount int
	err := l.registry.MutatePattern(patternID, func(pattern *models.LearnedPattern) {
		pattern.Metrics.PushRecentFailure(models.RecentFailure{
			Category:   classification.Category,
			StatusCode: statusCode,
			Message:    message,
			URL:        url,
			Domain:     domain,
			Timestamp:  time.Now(),
		}, l.window)
		categoryCount = pattern.Metrics.RecentCategoryCount(classification.Category)
	})
	if err != nil {
		return classification, err
	}

	l.metrics.IncrementCounter("pattern_failures", map[string]string{
		"category": string(classification.Category),
	})

	if classification.ShouldCreateAntiPattern && categoryCount >= l.cfg.AntiPatternThreshold {
		l.registry.UpsertAntiPattern(patternID, classification.Category, domain,
			registry.DeriveURLPattern(url), categoryCount, l.cfg.AntiPatternTTL)
		l.logger.Info("Synthesized anti-pattern from repeated failures", map[string]interface{}{
			"patternId": patternID,
			"category":  string(classification.Category),
			"count":     categoryCount,
		})
	}
	return classification, nil
}

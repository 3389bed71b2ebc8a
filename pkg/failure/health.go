package failure

import (
	"fmt"

	"github.com/pagelens/pagelens/pkg/models"
)

// Health is the analyzer's verdict on one pattern
type Health struct {
	IsHealthy           bool                   `json:"isHealthy"`
	DominantFailureType models.FailureCategory `json:"dominantFailureType,omitempty"`
	SuggestedAction     string                 `json:"suggestedAction,omitempty"`
	Reason              string                 `json:"reason,omitempty"`
}

// Thresholds for the health analyzer.
const (
	// A non-transient category owning this share of the recent window
	// marks the pattern unhealthy regardless of overall confidence.
	dominanceShare = 0.5
	// Below this confidence, with enough samples, the pattern is failing
	// more than it works.
	confidenceFloor = 0.3
	minSamples      = 5
)

var suggestedActions = map[models.FailureCategory]string{
	models.FailureAuthRequired: "configure credentials for this domain",
	models.FailureValidation:   "re-learn the pattern; the API shape likely changed",
	models.FailureRateLimited:  "reduce request rate or add backoff",
	models.FailureNotFound:     "verify the endpoint template still exists",
	models.FailureServerError:  "wait; the upstream service is degraded",
	models.FailureTimeout:      "increase the request timeout",
	models.FailureNetwork:      "check connectivity to the domain",
}

// nonTransient categories indicate the pattern itself is wrong, not the
// weather around it.
var nonTransient = map[models.FailureCategory]bool{
	models.FailureAuthRequired: true,
	models.FailureValidation:   true,
}

// AnalyzeHealth inspects a pattern's recent-failure composition and overall
// counters and renders a verdict with a suggested action.
func AnalyzeHealth(pattern *models.LearnedPattern) Health {
	m := &pattern.Metrics

	dominant, dominantCount := dominantCategory(m)
	windowSize := len(m.RecentFailures)

	if windowSize > 0 && nonTransient[dominant] &&
		float64(dominantCount) >= dominanceShare*float64(windowSize) {
		return Health{
			IsHealthy:           false,
			DominantFailureType: dominant,
			SuggestedAction:     suggestedActions[dominant],
			Reason: fmt.Sprintf("%d of the last %d failures are %s",
				dominantCount, windowSize, dominant),
		}
	}

	total := m.SuccessCount + m.FailureCount
	if total >= minSamples && m.Confidence < confidenceFloor {
		return Health{
			IsHealthy:           false,
			DominantFailureType: dominant,
			SuggestedAction:     suggestedActions[dominant],
			Reason: fmt.Sprintf("confidence %.2f after %d applications",
				m.Confidence, total),
		}
	}

	return Health{IsHealthy: true}
}

func dominantCategory(m *models.PatternMetrics) (models.FailureCategory, int) {
	var dominant models.FailureCategory
	count := 0
	for _, f := range m.RecentFailures {
		if c := m.RecentCategoryCount(f.Category); c > count {
			dominant, count = f.Category, c
		}
	}
	return dominant, count
}

package models

import "time"

// FailureCategory classifies why a pattern application failed. Closed set.
type FailureCategory string

// Failure categories
const (
	FailureAuthRequired FailureCategory = "auth_required"
	FailureRateLimited  FailureCategory = "rate_limited"
	FailureNotFound     FailureCategory = "not_found"
	FailureServerError  FailureCategory = "server_error"
	FailureTimeout      FailureCategory = "timeout"
	FailureNetwork      FailureCategory = "network"
	FailureValidation   FailureCategory = "validation"
	FailureUnknown      FailureCategory = "unknown"
)

// RecentFailure is one entry in a pattern's bounded recent-failure window
type RecentFailure struct {
	Category   FailureCategory `json:"category"`
	StatusCode int             `json:"statusCode,omitempty"`
	Message    string          `json:"message,omitempty"`
	URL        string          `json:"url,omitempty"`
	Domain     string          `json:"domain,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// PatternMetrics tracks the outcome history of a pattern. Confidence is
// always successCount / (successCount + failureCount), recomputed whenever
// either counter moves; AvgResponseTime uses the rolling-average recurrence
// so no sample history is retained.
type PatternMetrics struct {
	SuccessCount      int       `json:"successCount"`
	FailureCount      int       `json:"failureCount"`
	Confidence        float64   `json:"confidence"`
	Domains           []string  `json:"domains"`
	AvgResponseTime   float64   `json:"avgResponseTime"`
	LastSuccess       time.Time `json:"lastSuccess,omitempty"`
	LastFailure       time.Time `json:"lastFailure,omitempty"`
	LastFailureReason string    `json:"lastFailureReason,omitempty"`

	// Extended metrics maintained by the failure learner.
	FailuresByCategory map[FailureCategory]int `json:"failuresByCategory,omitempty"`
	RecentFailures     []RecentFailure         `json:"recentFailures,omitempty"`
	ActiveAntiPatterns []string                `json:"activeAntiPatterns,omitempty"`
}

// RecordSuccess applies a successful outcome: increments the counter, folds
// the response time into the rolling average, stamps lastSuccess, adds the
// domain (set semantics), and recomputes confidence.
func (m *PatternMetrics) RecordSuccess(domain string, responseTimeMs float64, now time.Time) {
	m.SuccessCount++
	if responseTimeMs > 0 {
		m.AvgResponseTime += (responseTimeMs - m.AvgResponseTime) / float64(m.SuccessCount)
	}
	m.LastSuccess = now
	m.AddDomain(domain)
	m.recomputeConfidence()
}

// RecordFailure applies a failed outcome and recomputes confidence
func (m *PatternMetrics) RecordFailure(reason string, now time.Time) {
	m.FailureCount++
	m.LastFailure = now
	m.LastFailureReason = reason
	m.recomputeConfidence()
}

// AddDomain appends domain to the set if not already present
func (m *PatternMetrics) AddDomain(domain string) {
	if domain == "" {
		return
	}
	for _, d := range m.Domains {
		if d == domain {
			return
		}
	}
	m.Domains = append(m.Domains, domain)
}

// PushRecentFailure appends to the bounded recent-failure window, dropping
// the oldest entry once capacity is reached, and bumps the category counter.
func (m *PatternMetrics) PushRecentFailure(failure RecentFailure, capacity int) {
	if m.FailuresByCategory == nil {
		m.FailuresByCategory = make(map[FailureCategory]int)
	}
	m.FailuresByCategory[failure.Category]++

	m.RecentFailures = append(m.RecentFailures, failure)
	if capacity > 0 && len(m.RecentFailures) > capacity {
		m.RecentFailures = m.RecentFailures[len(m.RecentFailures)-capacity:]
	}
}

// RecentCategoryCount counts entries of the given category in the window
func (m *PatternMetrics) RecentCategoryCount(category FailureCategory) int {
	count := 0
	for _, f := range m.RecentFailures {
		if f.Category == category {
			count++
		}
	}
	return count
}

func (m *PatternMetrics) recomputeConfidence() {
	total := m.SuccessCount + m.FailureCount
	if total == 0 {
		m.Confidence = 0
		return
	}
	m.Confidence = float64(m.SuccessCount) / float64(total)
}

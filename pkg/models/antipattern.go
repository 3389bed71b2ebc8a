package models

import "time"

// AntiPattern is a failure-derived negative rule. URLs matching an active
// anti-pattern short-circuit pattern selection. Anti-patterns reference their
// source pattern by ID only; the registry owns both maps.
type AntiPattern struct {
	ID              string          `json:"id"`
	SourcePatternID string          `json:"sourcePatternId"`
	FailureCategory FailureCategory `json:"failureCategory"`
	Domains         []string        `json:"domains"`
	URLPattern      string          `json:"urlPattern"`
	FailureCount    int             `json:"failureCount"`
	FirstSeen       time.Time       `json:"firstSeen"`
	LastSeen        time.Time       `json:"lastSeen"`
	ExpiresAt       time.Time       `json:"expiresAt"`
}

// IsActive reports whether the anti-pattern has not yet expired
func (a *AntiPattern) IsActive(now time.Time) bool {
	return now.Before(a.ExpiresAt)
}

// AntiPatternKey is the secondary index key for O(1) upsert
type AntiPatternKey struct {
	SourcePatternID string
	Category        FailureCategory
}

package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/pagelens/pagelens/pkg/models"
)

// Anti-patterns live inside the registry so their lifecycle and persistence
// policy stay unified with the patterns they reference. The primary map
// (id → anti-pattern) and the secondary index ((sourcePatternId, category) →
// id) are mutated together, always under the registry mutex.

// UpsertAntiPattern creates or refreshes the anti-pattern keyed by
// (sourcePatternID, category). On refresh the failure count, last-seen stamp,
// and expiry all advance; anti_pattern_created is emitted only on creation.
func (r *Registry) UpsertAntiPattern(sourcePatternID string, category models.FailureCategory, domain, urlPattern string, failureCount int, ttl time.Duration) *models.AntiPattern {
	now := r.now()
	key := models.AntiPatternKey{SourcePatternID: sourcePatternID, Category: category}

	r.mu.Lock()
	if id, ok := r.antiIndex[key]; ok {
		anti := r.antiPatterns[id]
		anti.FailureCount = failureCount
		anti.LastSeen = now
		anti.ExpiresAt = now.Add(ttl)
		if domain != "" {
			anti.Domains = appendUnique(anti.Domains, domain)
		}
		r.mu.Unlock()
		return anti
	}

	anti := &models.AntiPattern{
		ID:              "anti:" + uuid.NewString(),
		SourcePatternID: sourcePatternID,
		FailureCategory: category,
		URLPattern:      urlPattern,
		FailureCount:    failureCount,
		FirstSeen:       now,
		LastSeen:        now,
		ExpiresAt:       now.Add(ttl),
	}
	if domain != "" {
		anti.Domains = []string{domain}
	}
	r.antiPatterns[anti.ID] = anti
	r.antiIndex[key] = anti.ID
	if pattern, ok := r.patterns[sourcePatternID]; ok {
		pattern.Metrics.ActiveAntiPatterns = appendUnique(pattern.Metrics.ActiveAntiPatterns, anti.ID)
	}
	r.mu.Unlock()

	r.metrics.IncrementCounter("anti_patterns_created", map[string]string{
		"category": string(category),
	})
	r.emit(models.Event{
		Type:      models.EventAntiPatternCreated,
		PatternID: sourcePatternID,
		Domain:    domain,
		Payload: map[string]interface{}{
			"antiPatternId": anti.ID,
			"category":      string(category),
		},
		Timestamp: now,
	})
	return anti
}

// CheckAntiPatterns returns every active anti-pattern matching the URL.
// Expired entries are purged from both the primary map and the secondary
// index before matching.
func (r *Registry) CheckAntiPatterns(rawURL string) []*models.AntiPattern {
	now := r.now()
	hostname := hostnameOf(rawURL)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeExpiredAntiPatternsLocked(now)

	var matches []*models.AntiPattern
	for _, anti := range r.antiPatterns {
		if r.antiPatternMatchesLocked(anti, rawURL, hostname) {
			matches = append(matches, anti)
		}
	}
	return matches
}

// GetAntiPattern returns the anti-pattern with the given id, if active
func (r *Registry) GetAntiPattern(id string) (*models.AntiPattern, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeExpiredAntiPatternsLocked(r.now())
	anti, ok := r.antiPatterns[id]
	return anti, ok
}

// AntiPatternFor returns the active anti-pattern keyed by source and category
func (r *Registry) AntiPatternFor(sourcePatternID string, category models.FailureCategory) (*models.AntiPattern, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeExpiredAntiPatternsLocked(r.now())
	id, ok := r.antiIndex[models.AntiPatternKey{SourcePatternID: sourcePatternID, Category: category}]
	if !ok {
		return nil, false
	}
	anti, ok := r.antiPatterns[id]
	return anti, ok
}

// AntiPatternCount returns the number of live anti-pattern entries
func (r *Registry) AntiPatternCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.antiPatterns)
}

func (r *Registry) antiPatternMatchesLocked(anti *models.AntiPattern, rawURL, hostname string) bool {
	if anti.URLPattern != "" {
		if re, err := compileCaseInsensitive(anti.URLPattern); err == nil && re.MatchString(rawURL) {
			return true
		}
	}
	if hostname != "" {
		for _, domain := range anti.Domains {
			if domain == hostname {
				return true
			}
		}
	}
	return false
}

func (r *Registry) purgeExpiredAntiPatternsLocked(now time.Time) {
	for id, anti := range r.antiPatterns {
		if anti.IsActive(now) {
			continue
		}
		delete(r.antiPatterns, id)
		delete(r.antiIndex, models.AntiPatternKey{
			SourcePatternID: anti.SourcePatternID,
			Category:        anti.FailureCategory,
		})
		if pattern, ok := r.patterns[anti.SourcePatternID]; ok {
			pattern.Metrics.ActiveAntiPatterns = removeString(pattern.Metrics.ActiveAntiPatterns, id)
		}
	}
}

package registry

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/config"
	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/observability"
	"github.com/pagelens/pagelens/pkg/store"
)

// ErrPatternNotFound is returned by operations addressing an unknown pattern
var ErrPatternNotFound = errors.New("pattern not found")

// Listener receives registry events synchronously, in emission order
type Listener func(event models.Event)

type registeredListener struct {
	id int
	fn Listener
}

// Registry is the single owner of all learned patterns and anti-patterns.
// The three pattern indexes (id map, domain index, template-type index) are
// mutated as a unit under one mutex.
type Registry struct {
	cfg     config.RegistryConfig
	store   store.Store
	logger  observability.Logger
	metrics observability.MetricsClient
	now     func() time.Time

	mu          sync.RWMutex
	patterns    map[string]*models.LearnedPattern
	order       []string
	domainIndex map[string][]string
	typeIndex   map[models.TemplateType][]string

	antiPatterns map[string]*models.AntiPattern
	antiIndex    map[models.AntiPatternKey]string

	listenerMu     sync.Mutex
	listeners      []registeredListener
	nextListenerID int
}

// NewRegistry creates an uninitialized registry; call Initialize before use
func NewRegistry(cfg config.RegistryConfig, st store.Store, logger observability.Logger, metrics observability.MetricsClient) *Registry {
	return &Registry{
		cfg:          cfg,
		store:        st,
		logger:       logger,
		metrics:      metrics,
		now:          time.Now,
		patterns:     make(map[string]*models.LearnedPattern),
		domainIndex:  make(map[string][]string),
		typeIndex:    make(map[models.TemplateType][]string),
		antiPatterns: make(map[string]*models.AntiPattern),
		antiIndex:    make(map[models.AntiPatternKey]string),
	}
}

// Initialize loads persisted patterns and seeds the bootstrap set when the
// store is empty. A bootstrap failure is fatal.
func (r *Registry) Initialize() error {
	blob, err := r.store.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load pattern store")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(blob) > 0 {
		var raw []json.RawMessage
		if err := json.Unmarshal(blob, &raw); err != nil {
			return errors.Wrap(err, "pattern store is not a JSON array")
		}
		for i, entry := range raw {
			var pattern models.LearnedPattern
			if err := json.Unmarshal(entry, &pattern); err != nil || pattern.ID == "" {
				// One corrupt entry must not take down the rest.
				r.logger.Warn("Skipping corrupt pattern entry", map[string]interface{}{
					"index": i,
				})
				continue
			}
			r.addLocked(&pattern)
		}
	}

	if len(r.patterns) == 0 {
		for _, pattern := range bootstrapPatterns(r.now()) {
			r.addLocked(pattern)
		}
		r.logger.Info("Seeded bootstrap patterns", map[string]interface{}{
			"count": len(r.patterns),
		})
	}

	return r.persistLocked()
}

// GetPattern returns the pattern with the given id
func (r *Registry) GetPattern(id string) (*models.LearnedPattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pattern, ok := r.patterns[id]
	return pattern, ok
}

// GetPatternsForDomain returns every pattern indexed under the domain, in
// index insertion order.
func (r *Registry) GetPatternsForDomain(domain string) []*models.LearnedPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.patternsByIDsLocked(r.domainIndex[domain])
}

// GetPatternsByType returns every pattern of the given template type
func (r *Registry) GetPatternsByType(templateType models.TemplateType) []*models.LearnedPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.patternsByIDsLocked(r.typeIndex[templateType])
}

// PatternCount returns the number of registered patterns
func (r *Registry) PatternCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patterns)
}

// FindMatchingPatterns returns all candidates for the URL, ordered by
// descending confidence with ties broken by index insertion order. Tier one
// scans only the domain index for the URL's hostname; tier two (cross-domain
// discovery) runs only when tier one finds nothing. An unparseable URL falls
// back to the full scan rather than erroring.
func (r *Registry) FindMatchingPatterns(rawURL string) []MatchResult {
	started := r.now()
	defer func() {
		r.metrics.RecordLatency("find_matching_patterns", r.now().Sub(started))
	}()

	r.mu.RLock()
	defer r.mu.RUnlock()

	hostname := hostnameOf(rawURL)
	if hostname == "" {
		return sortMatches(r.matchIDsLocked(rawURL, r.order, nil))
	}

	tierOneIDs := r.domainIndex[hostname]
	matches := r.matchIDsLocked(rawURL, tierOneIDs, nil)
	if len(matches) > 0 {
		return sortMatches(matches)
	}

	seen := make(map[string]struct{}, len(tierOneIDs))
	for _, id := range tierOneIDs {
		seen[id] = struct{}{}
	}
	return sortMatches(r.matchIDsLocked(rawURL, r.order, seen))
}

func (r *Registry) matchIDsLocked(rawURL string, ids []string, skip map[string]struct{}) []MatchResult {
	var matches []MatchResult
	for _, id := range ids {
		if skip != nil {
			if _, ok := skip[id]; ok {
				continue
			}
		}
		pattern, ok := r.patterns[id]
		if !ok {
			continue
		}
		if result, matched := MatchPattern(rawURL, pattern); matched {
			matches = append(matches, *result)
		}
	}
	return matches
}

func sortMatches(matches []MatchResult) []MatchResult {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// LearnPattern registers a new pattern, assigning a learned: id when none is
// set, and persists.
func (r *Registry) LearnPattern(pattern *models.LearnedPattern) error {
	now := r.now()
	if pattern.ID == "" {
		pattern.ID = models.PrefixLearned + uuid.NewString()
	}
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = now
	}
	pattern.UpdatedAt = now

	r.mu.Lock()
	if _, exists := r.patterns[pattern.ID]; exists {
		r.mu.Unlock()
		return errors.Errorf("pattern %s already registered", pattern.ID)
	}
	r.addLocked(pattern)
	err := r.persistLocked()
	r.mu.Unlock()
	if err != nil {
		return err
	}

	r.metrics.IncrementCounter("patterns_learned", map[string]string{
		"template_type": string(pattern.TemplateType),
	})
	r.emit(models.Event{
		Type:      models.EventPatternLearned,
		PatternID: pattern.ID,
		Payload:   map[string]interface{}{"templateType": string(pattern.TemplateType)},
		Timestamp: now,
	})
	return nil
}

// UpdatePatternMetrics applies a success or failure outcome to the pattern.
// responseTimeMs is only meaningful for successes; reason only for failures.
func (r *Registry) UpdatePatternMetrics(id string, success bool, domain string, responseTimeMs float64, reason string) error {
	now := r.now()

	r.mu.Lock()
	pattern, ok := r.patterns[id]
	if !ok {
		r.mu.Unlock()
		return errors.Wrapf(ErrPatternNotFound, "id %s", id)
	}

	oldConfidence := pattern.Metrics.Confidence
	if success {
		pattern.Metrics.RecordSuccess(domain, responseTimeMs, now)
		r.indexDomainLocked(domain, id)
	} else {
		pattern.Metrics.RecordFailure(reason, now)
	}
	pattern.UpdatedAt = now
	newConfidence := pattern.Metrics.Confidence

	err := r.persistLocked()
	r.mu.Unlock()
	if err != nil {
		return err
	}

	result := "failure"
	if success {
		result = "success"
	}
	r.metrics.IncrementCounter("pattern_applications", map[string]string{"result": result})

	events := []models.Event{{
		Type:      models.EventPatternApplied,
		PatternID: id,
		Domain:    domain,
		Payload: map[string]interface{}{
			"success":    success,
			"confidence": newConfidence,
		},
		Timestamp: now,
	}}
	if diff := newConfidence - oldConfidence; diff > r.cfg.ConfidenceEpsilon || diff < -r.cfg.ConfidenceEpsilon {
		events = append(events, models.Event{
			Type:      models.EventConfidenceDecayed,
			PatternID: id,
			Domain:    domain,
			Payload: map[string]interface{}{
				"oldConfidence": oldConfidence,
				"newConfidence": newConfidence,
			},
			Timestamp: now,
		})
	}
	r.emit(events...)
	return nil
}

// MutatePattern runs fn on the pattern under the registry lock and persists.
// It exists for the failure learner, which maintains the extended metrics.
func (r *Registry) MutatePattern(id string, fn func(pattern *models.LearnedPattern)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pattern, ok := r.patterns[id]
	if !ok {
		return errors.Wrapf(ErrPatternNotFound, "id %s", id)
	}
	fn(pattern)
	pattern.UpdatedAt = r.now()
	return r.persistLocked()
}

// Cleanup archives patterns whose last success (or creation, if never used)
// predates the archive threshold, or whose confidence fell below the floor.
func (r *Registry) Cleanup() int {
	now := r.now()
	cutoff := now.Add(-r.cfg.ArchiveAfter)

	r.mu.Lock()
	var archived []string
	for _, id := range r.order {
		pattern := r.patterns[id]
		lastActivity := pattern.Metrics.LastSuccess
		if lastActivity.IsZero() {
			lastActivity = pattern.CreatedAt
		}
		total := pattern.Metrics.SuccessCount + pattern.Metrics.FailureCount
		lowConfidence := total > 0 && pattern.Metrics.Confidence < r.cfg.ConfidenceFloor
		if lastActivity.Before(cutoff) || lowConfidence {
			archived = append(archived, id)
		}
	}
	for _, id := range archived {
		r.removeLocked(id)
	}
	var persistErr error
	if len(archived) > 0 {
		persistErr = r.persistLocked()
	}
	r.mu.Unlock()

	if persistErr != nil {
		r.logger.Error("Failed to persist after cleanup", map[string]interface{}{
			"error": persistErr.Error(),
		})
	}
	for _, id := range archived {
		r.metrics.IncrementCounter("patterns_archived", nil)
		r.emit(models.Event{
			Type:      models.EventPatternArchived,
			PatternID: id,
			Timestamp: now,
		})
	}
	return len(archived)
}

// Subscribe registers a listener and returns its unsubscribe function.
// Listeners are invoked synchronously in subscription order; a panicking
// listener is logged and never blocks delivery to its siblings.
func (r *Registry) Subscribe(listener Listener) func() {
	r.listenerMu.Lock()
	id := r.nextListenerID
	r.nextListenerID++
	r.listeners = append(r.listeners, registeredListener{id: id, fn: listener})
	r.listenerMu.Unlock()

	return func() {
		r.listenerMu.Lock()
		defer r.listenerMu.Unlock()
		for i, l := range r.listeners {
			if l.id == id {
				r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// Flush writes any pending persistence immediately
func (r *Registry) Flush() error {
	r.mu.RLock()
	err := r.persistLocked()
	r.mu.RUnlock()
	if err != nil {
		return err
	}
	return r.store.Flush()
}

// ExportPatterns returns a snapshot of all patterns in insertion order
func (r *Registry) ExportPatterns() []models.LearnedPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.LearnedPattern, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.patterns[id])
	}
	return out
}

// --- internal maintenance -------------------------------------------------

func (r *Registry) addLocked(pattern *models.LearnedPattern) {
	r.patterns[pattern.ID] = pattern
	r.order = append(r.order, pattern.ID)
	for _, domain := range pattern.Metrics.Domains {
		r.indexDomainLocked(domain, pattern.ID)
	}
	r.typeIndex[pattern.TemplateType] = appendUnique(r.typeIndex[pattern.TemplateType], pattern.ID)
}

func (r *Registry) removeLocked(id string) {
	pattern, ok := r.patterns[id]
	if !ok {
		return
	}
	delete(r.patterns, id)
	r.order = removeString(r.order, id)
	for _, domain := range pattern.Metrics.Domains {
		r.domainIndex[domain] = removeString(r.domainIndex[domain], id)
		if len(r.domainIndex[domain]) == 0 {
			delete(r.domainIndex, domain)
		}
	}
	r.typeIndex[pattern.TemplateType] = removeString(r.typeIndex[pattern.TemplateType], id)
	if len(r.typeIndex[pattern.TemplateType]) == 0 {
		delete(r.typeIndex, pattern.TemplateType)
	}
}

func (r *Registry) indexDomainLocked(domain, id string) {
	if domain == "" {
		return
	}
	r.domainIndex[domain] = appendUnique(r.domainIndex[domain], id)
}

func (r *Registry) patternsByIDsLocked(ids []string) []*models.LearnedPattern {
	out := make([]*models.LearnedPattern, 0, len(ids))
	for _, id := range ids {
		if pattern, ok := r.patterns[id]; ok {
			out = append(out, pattern)
		}
	}
	return out
}

func (r *Registry) persistLocked() error {
	patterns := make([]*models.LearnedPattern, 0, len(r.order))
	for _, id := range r.order {
		patterns = append(patterns, r.patterns[id])
	}
	blob, err := json.Marshal(patterns)
	if err != nil {
		return errors.Wrap(err, "failed to marshal patterns")
	}
	return r.store.Save(blob)
}

func (r *Registry) emit(events ...models.Event) {
	r.listenerMu.Lock()
	listeners := make([]registeredListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.listenerMu.Unlock()

	for _, event := range events {
		for _, l := range listeners {
			r.deliver(l, event)
		}
	}
}

func (r *Registry) deliver(l registeredListener, event models.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Registry listener panicked", map[string]interface{}{
				"event": string(event.Type),
				"panic": rec,
			})
		}
	}()
	l.fn(event)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeString(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

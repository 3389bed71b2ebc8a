package transfer

import (
	"context"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/config"
	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/observability"
	"github.com/pagelens/pagelens/pkg/registry"
)

// Confidence multipliers applied after a transferred pattern is used.
const (
	transferSuccessBoost = 1.3
	transferFailureDecay = 0.6
)

// Result reports the outcome of one transfer attempt. Rejections are not
// errors: Success is false and Reason explains the rejection.
type Result struct {
	Success    bool                   `json:"success"`
	Pattern    *models.LearnedPattern `json:"pattern,omitempty"`
	Similarity SimilarityScore        `json:"similarityScore"`
	Reason     string                 `json:"reason,omitempty"`
}

// Validator probes whether a transferred pattern actually works on its
// target domain, typically by fetching one representative URL.
type Validator func(ctx context.Context, pattern *models.LearnedPattern) bool

// Service derives patterns for new domains from proven ones
type Service struct {
	cfg      config.TransferConfig
	registry *registry.Registry
	logger   observability.Logger
	metrics  observability.MetricsClient
}

// NewService creates a transfer service bound to the registry
func NewService(cfg config.TransferConfig, reg *registry.Registry, logger observability.Logger, metrics observability.MetricsClient) *Service {
	return &Service{
		cfg:      cfg,
		registry: reg,
		logger:   logger,
		metrics:  metrics,
	}
}

// TransferPattern clones the source pattern onto the target domain. The
// clone gets a transfer: id, a target-specific URL pattern, reset metrics,
// and the source's confidence reduced by the configured decay. The transfer
// is rejected when the target domain is already indexed or the similarity
// score falls below the configured minimum.
func (s *Service) TransferPattern(sourceID, targetDomain string) (*Result, error) {
	if len(s.registry.GetPatternsForDomain(targetDomain)) > 0 {
		return &Result{
			Success: false,
			Reason:  "target domain already has patterns",
		}, nil
	}
	return s.transfer(sourceID, targetDomain)
}

func (s *Service) transfer(sourceID, targetDomain string) (*Result, error) {
	source, ok := s.registry.GetPattern(sourceID)
	if !ok {
		return nil, errors.Wrapf(registry.ErrPatternNotFound, "id %s", sourceID)
	}

	similarity := ComputeSimilarity(source, primaryDomain(source), targetDomain)
	if similarity.Overall < s.cfg.MinSimilarity {
		s.metrics.IncrementCounter("transfers_rejected", map[string]string{"reason": "low_similarity"})
		return &Result{
			Success:    false,
			Similarity: similarity,
			Reason:     "similarity below threshold",
		}, nil
	}

	clone, err := source.Clone()
	if err != nil {
		return nil, errors.Wrap(err, "failed to clone source pattern")
	}
	clone.ID = models.PrefixTransfer + uuid.NewString()
	clone.URLPatterns = []string{deriveTargetPattern(source, targetDomain)}
	clone.Metrics = models.PatternMetrics{
		Confidence: source.Metrics.Confidence * s.cfg.ConfidenceDecay,
		Domains:    []string{targetDomain},
	}
	clone.CreatedAt = time.Time{}

	if err := s.registry.LearnPattern(clone); err != nil {
		return nil, errors.Wrap(err, "failed to register transferred pattern")
	}

	s.metrics.IncrementCounter("transfers_completed", map[string]string{
		"template_type": string(clone.TemplateType),
	})
	s.logger.Info("Transferred pattern to new domain", map[string]interface{}{
		"sourceId":     sourceID,
		"targetDomain": targetDomain,
		"transferId":   clone.ID,
		"similarity":   similarity.Overall,
	})

	return &Result{
		Success:    true,
		Pattern:    clone,
		Similarity: similarity,
	}, nil
}

// RecordOutcome applies a normal metric update to a transferred pattern,
// then the transfer-specific confidence adjustment: a success multiplies
// confidence by 1.3 capped at 1.0, a failure by 0.6 floored at 0.
func (s *Service) RecordOutcome(patternID string, success bool, domain string, responseTimeMs float64, reason string) error {
	if err := s.registry.UpdatePatternMetrics(patternID, success, domain, responseTimeMs, reason); err != nil {
		return err
	}
	return s.registry.MutatePattern(patternID, func(pattern *models.LearnedPattern) {
		if success {
			pattern.Metrics.Confidence = math.Min(pattern.Metrics.Confidence*transferSuccessBoost, 1.0)
		} else {
			pattern.Metrics.Confidence = math.Max(pattern.Metrics.Confidence*transferFailureDecay, 0)
		}
	})
}

// AutoTransfer tries the best transfer candidates for a domain in
// descending similarity order, at most maxCandidates of them, stopping at
// the first one the validator accepts. Patterns a validator rejects stay
// registered with a recorded failure so their track record is visible.
func (s *Service) AutoTransfer(ctx context.Context, targetDomain string, validate Validator) (*Result, error) {
	if len(s.registry.GetPatternsForDomain(targetDomain)) > 0 {
		return &Result{Success: false, Reason: "target domain already has patterns"}, nil
	}

	type candidate struct {
		id         string
		similarity SimilarityScore
	}
	var candidates []candidate
	for _, pattern := range s.registry.ExportPatterns() {
		p := pattern
		similarity := ComputeSimilarity(&p, primaryDomain(&p), targetDomain)
		if similarity.Overall >= s.cfg.MinSimilarity {
			candidates = append(candidates, candidate{id: p.ID, similarity: similarity})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity.Overall > candidates[j].similarity.Overall
	})
	if len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}
	if len(candidates) == 0 {
		return &Result{Success: false, Reason: "no candidates above similarity threshold"}, nil
	}

	var last *Result
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.transfer(c.id, targetDomain)
		if err != nil {
			return nil, err
		}
		last = result
		if !result.Success {
			continue
		}
		if validate == nil || validate(ctx, result.Pattern) {
			return result, nil
		}
		if err := s.RecordOutcome(result.Pattern.ID, false, targetDomain, 0, "transfer validation failed"); err != nil {
			return nil, err
		}
		result.Success = false
		result.Reason = "validation failed on target domain"
	}
	return last, nil
}

func primaryDomain(pattern *models.LearnedPattern) string {
	if len(pattern.Metrics.Domains) > 0 {
		return pattern.Metrics.Domains[0]
	}
	return ""
}

// deriveTargetPattern swaps the host of the source's URL predicate for the
// escaped target domain, keeping the already-generalized path structure.
func deriveTargetPattern(source *models.LearnedPattern, targetDomain string) string {
	host := `https?://` + regexp.QuoteMeta(targetDomain)
	for _, urlPattern := range source.URLPatterns {
		if path, ok := patternPath(urlPattern); ok && path != "" {
			return host + path
		}
	}
	return host + `/.*`
}

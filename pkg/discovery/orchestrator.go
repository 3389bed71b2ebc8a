package discovery

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/pagelens/pagelens/pkg/config"
	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/observability"
	"github.com/pagelens/pagelens/pkg/webclient"
)

// Source probes one kind of documentation for a domain. Returning an error
// means "not found because of this"; the orchestrator converts it into a
// found:false result rather than failing the fan-out.
type Source interface {
	Name() SourceName
	Discover(ctx context.Context, domain string) (*Finding, error)
}

// Options tunes one discovery call
type Options struct {
	// ForceRefresh bypasses the per-domain cache.
	ForceRefresh bool
	// Skip names sources to leave out of the fan-out. Aliases resolve.
	Skip []SourceName
	// Observed carries patterns learned from watched traffic; they join the
	// merge as the observed pseudo-source.
	Observed []*models.LearnedPattern
}

// Orchestrator fans out all sources per domain and merges their results
type Orchestrator struct {
	cfg     config.DiscoveryConfig
	sources []Source
	cache   *expirable.LRU[string, *Aggregate]
	logger  observability.Logger
	metrics observability.MetricsClient
}

// NewOrchestrator creates an orchestrator with the standard source set
func NewOrchestrator(cfg config.DiscoveryConfig, fetcher webclient.Fetcher, logger observability.Logger, metrics observability.MetricsClient) *Orchestrator {
	return NewOrchestratorWithSources(cfg, logger, metrics,
		NewOpenAPISource(fetcher),
		NewGraphQLSource(fetcher),
		NewAsyncAPISource(fetcher),
		NewAltSpecSource(fetcher),
		NewLinksSource(fetcher),
		NewDocsPageSource(fetcher),
		NewRobotsSitemapSource(fetcher),
	)
}

// NewOrchestratorWithSources creates an orchestrator over an explicit
// source set; tests substitute fakes here.
func NewOrchestratorWithSources(cfg config.DiscoveryConfig, logger observability.Logger, metrics observability.MetricsClient, sources ...Source) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		sources: sources,
		cache:   expirable.NewLRU[string, *Aggregate](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:  logger,
		metrics: metrics,
	}
}

// Discover probes all non-skipped sources for the domain in parallel and
// merges their results. The aggregate is cached when any source found
// something. Per-source failures and timeouts surface inside the aggregate,
// never as errors.
func (o *Orchestrator) Discover(ctx context.Context, domain string, opts Options) (*Aggregate, error) {
	if !opts.ForceRefresh {
		if cached, ok := o.cache.Get(domain); ok {
			o.metrics.IncrementCounter("discovery_cache_hits", nil)
			return cached, nil
		}
	}

	skipped := make(map[SourceName]struct{}, len(opts.Skip))
	for _, name := range opts.Skip {
		skipped[CanonicalSource(name)] = struct{}{}
	}

	var active []Source
	for _, source := range o.sources {
		if _, skip := skipped[source.Name()]; !skip {
			active = append(active, source)
		}
	}

	results := make([]SourceResult, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range active {
		g.Go(func() error {
			results[i] = o.runSource(gctx, source, domain)
			return nil
		})
	}
	// Sources never return errors; Wait only observes ctx wiring.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(opts.Observed) > 0 {
		results = append(results, SourceResult{
			Source:     SourceObserved,
			Found:      true,
			Confidence: sourceConfidence[SourceObserved],
			Patterns:   opts.Observed,
		})
	}

	aggregate := mergeResults(domain, results)
	if aggregate.Found {
		o.cache.Add(domain, aggregate)
	}
	o.metrics.IncrementCounter("discovery_runs", map[string]string{
		"found": boolLabel(aggregate.Found),
	})
	return aggregate, nil
}

// runSource executes one source under its own timeout. The start time is
// taken before the call so a timed-out or failed source still reports an
// accurate elapsed duration.
func (o *Orchestrator) runSource(ctx context.Context, source Source, domain string) SourceResult {
	name := source.Name()
	result := SourceResult{
		Source:     name,
		Confidence: sourceConfidence[name],
	}

	sctx, cancel := context.WithTimeout(ctx, o.cfg.SourceTimeout)
	defer cancel()

	started := time.Now()
	finding, err := source.Discover(sctx, domain)
	result.Elapsed = time.Since(started)

	if err != nil {
		result.Error = err.Error()
		o.logger.Debug("Discovery source found nothing", map[string]interface{}{
			"source": string(name),
			"domain": domain,
			"error":  err.Error(),
		})
		return result
	}
	if finding == nil || (len(finding.Patterns) == 0 && len(finding.Metadata) == 0) {
		return result
	}

	result.Found = true
	result.Patterns = finding.Patterns
	result.Metadata = finding.Metadata
	for _, pattern := range result.Patterns {
		pattern.Metrics.Confidence = result.Confidence
	}
	return result
}

// mergeResults orders results by the priority table then confidence,
// deduplicates patterns by id (first wins), and takes metadata from the
// first found source.
func mergeResults(domain string, results []SourceResult) *Aggregate {
	sort.SliceStable(results, func(i, j int) bool {
		pi, pj := sourcePriority[results[i].Source], sourcePriority[results[j].Source]
		if pi != pj {
			return pi > pj
		}
		return results[i].Confidence > results[j].Confidence
	})

	aggregate := &Aggregate{
		Domain:       domain,
		Sources:      results,
		DiscoveredAt: time.Now(),
	}

	seen := make(map[string]struct{})
	for _, result := range results {
		if !result.Found {
			continue
		}
		aggregate.Found = true
		if aggregate.Metadata == nil && len(result.Metadata) > 0 {
			aggregate.Metadata = result.Metadata
		}
		for _, pattern := range result.Patterns {
			if _, dup := seen[pattern.ID]; dup {
				continue
			}
			seen[pattern.ID] = struct{}{}
			aggregate.Patterns = append(aggregate.Patterns, pattern)
		}
	}
	return aggregate
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

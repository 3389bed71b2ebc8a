// Package discovery locates machine-readable API documentation for a
// domain. A fixed set of sources is probed in parallel; results are merged
// by a static priority table and cached per domain.
package discovery

import (
	"time"

	"github.com/pagelens/pagelens/pkg/models"
)

// SourceName identifies one documentation source. The set is closed.
type SourceName string

// Documentation sources
const (
	SourceOpenAPI       SourceName = "openapi"
	SourceGraphQL       SourceName = "graphql"
	SourceAsyncAPI      SourceName = "asyncapi"
	SourceAltSpec       SourceName = "alt-spec"
	SourceLinks         SourceName = "links"
	SourceDocsPage      SourceName = "docs-page"
	SourceObserved      SourceName = "observed"
	SourceRobotsSitemap SourceName = "robots-sitemap"
)

// sourceAliases maps legacy source names onto their current spelling.
// "raml" aggregates were produced by older stores; they are accepted on
// input and never emitted.
var sourceAliases = map[SourceName]SourceName{
	"raml": SourceAltSpec,
}

// CanonicalSource resolves aliases to the current source name
func CanonicalSource(name SourceName) SourceName {
	if canonical, ok := sourceAliases[name]; ok {
		return canonical
	}
	return name
}

// sourcePriority orders merged results; higher wins.
var sourcePriority = map[SourceName]int{
	SourceOpenAPI:       100,
	SourceGraphQL:       90,
	SourceAsyncAPI:      80,
	SourceAltSpec:       75,
	SourceLinks:         60,
	SourceDocsPage:      50,
	SourceObserved:      40,
	SourceRobotsSitemap: 30,
}

// sourceConfidence is the fixed confidence assigned to each source's output
var sourceConfidence = map[SourceName]float64{
	SourceOpenAPI:       0.95,
	SourceGraphQL:       0.90,
	SourceAsyncAPI:      0.85,
	SourceAltSpec:       0.80,
	SourceLinks:         0.70,
	SourceDocsPage:      0.60,
	SourceObserved:      0.50,
	SourceRobotsSitemap: 0.40,
}

// Finding is what a source hands back when it locates documentation
type Finding struct {
	Patterns []*models.LearnedPattern
	Metadata map[string]interface{}
}

// SourceResult records one source's outcome, found or not. A failed source
// yields Found false with the error message; it never aborts the fan-out.
type SourceResult struct {
	Source     SourceName               `json:"source"`
	Found      bool                     `json:"found"`
	Confidence float64                  `json:"confidence"`
	Patterns   []*models.LearnedPattern `json:"patterns,omitempty"`
	Metadata   map[string]interface{}   `json:"metadata,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Elapsed    time.Duration            `json:"elapsed"`
}

// Aggregate is the merged, cached discovery outcome for one domain
type Aggregate struct {
	Domain       string                   `json:"domain"`
	Found        bool                     `json:"found"`
	Sources      []SourceResult           `json:"sources"`
	Patterns     []*models.LearnedPattern `json:"patterns"`
	Metadata     map[string]interface{}   `json:"metadata,omitempty"`
	DiscoveredAt time.Time                `json:"discoveredAt"`
}

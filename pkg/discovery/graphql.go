package discovery

import (
	"context"
	"net/http"
	"regexp"

	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/webclient"
)

var graphqlProbePaths = []string{"/graphql", "/api/graphql", "/query"}

// graphqlProbeQuery is the cheapest query every compliant endpoint answers
const graphqlProbeQuery = `{"query":"{ __typename }"}`

// GraphQLSource probes common GraphQL endpoint locations. A responding
// endpoint yields exactly one query-api pattern: POST, JSON content type,
// no extractors, content mapping rooted at data.
type GraphQLSource struct {
	fetcher webclient.Fetcher
}

// NewGraphQLSource creates the GraphQL probe
func NewGraphQLSource(fetcher webclient.Fetcher) *GraphQLSource {
	return &GraphQLSource{fetcher: fetcher}
}

// Name implements Source
func (s *GraphQLSource) Name() SourceName { return SourceGraphQL }

// Discover implements Source
func (s *GraphQLSource) Discover(ctx context.Context, domain string) (*Finding, error) {
	for _, probePath := range graphqlProbePaths {
		endpoint := "https://" + domain + probePath
		resp, err := s.fetcher.Fetch(ctx, endpoint, webclient.RequestOptions{
			Method:  http.MethodPost,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    []byte(graphqlProbeQuery),
		})
		if err != nil || resp.Status != http.StatusOK {
			continue
		}

		var probe struct {
			Data map[string]interface{} `json:"data"`
		}
		if resp.JSON(&probe) != nil || probe.Data == nil {
			continue
		}

		return &Finding{
			Patterns: []*models.LearnedPattern{{
				ID:               models.PrefixGraphQL + domain,
				TemplateType:     models.TemplateQueryAPI,
				URLPatterns:      []string{`https?://` + regexp.QuoteMeta(domain) + `/.*`},
				EndpointTemplate: endpoint,
				Method:           http.MethodPost,
				Headers:          map[string]string{"Content-Type": "application/json"},
				ResponseFormat:   models.FormatJSON,
				ContentMapping:   models.ContentMapping{Body: "data"},
			}},
			Metadata: map[string]interface{}{
				"endpoint": endpoint,
			},
		}, nil
	}
	return nil, errors.Errorf("no graphql endpoint found for %s", domain)
}

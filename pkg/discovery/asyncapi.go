package discovery

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/webclient"
)

var asyncAPIProbePaths = []string{
	"/asyncapi.json",
	"/asyncapi.yaml",
	"/.well-known/asyncapi.json",
}

// AsyncAPISource probes for AsyncAPI documents describing event-driven
// endpoints. A document with a WebSocket server yields one websocket
// pattern; otherwise the document location is reported as metadata only.
type AsyncAPISource struct {
	fetcher webclient.Fetcher
}

// NewAsyncAPISource creates the AsyncAPI probe
func NewAsyncAPISource(fetcher webclient.Fetcher) *AsyncAPISource {
	return &AsyncAPISource{fetcher: fetcher}
}

// Name implements Source
func (s *AsyncAPISource) Name() SourceName { return SourceAsyncAPI }

// Discover implements Source
func (s *AsyncAPISource) Discover(ctx context.Context, domain string) (*Finding, error) {
	for _, probePath := range asyncAPIProbePaths {
		specURL := "https://" + domain + probePath
		resp, err := s.fetcher.Fetch(ctx, specURL, webclient.RequestOptions{})
		if err != nil || resp.Status != http.StatusOK {
			continue
		}
		if DetectSpecFormat(resp.Bytes()) != SpecAsyncAPI {
			continue
		}

		var doc struct {
			AsyncAPI string `yaml:"asyncapi" json:"asyncapi"`
			Info     struct {
				Title string `yaml:"title" json:"title"`
			} `yaml:"info" json:"info"`
			Servers  map[string]struct {
				URL      string `yaml:"url" json:"url"`
				Protocol string `yaml:"protocol" json:"protocol"`
			} `yaml:"servers" json:"servers"`
			Channels map[string]interface{} `yaml:"channels" json:"channels"`
		}
		if err := yaml.Unmarshal(resp.Bytes(), &doc); err != nil {
			return nil, errors.Wrap(err, "failed to parse asyncapi document")
		}

		finding := &Finding{
			Metadata: map[string]interface{}{
				"format":   string(SpecAsyncAPI),
				"specUrl":  specURL,
				"title":    doc.Info.Title,
				"version":  doc.AsyncAPI,
				"channels": len(doc.Channels),
			},
		}
		for _, server := range doc.Servers {
			if !strings.HasPrefix(server.Protocol, "ws") {
				continue
			}
			finding.Patterns = append(finding.Patterns, &models.LearnedPattern{
				ID:               models.PrefixWebSocket + domain,
				TemplateType:     models.TemplateWebSocket,
				URLPatterns:      []string{`https?://` + regexp.QuoteMeta(domain) + `/.*`},
				EndpointTemplate: server.URL,
				Method:           http.MethodGet,
				ResponseFormat:   models.FormatJSON,
			})
			break
		}
		return finding, nil
	}
	return nil, errors.Errorf("no asyncapi document found for %s", domain)
}

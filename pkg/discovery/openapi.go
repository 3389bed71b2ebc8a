package discovery

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/webclient"
)

// Well-known OpenAPI document locations, probed in order.
var openAPIProbePaths = []string{
	"/openapi.json",
	"/swagger.json",
	"/api/openapi.json",
	"/v3/api-docs",
	"/.well-known/openapi.json",
	"/openapi.yaml",
}

// OpenAPISource probes well-known OpenAPI document locations and generates
// one rest-resource pattern per GET operation.
type OpenAPISource struct {
	fetcher webclient.Fetcher
}

// NewOpenAPISource creates the OpenAPI probe
func NewOpenAPISource(fetcher webclient.Fetcher) *OpenAPISource {
	return &OpenAPISource{fetcher: fetcher}
}

// Name implements Source
func (s *OpenAPISource) Name() SourceName { return SourceOpenAPI }

// Discover implements Source
func (s *OpenAPISource) Discover(ctx context.Context, domain string) (*Finding, error) {
	for _, probePath := range openAPIProbePaths {
		specURL := "https://" + domain + probePath
		resp, err := s.fetcher.Fetch(ctx, specURL, webclient.RequestOptions{})
		if err != nil || resp.Status != http.StatusOK {
			continue
		}

		switch DetectSpecFormat(resp.Bytes()) {
		case SpecOpenAPI3:
			return s.parseV3(ctx, domain, specURL, resp.Bytes())
		case SpecOpenAPI2:
			// Swagger 2.0 is reported without pattern generation; the
			// aggregate still records where the document lives.
			return &Finding{
				Metadata: map[string]interface{}{
					"format":  string(SpecOpenAPI2),
					"specUrl": specURL,
				},
			}, nil
		}
	}
	return nil, errors.Errorf("no openapi document found for %s", domain)
}

func (s *OpenAPISource) parseV3(ctx context.Context, domain, specURL string, body []byte) (*Finding, error) {
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse openapi document")
	}

	baseURL := "https://" + domain
	if len(doc.Servers) > 0 && doc.Servers[0].URL != "" {
		if u := doc.Servers[0].URL; strings.HasPrefix(u, "http") {
			baseURL = strings.TrimSuffix(u, "/")
		}
	}

	finding := &Finding{
		Metadata: map[string]interface{}{
			"format":  string(SpecOpenAPI3),
			"specUrl": specURL,
			"title":   doc.Info.Title,
			"version": doc.Info.Version,
		},
	}

	if doc.Paths == nil {
		return finding, nil
	}
	for apiPath, item := range doc.Paths.Map() {
		if item.Get == nil {
			continue
		}
		finding.Patterns = append(finding.Patterns, &models.LearnedPattern{
			ID:               models.PrefixOpenAPI + domain + ":" + apiPath,
			TemplateType:     models.TemplateRESTResource,
			URLPatterns:      []string{openAPIPathPattern(baseURL, apiPath)},
			EndpointTemplate: baseURL + apiPath,
			Method:           http.MethodGet,
			ResponseFormat:   models.FormatJSON,
		})
	}
	return finding, nil
}

// QuoteMeta escapes braces, so path parameters appear as \{name\}.
var escapedPathParam = regexp.MustCompile(`\\\{[^}]+\\}`)

// openAPIPathPattern turns an OpenAPI path into a URL regex: literal
// segments escaped, {param} placeholders generalized.
func openAPIPathPattern(baseURL, apiPath string) string {
	pattern := regexp.QuoteMeta(baseURL + apiPath)
	pattern = escapedPathParam.ReplaceAllString(pattern, `[^/]+`)
	pattern = strings.Replace(pattern, `https:`, `https?:`, 1)
	return pattern
}

package discovery

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/webclient"
)

var altSpecProbePaths = []string{
	"/api.raml",
	"/api/api.raml",
	"/api.apib",
	"/application.wadl",
	"/api/application.wadl",
}

// AltSpecSource probes for legacy spec formats: RAML, API Blueprint, and
// WADL. These document an API without enough machine-readable structure to
// generate patterns from, so the finding is metadata only.
type AltSpecSource struct {
	fetcher webclient.Fetcher
}

// NewAltSpecSource creates the legacy-spec probe
func NewAltSpecSource(fetcher webclient.Fetcher) *AltSpecSource {
	return &AltSpecSource{fetcher: fetcher}
}

// Name implements Source
func (s *AltSpecSource) Name() SourceName { return SourceAltSpec }

// Discover implements Source
func (s *AltSpecSource) Discover(ctx context.Context, domain string) (*Finding, error) {
	for _, probePath := range altSpecProbePaths {
		specURL := "https://" + domain + probePath
		resp, err := s.fetcher.Fetch(ctx, specURL, webclient.RequestOptions{})
		if err != nil || resp.Status != http.StatusOK {
			continue
		}

		format := DetectSpecFormat(resp.Bytes())
		switch format {
		case SpecRAML, SpecBlueprint, SpecWADL:
			return &Finding{
				Metadata: map[string]interface{}{
					"format":  string(format),
					"specUrl": specURL,
				},
			}, nil
		}
	}
	return nil, errors.Errorf("no alternative spec found for %s", domain)
}

package discovery

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/webclient"
)

// LinksSource reads RFC 8288 Link headers and HATEOAS _links bodies from a
// domain's likely API roots. Links are hints, not endpoints with known
// shapes, so the finding carries metadata only.
type LinksSource struct {
	fetcher webclient.Fetcher
}

// NewLinksSource creates the web-linking probe
func NewLinksSource(fetcher webclient.Fetcher) *LinksSource {
	return &LinksSource{fetcher: fetcher}
}

// Name implements Source
func (s *LinksSource) Name() SourceName { return SourceLinks }

// Discover implements Source
func (s *LinksSource) Discover(ctx context.Context, domain string) (*Finding, error) {
	links := make(map[string]string)
	for _, probePath := range []string{"/api", "/"} {
		resp, err := s.fetcher.Fetch(ctx, "https://"+domain+probePath, webclient.RequestOptions{
			Headers: map[string]string{"Accept": "application/json"},
		})
		if err != nil || resp.Status >= http.StatusBadRequest {
			continue
		}

		for _, header := range resp.Headers.Values("Link") {
			for rel, href := range parseLinkHeader(header) {
				links[rel] = href
			}
		}

		var hateoas struct {
			Links map[string]struct {
				Href string `json:"href"`
			} `json:"_links"`
		}
		if resp.JSON(&hateoas) == nil {
			for rel, link := range hateoas.Links {
				if link.Href != "" {
					links[rel] = link.Href
				}
			}
		}
	}

	if len(links) == 0 {
		return nil, errors.Errorf("no link relations found for %s", domain)
	}
	return &Finding{
		Metadata: map[string]interface{}{"links": links},
	}, nil
}

// parseLinkHeader parses an RFC 8288 Link header value into rel → href.
// Values the header does not attribute a rel to are ignored.
func parseLinkHeader(header string) map[string]string {
	links := make(map[string]string)
	for _, part := range strings.Split(header, ",") {
		sections := strings.Split(strings.TrimSpace(part), ";")
		if len(sections) < 2 {
			continue
		}
		target := strings.TrimSpace(sections[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		href := strings.Trim(target, "<>")

		for _, param := range sections[1:] {
			name, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || strings.TrimSpace(name) != "rel" {
				continue
			}
			rel := strings.Trim(strings.TrimSpace(value), `"`)
			if rel != "" {
				links[rel] = href
			}
		}
	}
	return links
}

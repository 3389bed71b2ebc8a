package discovery

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/webclient"
)

var docsProbePaths = []string{"/docs", "/api-docs", "/developers", "/developer", "/documentation"}

// DocsPageSource scrapes human-oriented developer documentation pages for
// endpoint mentions. Scraped endpoints are hints for later observation, so
// the finding is metadata only.
type DocsPageSource struct {
	fetcher webclient.Fetcher
}

// NewDocsPageSource creates the documentation-page scraper
func NewDocsPageSource(fetcher webclient.Fetcher) *DocsPageSource {
	return &DocsPageSource{fetcher: fetcher}
}

// Name implements Source
func (s *DocsPageSource) Name() SourceName { return SourceDocsPage }

// Discover implements Source
func (s *DocsPageSource) Discover(ctx context.Context, domain string) (*Finding, error) {
	for _, probePath := range docsProbePaths {
		pageURL := "https://" + domain + probePath
		resp, err := s.fetcher.Fetch(ctx, pageURL, webclient.RequestOptions{})
		if err != nil || resp.Status != http.StatusOK {
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text()))
		if err != nil {
			continue
		}
		if !looksLikeAPIDocs(doc) {
			continue
		}

		endpoints := collectEndpointMentions(doc, domain)
		metadata := map[string]interface{}{
			"docsUrl": pageURL,
			"title":   strings.TrimSpace(doc.Find("title").First().Text()),
		}
		if len(endpoints) > 0 {
			metadata["endpoints"] = endpoints
		}
		return &Finding{Metadata: metadata}, nil
	}
	return nil, errors.Errorf("no documentation page found for %s", domain)
}

// looksLikeAPIDocs requires an API mention in the title or a heading, so
// generic marketing pages under /docs do not count as documentation.
func looksLikeAPIDocs(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").First().Text())
	if strings.Contains(title, "api") || strings.Contains(title, "developer") {
		return true
	}
	found := false
	doc.Find("h1, h2").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		text := strings.ToLower(heading.Text())
		if strings.Contains(text, "api") || strings.Contains(text, "endpoint") {
			found = true
			return false
		}
		return true
	})
	return found
}

// collectEndpointMentions pulls same-domain URLs out of code samples
func collectEndpointMentions(doc *goquery.Document, domain string) []string {
	seen := make(map[string]struct{})
	var endpoints []string
	doc.Find("code, pre").Each(func(_ int, block *goquery.Selection) {
		for _, field := range strings.Fields(block.Text()) {
			if !strings.HasPrefix(field, "http://") && !strings.HasPrefix(field, "https://") {
				continue
			}
			if !strings.Contains(field, domain) {
				continue
			}
			endpoint := strings.TrimRight(field, `"',;)`)
			if _, dup := seen[endpoint]; dup {
				continue
			}
			seen[endpoint] = struct{}{}
			endpoints = append(endpoints, endpoint)
		}
	})
	return endpoints
}

package discovery

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/webclient"
)

// maxSitemapFetches bounds how many sitemap documents one discovery pass
// will download.
const maxSitemapFetches = 3

// RobotsSitemapSource reads robots.txt for sitemap locations and API path
// hints, then scans the listed sitemaps for documentation pages. This is
// the weakest source: hints only, never patterns.
type RobotsSitemapSource struct {
	fetcher webclient.Fetcher
}

// NewRobotsSitemapSource creates the robots.txt probe
func NewRobotsSitemapSource(fetcher webclient.Fetcher) *RobotsSitemapSource {
	return &RobotsSitemapSource{fetcher: fetcher}
}

// Name implements Source
func (s *RobotsSitemapSource) Name() SourceName { return SourceRobotsSitemap }

// Discover implements Source
func (s *RobotsSitemapSource) Discover(ctx context.Context, domain string) (*Finding, error) {
	resp, err := s.fetcher.Fetch(ctx, "https://"+domain+"/robots.txt", webclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch robots.txt")
	}
	if resp.Status != http.StatusOK {
		return nil, errors.Errorf("robots.txt returned status %d", resp.Status)
	}

	var sitemaps []string
	var apiPaths []string
	for _, line := range strings.Split(resp.Text(), "\n") {
		directive, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(directive)) {
		case "sitemap":
			// The sitemap value is itself a URL, so re-split on the first
			// space-delimited colon boundary instead of the URL's colon.
			if _, full, ok := strings.Cut(strings.TrimSpace(line), " "); ok {
				if full = strings.TrimSpace(full); full != "" {
					sitemaps = append(sitemaps, full)
				}
			}
		case "allow", "disallow":
			if strings.Contains(strings.ToLower(value), "/api") {
				apiPaths = append(apiPaths, value)
			}
		}
	}

	if len(sitemaps) == 0 && len(apiPaths) == 0 {
		return nil, errors.Errorf("robots.txt carries no hints for %s", domain)
	}

	metadata := map[string]interface{}{}
	if len(sitemaps) > 0 {
		metadata["sitemaps"] = sitemaps
		if docPages := s.collectDocPages(ctx, domain, sitemaps); len(docPages) > 0 {
			metadata["docPages"] = docPages
		}
	}
	if len(apiPaths) > 0 {
		metadata["apiPaths"] = apiPaths
	}
	return &Finding{Metadata: metadata}, nil
}

// sitemapXML covers both document shapes: a urlset's <url> entries and a
// sitemap index's nested <sitemap> entries.
type sitemapXML struct {
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// collectDocPages downloads the listed sitemaps (index files enqueue their
// children) and keeps same-domain URLs that look like documentation pages.
// Fetch or parse failures skip the sitemap; hints are best effort.
func (s *RobotsSitemapSource) collectDocPages(ctx context.Context, domain string, sitemaps []string) []string {
	var pages []string
	seen := make(map[string]struct{})
	queue := append([]string(nil), sitemaps...)
	for fetched := 0; len(queue) > 0 && fetched < maxSitemapFetches; fetched++ {
		sitemapURL := queue[0]
		queue = queue[1:]

		resp, err := s.fetcher.Fetch(ctx, sitemapURL, webclient.RequestOptions{})
		if err != nil || resp.Status != http.StatusOK {
			continue
		}
		var parsed sitemapXML
		if err := xml.Unmarshal(resp.Bytes(), &parsed); err != nil {
			continue
		}
		for _, child := range parsed.Sitemaps {
			if loc := strings.TrimSpace(child.Loc); loc != "" {
				queue = append(queue, loc)
			}
		}
		for _, entry := range parsed.URLs {
			loc := strings.TrimSpace(entry.Loc)
			if !looksLikeDocPage(loc, domain) {
				continue
			}
			if _, ok := seen[loc]; ok {
				continue
			}
			seen[loc] = struct{}{}
			pages = append(pages, loc)
		}
	}
	return pages
}

var docPageMarkers = []string{"/api", "/docs", "/developer", "/documentation"}

func looksLikeDocPage(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, marker := range docPageMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

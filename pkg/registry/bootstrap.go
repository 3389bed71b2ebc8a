package registry

import (
	"time"

	"github.com/pagelens/pagelens/pkg/models"
)

// bootstrapSuccessCount marks seeded patterns as pre-validated so their
// confidence starts at 1.0 and survives a few early failures.
const bootstrapSuccessCount = 10

// bootstrapPatterns returns the pre-seeded patterns for the canonical sites.
// They are created exactly once, when the registry initializes empty.
func bootstrapPatterns(now time.Time) []*models.LearnedPattern {
	seed := func(id string, templateType models.TemplateType, domains []string, p models.LearnedPattern) *models.LearnedPattern {
		p.ID = models.PrefixBootstrap + id
		p.TemplateType = templateType
		if p.Method == "" {
			p.Method = "GET"
		}
		if p.ResponseFormat == "" {
			p.ResponseFormat = models.FormatJSON
		}
		p.Metrics = models.PatternMetrics{
			SuccessCount: bootstrapSuccessCount,
			Confidence:   1.0,
			Domains:      domains,
		}
		p.CreatedAt = now
		p.UpdatedAt = now
		return &p
	}

	return []*models.LearnedPattern{
		seed("reddit", models.TemplateJSONSuffix,
			[]string{"reddit.com", "www.reddit.com", "old.reddit.com"},
			models.LearnedPattern{
				URLPatterns:      []string{`https?://(www\.|old\.)?reddit\.com/r/[^/]+/comments/.+`},
				EndpointTemplate: "{url}.json",
				ContentMapping: models.ContentMapping{
					Title:       "[0].data.children[0].data.title",
					Body:        "[0].data.children[0].data.selftext",
					Description: "[0].data.children[0].data.subreddit_name_prefixed",
					Metadata: map[string]string{
						"author": "[0].data.children[0].data.author",
						"score":  "[0].data.children[0].data.score",
					},
				},
				Validation: models.Validation{MinBodyLength: 2},
			}),

		seed("npm", models.TemplateRegistryLookup,
			[]string{"npmjs.com", "www.npmjs.com"},
			models.LearnedPattern{
				URLPatterns:      []string{`https?://(www\.)?npmjs\.com/package/[^/?#]+`},
				EndpointTemplate: "https://registry.npmjs.org/{package}",
				Extractors: []models.Extractor{
					{Name: "package", Source: models.SourcePath, Pattern: `/package/([^/]+)`, Group: 1},
				},
				ContentMapping: models.ContentMapping{
					Title:       "name",
					Description: "description",
					Body:        "readme",
					Metadata: map[string]string{
						"version": "dist-tags.latest",
						"license": "license",
					},
				},
				Validation: models.Validation{RequiredFields: []string{"name"}},
			}),

		seed("pypi", models.TemplateRegistryLookup,
			[]string{"pypi.org"},
			models.LearnedPattern{
				URLPatterns:      []string{`https?://pypi\.org/project/[^/?#]+`},
				EndpointTemplate: "https://pypi.org/pypi/{project}/json",
				Extractors: []models.Extractor{
					{Name: "project", Source: models.SourcePath, Pattern: `/project/([^/]+)`, Group: 1},
				},
				ContentMapping: models.ContentMapping{
					Title:       "info.name",
					Description: "info.summary",
					Body:        "info.description",
					Metadata: map[string]string{
						"version": "info.version",
						"author":  "info.author",
					},
				},
				Validation: models.Validation{RequiredFields: []string{"info"}},
			}),

		seed("github", models.TemplateRESTResource,
			[]string{"github.com", "www.github.com"},
			models.LearnedPattern{
				URLPatterns:      []string{`https?://(www\.)?github\.com/[^/?#]+/[^/?#]+/?$`},
				EndpointTemplate: "https://api.github.com/repos/{owner}/{repo}",
				Extractors: []models.Extractor{
					{Name: "owner", Source: models.SourcePath, Pattern: `^/([^/]+)/[^/]+`, Group: 1},
					{Name: "repo", Source: models.SourcePath, Pattern: `^/[^/]+/([^/]+)`, Group: 1},
				},
				Headers: map[string]string{"Accept": "application/vnd.github+json"},
				ContentMapping: models.ContentMapping{
					Title:       "full_name",
					Description: "description",
					Metadata: map[string]string{
						"stars":    "stargazers_count",
						"language": "language",
					},
				},
				Validation: models.Validation{RequiredFields: []string{"full_name"}},
			}),

		seed("wikipedia", models.TemplateRESTResource,
			[]string{"en.wikipedia.org", "wikipedia.org"},
			models.LearnedPattern{
				URLPatterns:      []string{`https?://[a-z]{2,3}\.wikipedia\.org/wiki/.+`},
				EndpointTemplate: "https://{lang}.wikipedia.org/api/rest_v1/page/summary/{title}",
				Extractors: []models.Extractor{
					{Name: "lang", Source: models.SourceSubdomain, Pattern: `^([a-z]{2,3})\.`, Group: 1},
					{Name: "title", Source: models.SourcePath, Pattern: `^/wiki/(.+)$`, Group: 1},
				},
				ContentMapping: models.ContentMapping{
					Title:       "title",
					Description: "description",
					Body:        "extract",
				},
				Validation: models.Validation{RequiredFields: []string{"title", "extract"}},
			}),

		seed("hackernews", models.TemplateFirebaseREST,
			[]string{"news.ycombinator.com"},
			models.LearnedPattern{
				URLPatterns:      []string{`https?://news\.ycombinator\.com/item\?id=\d+`},
				EndpointTemplate: "https://hacker-news.firebaseio.com/v0/item/{id}.json",
				Extractors: []models.Extractor{
					{Name: "id", Source: models.SourceQuery, Pattern: `id=(\d+)`, Group: 1},
				},
				ContentMapping: models.ContentMapping{
					Title: "title",
					Body:  "text",
					Metadata: map[string]string{
						"author": "by",
						"score":  "score",
					},
				},
				Validation: models.Validation{RequiredFields: []string{"id"}},
			}),

		seed("stackoverflow", models.TemplateQueryAPI,
			[]string{"stackoverflow.com"},
			models.LearnedPattern{
				URLPatterns:      []string{`https?://stackoverflow\.com/questions/\d+`},
				EndpointTemplate: "https://api.stackexchange.com/2.3/questions/{id}?site=stackoverflow&filter=withbody",
				Extractors: []models.Extractor{
					{Name: "id", Source: models.SourcePath, Pattern: `/questions/(\d+)`, Group: 1},
				},
				ContentMapping: models.ContentMapping{
					Title: "items[0].title",
					Body:  "items[0].body",
					Metadata: map[string]string{
						"score": "items[0].score",
					},
				},
				Validation: models.Validation{RequiredFields: []string{"items"}},
			}),

		seed("devto", models.TemplateRESTResource,
			[]string{"dev.to"},
			models.LearnedPattern{
				URLPatterns:      []string{`https?://dev\.to/[^/?#]+/[^/?#]+`},
				EndpointTemplate: "https://dev.to/api/articles/{username}/{slug}",
				Extractors: []models.Extractor{
					{Name: "username", Source: models.SourcePath, Pattern: `^/([^/]+)/[^/]+`, Group: 1},
					{Name: "slug", Source: models.SourcePath, Pattern: `^/[^/]+/([^/]+)`, Group: 1},
				},
				ContentMapping: models.ContentMapping{
					Title:       "title",
					Description: "description",
					Body:        "body_markdown",
					Metadata: map[string]string{
						"author": "user.name",
						"tags":   "tags",
					},
				},
				Validation: models.Validation{RequiredFields: []string{"title"}},
			}),
	}
}

// Package transfer clones proven patterns onto structurally similar sites.
// Candidate sites are ranked by a weighted similarity score built from a
// static table of domain groups.
package transfer

import (
	"strings"

	"github.com/pagelens/pagelens/pkg/models"
)

// DomainGroup is a named cluster of domains that share structural
// conventions. Group membership is the strongest prior the similarity
// score has.
type DomainGroup struct {
	Name            string
	Domains         []string
	PathPatterns    []string
	ResponseFields  []string
	AuthType        string
	CommonTemplates []models.TemplateType
}

var domainGroups = []DomainGroup{
	{
		Name:           "package_registries",
		Domains:        []string{"npmjs.com", "pypi.org", "rubygems.org", "crates.io", "packagist.org", "hex.pm"},
		PathPatterns:   []string{"/package/", "/project/", "/gems/", "/crates/"},
		ResponseFields: []string{"name", "version", "description"},
		AuthType:       "none",
		CommonTemplates: []models.TemplateType{
			models.TemplateRegistryLookup, models.TemplateRESTResource,
		},
	},
	{
		Name:           "code_hosting",
		Domains:        []string{"github.com", "gitlab.com", "bitbucket.org", "codeberg.org"},
		PathPatterns:   []string{"/{owner}/{repo}"},
		ResponseFields: []string{"full_name", "description", "default_branch"},
		AuthType:       "token",
		CommonTemplates: []models.TemplateType{
			models.TemplateRESTResource, models.TemplateGraphQL,
		},
	},
	{
		Name:           "qa_forums",
		Domains:        []string{"stackoverflow.com", "serverfault.com", "superuser.com", "askubuntu.com", "stackexchange.com"},
		PathPatterns:   []string{"/questions/"},
		ResponseFields: []string{"items", "title", "body"},
		AuthType:       "none",
		CommonTemplates: []models.TemplateType{
			models.TemplateQueryAPI, models.TemplateRESTResource,
		},
	},
	{
		Name:           "knowledge_bases",
		Domains:        []string{"wikipedia.org", "wiktionary.org", "wikidata.org", "fandom.com"},
		PathPatterns:   []string{"/wiki/"},
		ResponseFields: []string{"title", "extract"},
		AuthType:       "none",
		CommonTemplates: []models.TemplateType{
			models.TemplateRESTResource, models.TemplateQueryAPI,
		},
	},
	{
		Name:           "social_news",
		Domains:        []string{"reddit.com", "news.ycombinator.com", "lobste.rs"},
		PathPatterns:   []string{"/r/", "/item", "/s/"},
		ResponseFields: []string{"title", "score", "author"},
		AuthType:       "none",
		CommonTemplates: []models.TemplateType{
			models.TemplateJSONSuffix, models.TemplateFirebaseREST,
		},
	},
	{
		Name:           "developer_blogs",
		Domains:        []string{"dev.to", "hashnode.com", "medium.com", "substack.com"},
		PathPatterns:   []string{"/{username}/{slug}"},
		ResponseFields: []string{"title", "body_markdown", "user"},
		AuthType:       "none",
		CommonTemplates: []models.TemplateType{
			models.TemplateRESTResource, models.TemplateJSONSuffix,
		},
	},
}

// GroupForDomain resolves the domain group for a hostname. Subdomains
// resolve to their parent's group, so en.wikipedia.org lands in
// knowledge_bases.
func GroupForDomain(domain string) (*DomainGroup, bool) {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	for i := range domainGroups {
		for _, member := range domainGroups[i].Domains {
			if domain == member || strings.HasSuffix(domain, "."+member) {
				return &domainGroups[i], true
			}
		}
	}
	return nil, false
}

func (g *DomainGroup) listsTemplate(templateType models.TemplateType) bool {
	for _, t := range g.CommonTemplates {
		if t == templateType {
			return true
		}
	}
	return false
}

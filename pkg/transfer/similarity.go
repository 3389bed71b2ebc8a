package transfer

import (
	"strings"

	"github.com/pagelens/pagelens/pkg/models"
)

// Sub-score weights. They sum to 1 so the overall score stays in [0,1].
const (
	weightURLStructure   = 0.25
	weightResponseFormat = 0.15
	weightTemplateType   = 0.35
	weightDomainGroup    = 0.25
)

// SimilarityScore breaks the overall score into its weighted sub-scores so
// rejections can explain themselves.
type SimilarityScore struct {
	URLStructure   float64 `json:"urlStructure"`
	ResponseFormat float64 `json:"responseFormat"`
	TemplateType   float64 `json:"templateType"`
	DomainGroup    float64 `json:"domainGroup"`
	Overall        float64 `json:"overall"`
}

// ComputeSimilarity scores how plausibly the source pattern would work on
// the target domain.
func ComputeSimilarity(source *models.LearnedPattern, sourceDomain, targetDomain string) SimilarityScore {
	sourceGroup, sourceGrouped := GroupForDomain(sourceDomain)
	targetGroup, targetGrouped := GroupForDomain(targetDomain)
	sameGroup := sourceGrouped && targetGrouped && sourceGroup.Name == targetGroup.Name

	var score SimilarityScore

	hasPath := patternHasPath(source)
	switch {
	case sameGroup && hasPath:
		score.URLStructure = 0.8
	case hasPath:
		score.URLStructure = 0.3
	}

	if source.ResponseFormat == models.FormatJSON {
		score.ResponseFormat = 0.8
	} else {
		score.ResponseFormat = 0.5
	}

	if targetGrouped && targetGroup.listsTemplate(source.TemplateType) {
		score.TemplateType = 1.0
	}

	switch {
	case sameGroup:
		score.DomainGroup = 1.0
	case sourceGrouped != targetGrouped:
		score.DomainGroup = 0.2
	}

	score.Overall = weightURLStructure*score.URLStructure +
		weightResponseFormat*score.ResponseFormat +
		weightTemplateType*score.TemplateType +
		weightDomainGroup*score.DomainGroup
	return score
}

// patternHasPath reports whether the pattern's URL predicate constrains
// anything beyond the host.
func patternHasPath(pattern *models.LearnedPattern) bool {
	for _, urlPattern := range pattern.URLPatterns {
		if path, ok := patternPath(urlPattern); ok && path != "" && path != "/" {
			return true
		}
	}
	return false
}

// patternPath returns the path portion of a URL regex: everything from the
// first unescaped slash after the scheme. The host portion of our patterns
// never contains a literal slash, so this split is unambiguous.
func patternPath(urlPattern string) (string, bool) {
	p := strings.TrimPrefix(urlPattern, "(?i)")
	p = strings.TrimPrefix(p, "^")
	for _, scheme := range []string{`https?://`, `https://`, `http://`} {
		if strings.HasPrefix(p, scheme) {
			p = strings.TrimPrefix(p, scheme)
			escaped := false
			for i, c := range p {
				if escaped {
					escaped = false
					continue
				}
				switch c {
				case '\\':
					escaped = true
				case '/':
					return p[i:], true
				}
			}
			return "", true
		}
	}
	return "", false
}

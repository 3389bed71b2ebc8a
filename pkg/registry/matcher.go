// Package registry owns all learned patterns: the pattern map, the domain
// and template-type indexes, bootstrap seeding, metric updates, listener
// fan-out, and the anti-pattern map the failure learner writes into.
package registry

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/models"
)

// MatchResult is one candidate produced by FindMatchingPatterns
type MatchResult struct {
	Pattern            *models.LearnedPattern `json:"pattern"`
	Confidence         float64                `json:"confidence"`
	ExtractedVariables map[string]string      `json:"extractedVariables"`
	APIEndpoint        string                 `json:"apiEndpoint"`
	MatchReason        string                 `json:"matchReason"`
}

// MatchPattern decides whether rawURL matches the pattern and, if so,
// extracts variables and fills the endpoint template. It is a pure function
// of its inputs and fails soft: any malformed regex, malformed URL, or
// missing capture yields "no match", never an error.
func MatchPattern(rawURL string, pattern *models.LearnedPattern) (*MatchResult, bool) {
	for _, urlPattern := range pattern.URLPatterns {
		re, err := compileCaseInsensitive(urlPattern)
		if err != nil {
			continue
		}
		if !re.MatchString(rawURL) {
			continue
		}

		variables, err := runExtractors(rawURL, pattern.Extractors)
		if err != nil {
			// An extractor failure disqualifies this URL pattern only.
			continue
		}

		endpoint := fillTemplate(pattern.EndpointTemplate, rawURL, variables)
		return &MatchResult{
			Pattern:            pattern,
			Confidence:         pattern.Metrics.Confidence,
			ExtractedVariables: variables,
			APIEndpoint:        endpoint,
			MatchReason:        "url pattern " + urlPattern,
		}, true
	}
	return nil, false
}

// runExtractors executes every extractor in order; any single failure aborts
func runExtractors(rawURL string, extractors []models.Extractor) (map[string]string, error) {
	variables := make(map[string]string, len(extractors))
	for _, ex := range extractors {
		value, err := extractVariable(rawURL, ex)
		if err != nil {
			return nil, err
		}
		variables[ex.Name] = value
	}
	return variables, nil
}

// extractVariable captures one named value from a URL component
func extractVariable(rawURL string, ex models.Extractor) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "invalid url")
	}

	var subject string
	switch ex.Source {
	case models.SourcePath:
		subject = u.Path
	case models.SourceQuery:
		subject = u.RawQuery
	case models.SourceSubdomain, models.SourceHostname:
		subject = u.Hostname()
	default:
		return "", errors.Errorf("unknown extractor source %q", ex.Source)
	}

	re, err := compileCaseInsensitive(ex.Pattern)
	if err != nil {
		return "", errors.Wrap(err, "invalid extractor pattern")
	}
	groups := re.FindStringSubmatch(subject)
	if groups == nil || ex.Group >= len(groups) {
		return "", errors.Errorf("extractor %q captured nothing from %q", ex.Name, subject)
	}

	return applyTransform(groups[ex.Group], ex.Transform), nil
}

func applyTransform(value string, transform models.ExtractorTransform) string {
	switch transform {
	case models.TransformLowercase:
		return strings.ToLower(value)
	case models.TransformUppercase:
		return strings.ToUpper(value)
	case models.TransformURLEncode:
		return url.QueryEscape(value)
	case models.TransformURLDecode:
		if decoded, err := url.QueryUnescape(value); err == nil {
			return decoded
		}
		return value
	default:
		return value
	}
}

// fillTemplate substitutes {name} placeholders; the literal {url} means the
// original URL unchanged. Repeated placeholders are all replaced.
func fillTemplate(template, rawURL string, variables map[string]string) string {
	result := strings.ReplaceAll(template, "{url}", rawURL)
	for name, value := range variables {
		result = strings.ReplaceAll(result, "{"+name+"}", value)
	}
	return result
}

// compileCaseInsensitive compiles an ECMAScript-compatible pattern with the
// case-insensitive flag. The subset used here (character classes, captures,
// alternation, anchors) behaves identically under RE2.
func compileCaseInsensitive(pattern string) (*regexp.Regexp, error) {
	if strings.HasPrefix(pattern, "(?i)") {
		return regexp.Compile(pattern)
	}
	return regexp.Compile("(?i)" + pattern)
}

// hostnameOf returns the lowercase hostname of rawURL, or "" when unparseable
func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

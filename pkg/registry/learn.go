package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pagelens/pagelens/pkg/models"
)

// ExtractionEvent describes one successful API-backed content extraction.
// The registry learns a new pattern from it, or reinforces an existing one.
type ExtractionEvent struct {
	SourceURL      string
	APIURL         string
	Method         string
	Strategy       string
	Domain         string
	ResponseTimeMs float64
	ResponseData   interface{}
	Title          string
	Description    string
	Body           string
}

// strategyTemplateTypes maps explicit extraction strategy names to template
// types; URL-shape heuristics run only when the strategy is not listed here.
var strategyTemplateTypes = map[string]models.TemplateType{
	"json-suffix":     models.TemplateJSONSuffix,
	"registry-lookup": models.TemplateRegistryLookup,
	"rest-resource":   models.TemplateRESTResource,
	"firebase-rest":   models.TemplateFirebaseREST,
	"query-api":       models.TemplateQueryAPI,
	"graphql":         models.TemplateGraphQL,
	"json-rpc":        models.TemplateJSONRPC,
	"websocket":       models.TemplateWebSocket,
	"server-action":   models.TemplateServerAction,
}

// LearnFromExtraction records a successful extraction. When a registered
// pattern already matches the source URL only its metrics move; otherwise a
// new pattern is inferred and learned. Calling this twice with the same event
// yields one pattern whose success count grows by one per call.
func (r *Registry) LearnFromExtraction(event ExtractionEvent) (*models.LearnedPattern, error) {
	domain := event.Domain
	if domain == "" {
		domain = hostnameOf(event.SourceURL)
	}

	if matches := r.FindMatchingPatterns(event.SourceURL); len(matches) > 0 {
		id := matches[0].Pattern.ID
		if err := r.UpdatePatternMetrics(id, true, domain, event.ResponseTimeMs, ""); err != nil {
			return nil, err
		}
		pattern, _ := r.GetPattern(id)
		return pattern, nil
	}

	pattern := r.inferPattern(event, domain)
	if err := r.LearnPattern(pattern); err != nil {
		return nil, err
	}
	if err := r.UpdatePatternMetrics(pattern.ID, true, domain, event.ResponseTimeMs, ""); err != nil {
		return nil, err
	}
	return pattern, nil
}

func (r *Registry) inferPattern(event ExtractionEvent, domain string) *models.LearnedPattern {
	method := event.Method
	if method == "" {
		method = "GET"
	}

	pattern := &models.LearnedPattern{
		TemplateType:     inferTemplateType(event.SourceURL, event.APIURL, event.Strategy),
		URLPatterns:      []string{DeriveURLPattern(event.SourceURL)},
		EndpointTemplate: event.APIURL,
		Method:           method,
		ResponseFormat:   models.FormatJSON,
		ContentMapping:   inferContentMapping(event),
		Metrics: models.PatternMetrics{
			Confidence: 0.5,
			Domains:    []string{domain},
		},
	}

	// A json-suffix endpoint generalizes to any URL on the site.
	if pattern.TemplateType == models.TemplateJSONSuffix {
		pattern.EndpointTemplate = "{url}.json"
	}
	return pattern
}

// inferTemplateType picks the template family: explicit strategy first, then
// URL-shape heuristics.
func inferTemplateType(sourceURL, apiURL, strategy string) models.TemplateType {
	if t, ok := strategyTemplateTypes[strategy]; ok {
		return t
	}

	if apiURL == sourceURL+".json" {
		return models.TemplateJSONSuffix
	}

	sourceHost := hostnameOf(sourceURL)
	apiHost := hostnameOf(apiURL)
	apiParsed, err := url.Parse(apiURL)
	if err != nil {
		return models.TemplateQueryAPI
	}

	if sourceHost != "" && apiHost != "" && sourceHost != apiHost {
		if strings.Contains(apiHost, "registry") || strings.Contains(apiParsed.Path, "/registry") {
			return models.TemplateRegistryLookup
		}
	}
	if sourceHost == apiHost && apiParsed.RawQuery != "" {
		if src, err := url.Parse(sourceURL); err == nil && src.RawQuery == "" {
			return models.TemplateQueryAPI
		}
	}
	if strings.HasPrefix(apiHost, "api.") || strings.Contains(apiParsed.Path, "/api/") {
		return models.TemplateRESTResource
	}
	return models.TemplateQueryAPI
}

var (
	numericSegment = regexp.MustCompile(`^\d+$`)
	uuidSegment    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// DeriveURLPattern builds a URL regex for the given URL: the host is escaped
// literally while numeric and UUID-looking path segments generalize to
// single-segment wildcards.
func DeriveURLPattern(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "^" + regexp.QuoteMeta(rawURL) + "$"
	}

	var b strings.Builder
	b.WriteString(`https?://`)
	b.WriteString(regexp.QuoteMeta(u.Hostname()))

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		b.WriteString("/")
		if numericSegment.MatchString(segment) || uuidSegment.MatchString(segment) {
			b.WriteString(`[^/]+`)
		} else {
			b.WriteString(regexp.QuoteMeta(segment))
		}
	}
	return b.String()
}

// inferContentMapping recovers JSON paths by locating the extracted values
// inside the structured response.
func inferContentMapping(event ExtractionEvent) models.ContentMapping {
	mapping := models.ContentMapping{}
	if event.ResponseData == nil {
		return mapping
	}
	if path, ok := findJSONPath(event.ResponseData, event.Title, ""); ok {
		mapping.Title = path
	}
	if path, ok := findJSONPath(event.ResponseData, event.Description, ""); ok {
		mapping.Description = path
	}
	if path, ok := findJSONPath(event.ResponseData, event.Body, ""); ok {
		mapping.Body = path
	}
	return mapping
}

// findJSONPath walks the decoded JSON value depth-first and returns the
// dot/bracket path of the first field whose string value equals the target
// (or starts with it, for long bodies the extractor may have truncated).
func findJSONPath(data interface{}, target, prefix string) (string, bool) {
	if target == "" {
		return "", false
	}
	switch v := data.(type) {
	case string:
		if valueMatches(v, target) {
			return prefix, prefix != ""
		}
	case float64:
		if strconv.FormatFloat(v, 'f', -1, 64) == target {
			return prefix, prefix != ""
		}
	case map[string]interface{}:
		for key, value := range v {
			childPrefix := key
			if prefix != "" {
				childPrefix = prefix + "." + key
			}
			if path, ok := findJSONPath(value, target, childPrefix); ok {
				return path, true
			}
		}
	case []interface{}:
		for i, value := range v {
			childPrefix := fmt.Sprintf("%s[%d]", prefix, i)
			if path, ok := findJSONPath(value, target, childPrefix); ok {
				return path, true
			}
		}
	}
	return "", false
}

func valueMatches(value, target string) bool {
	if value == target {
		return true
	}
	// Long content is often trimmed before it reaches the extraction event.
	return len(target) >= 80 && strings.HasPrefix(value, target)
}

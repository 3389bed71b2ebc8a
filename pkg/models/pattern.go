// Package models defines the entities shared by the learning core: learned
// API patterns, anti-patterns, form patterns, and the event surface. Entities
// are plain data; each is mutated only by its owning component.
package models

import (
	"encoding/json"
	"time"
)

// TemplateType identifies the family of API shape a pattern belongs to.
// The set is closed; dispatch on it is a switch, not polymorphism.
type TemplateType string

// Template types
const (
	TemplateJSONSuffix     TemplateType = "json-suffix"
	TemplateRegistryLookup TemplateType = "registry-lookup"
	TemplateRESTResource   TemplateType = "rest-resource"
	TemplateFirebaseREST   TemplateType = "firebase-rest"
	TemplateQueryAPI       TemplateType = "query-api"
	TemplateGraphQL        TemplateType = "graphql"
	TemplateJSONRPC        TemplateType = "json-rpc"
	TemplateWebSocket      TemplateType = "websocket"
	TemplateServerAction   TemplateType = "server-action"
)

// ID prefixes record pattern provenance
const (
	PrefixBootstrap    = "bootstrap:"
	PrefixLearned      = "learned:"
	PrefixTransfer     = "transfer:"
	PrefixOpenAPI      = "openapi:"
	PrefixGraphQL      = "graphql:"
	PrefixForm         = "form:"
	PrefixWebSocket    = "ws:"
	PrefixJSONRPC      = "json-rpc:"
	PrefixServerAction = "server-action:"
)

// ExtractorSource selects which URL component an extractor reads from
type ExtractorSource string

// Extractor sources
const (
	SourcePath      ExtractorSource = "path"
	SourceQuery     ExtractorSource = "query"
	SourceSubdomain ExtractorSource = "subdomain"
	SourceHostname  ExtractorSource = "hostname"
)

// ExtractorTransform is an optional post-processing step for a captured value
type ExtractorTransform string

// Extractor transforms
const (
	TransformLowercase ExtractorTransform = "lowercase"
	TransformUppercase ExtractorTransform = "uppercase"
	TransformURLEncode ExtractorTransform = "urlencode"
	TransformURLDecode ExtractorTransform = "urldecode"
)

// Extractor captures a named substring from a URL component. Pattern is an
// ECMAScript-compatible regular expression; Group is the capture group index
// whose value becomes the variable.
type Extractor struct {
	Name      string             `json:"name"`
	Source    ExtractorSource    `json:"source"`
	Pattern   string             `json:"pattern"`
	Group     int                `json:"group"`
	Transform ExtractorTransform `json:"transform,omitempty"`
}

// ResponseFormat describes the expected body format of the API endpoint
type ResponseFormat string

// Response formats
const (
	FormatJSON ResponseFormat = "json"
	FormatHTML ResponseFormat = "html"
	FormatXML  ResponseFormat = "xml"
)

// ContentMapping holds symbolic JSON paths (dot/bracket notation) selecting
// content fields from the API response.
type ContentMapping struct {
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Body        string            `json:"body,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validation describes minimal acceptance criteria for an API response
type Validation struct {
	RequiredFields []string `json:"requiredFields,omitempty"`
	MinBodyLength  int      `json:"minBodyLength,omitempty"`
}

// LearnedPattern is the central entity: one API shape, its URL predicate, its
// endpoint template, its extractors, its content mapping, and its metrics.
type LearnedPattern struct {
	ID               string            `json:"id"`
	TemplateType     TemplateType      `json:"templateType"`
	URLPatterns      []string          `json:"urlPatterns"`
	EndpointTemplate string            `json:"endpointTemplate"`
	Extractors       []Extractor       `json:"extractors,omitempty"`
	Method           string            `json:"method"`
	Headers          map[string]string `json:"headers,omitempty"`
	ResponseFormat   ResponseFormat    `json:"responseFormat"`
	ContentMapping   ContentMapping    `json:"contentMapping"`
	Validation       Validation        `json:"validation"`
	Metrics          PatternMetrics    `json:"metrics"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Clone produces a deep copy with JSON round-trip semantics. Transferred
// patterns must never share mutable substructure with their source.
func (p *LearnedPattern) Clone() (*LearnedPattern, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var clone LearnedPattern
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}

// IsBootstrap reports whether the pattern was pre-seeded for a canonical site
func (p *LearnedPattern) IsBootstrap() bool {
	return len(p.ID) > len(PrefixBootstrap) && p.ID[:len(PrefixBootstrap)] == PrefixBootstrap
}

package discovery

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpecFormat classifies a fetched documentation body
type SpecFormat string

// Spec formats
const (
	SpecOpenAPI3   SpecFormat = "openapi3"
	SpecOpenAPI2   SpecFormat = "openapi2"
	SpecAsyncAPI   SpecFormat = "asyncapi"
	SpecRAML       SpecFormat = "raml"
	SpecBlueprint  SpecFormat = "apiblueprint"
	SpecWADL       SpecFormat = "wadl"
	SpecGraphQLSDL SpecFormat = "graphql-sdl"
	SpecUnknown    SpecFormat = "unknown"
)

// DetectSpecFormat classifies a documentation body by structure first
// (JSON, then YAML), then by text markers.
func DetectSpecFormat(content []byte) SpecFormat {
	var structured map[string]interface{}
	if err := json.Unmarshal(content, &structured); err == nil {
		return detectStructuredFormat(structured)
	}
	if err := yaml.Unmarshal(content, &structured); err == nil && len(structured) > 0 {
		if format := detectStructuredFormat(structured); format != SpecUnknown {
			return format
		}
	}

	text := string(content)
	switch {
	case strings.HasPrefix(text, "#%RAML"):
		return SpecRAML
	case strings.Contains(text, "FORMAT: 1A"):
		return SpecBlueprint
	case strings.Contains(text, "<application") && strings.Contains(text, "wadl"):
		return SpecWADL
	case strings.Contains(text, "type Query") || strings.Contains(text, "schema {"):
		return SpecGraphQLSDL
	}
	return SpecUnknown
}

func detectStructuredFormat(data map[string]interface{}) SpecFormat {
	if version, ok := data["openapi"].(string); ok && strings.HasPrefix(version, "3.") {
		return SpecOpenAPI3
	}
	if version, ok := data["swagger"].(string); ok && version == "2.0" {
		return SpecOpenAPI2
	}
	if _, ok := data["asyncapi"]; ok {
		return SpecAsyncAPI
	}
	return SpecUnknown
}

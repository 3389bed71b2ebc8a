package forms

import (
	"encoding/json"
	"net/url"
	"strings"
	"unicode"

	"github.com/pagelens/pagelens/pkg/models"
)

// buildFieldMapping maps each form field name to the wire-body key that
// carried its value. Exact name first, then the camelCase and snake_case
// variants. Fields with no counterpart in the body are left unmapped.
func buildFieldMapping(fields []FormField, bodyKeys map[string]struct{}) map[string]string {
	mapping := make(map[string]string)
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		for _, variant := range nameVariants(field.Name) {
			if _, ok := bodyKeys[variant]; ok {
				mapping[field.Name] = variant
				break
			}
		}
	}
	return mapping
}

// nameVariants returns the name itself plus its camelCase and snake_case
// renderings, deduplicated, original first.
func nameVariants(name string) []string {
	variants := []string{name}
	for _, candidate := range []string{toCamelCase(name), toSnakeCase(name)} {
		if candidate == "" {
			continue
		}
		seen := false
		for _, v := range variants {
			if v == candidate {
				seen = true
				break
			}
		}
		if !seen {
			variants = append(variants, candidate)
		}
	}
	return variants
}

func toCamelCase(name string) string {
	parts := splitWords(name)
	if len(parts) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(parts[0]))
	for _, part := range parts[1:] {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(strings.ToLower(part[1:]))
	}
	return b.String()
}

func toSnakeCase(name string) string {
	parts := splitWords(name)
	if len(parts) == 0 {
		return name
	}
	for i, part := range parts {
		parts[i] = strings.ToLower(part)
	}
	return strings.Join(parts, "_")
}

// splitWords breaks a field name on underscores, hyphens, and lower-to-upper
// case boundaries.
func splitWords(name string) []string {
	var parts []string
	var current strings.Builder
	var prev rune
	for _, r := range name {
		switch {
		case r == '_' || r == '-':
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			parts = append(parts, current.String())
			current.Reset()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
		prev = r
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// bodyKeysFor extracts the candidate wire-field keys from a captured request
// body. GraphQL maps against variables, JSON-RPC against params, server
// actions exclude the _action discriminator.
func bodyKeysFor(info transportInfo, req CapturedRequest) map[string]struct{} {
	keys := make(map[string]struct{})

	switch info.Transport {
	case models.TransportGraphQL:
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.Unmarshal([]byte(req.PostData), &body); err == nil {
			for key := range body.Variables {
				keys[key] = struct{}{}
			}
		}
	case models.TransportJSONRPC:
		var body struct {
			Params map[string]interface{} `json:"params"`
		}
		if err := json.Unmarshal([]byte(req.PostData), &body); err == nil {
			for key := range body.Params {
				keys[key] = struct{}{}
			}
		}
	default:
		collectFlatBodyKeys(info, req, keys)
	}
	if info.Transport == models.TransportServerAction {
		delete(keys, "_action")
	}
	return keys
}

func collectFlatBodyKeys(info transportInfo, req CapturedRequest, keys map[string]struct{}) {
	if info.Encoding == models.EncodingJSON {
		var object map[string]interface{}
		if err := json.Unmarshal([]byte(req.PostData), &object); err == nil {
			for key := range object {
				keys[key] = struct{}{}
			}
			return
		}
	}
	if values, err := url.ParseQuery(req.PostData); err == nil {
		for key := range values {
			keys[key] = struct{}{}
		}
	}
}

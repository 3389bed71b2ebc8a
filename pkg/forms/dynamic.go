package forms

import (
	"regexp"
	"strings"

	"github.com/pagelens/pagelens/pkg/models"
)

var (
	uuidValueRe      = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	timestampValueRe = regexp.MustCompile(`^\d{10,13}$`)
)

// defaultCSRFSelector is where most frameworks surface the token
const defaultCSRFSelector = `meta[name="csrf-token"]`

// detectDynamicFields flags fields whose value must be produced fresh for
// every submission. A field is dynamic when its name indicates a well-known
// type, its value looks like a UUID or epoch timestamp, or its observed
// value differs across captures.
func detectDynamicFields(form *DetectedForm, captures ...map[string]string) []models.DynamicField {
	var dynamic []models.DynamicField
	seen := make(map[string]struct{})

	add := func(field models.DynamicField) {
		if _, ok := seen[field.Name]; ok {
			return
		}
		seen[field.Name] = struct{}{}
		dynamic = append(dynamic, field)
	}

	for _, field := range form.CSRFFields {
		add(models.DynamicField{
			Name:      field.Name,
			ValueType: models.DynamicCSRFToken,
			Strategy:  models.ExtractFromDOM,
			Selector:  csrfSelector(field),
		})
	}

	for _, field := range form.Fields {
		if field.Name == "" {
			continue
		}
		if valueType, ok := classifyFieldName(field.Name); ok {
			add(dynamicFieldFor(field, valueType))
			continue
		}
		if valueType, ok := classifyFieldValue(field.Value); ok {
			add(dynamicFieldFor(field, valueType))
			continue
		}
		if valueVaries(field.Name, captures) {
			add(models.DynamicField{
				Name:      field.Name,
				ValueType: models.DynamicCustom,
				Strategy:  models.ExtractFromDOM,
				Selector:  field.Selector,
			})
		}
	}
	return dynamic
}

func classifyFieldName(name string) (models.DynamicFieldType, bool) {
	lowered := strings.ToLower(name)
	switch {
	case strings.Contains(lowered, "csrf") || strings.Contains(lowered, "token") || strings.Contains(lowered, "authenticity"):
		return models.DynamicCSRFToken, true
	case strings.Contains(lowered, "nonce"):
		return models.DynamicNonce, true
	case strings.Contains(lowered, "session"):
		return models.DynamicSessionID, true
	case strings.Contains(lowered, "user"):
		return models.DynamicUserID, true
	}
	return "", false
}

func classifyFieldValue(value string) (models.DynamicFieldType, bool) {
	switch {
	case uuidValueRe.MatchString(value):
		return models.DynamicUUID, true
	case timestampValueRe.MatchString(value):
		return models.DynamicTimestamp, true
	}
	return "", false
}

// dynamicFieldFor pairs a value type with its extraction strategy: CSRF
// tokens come from the DOM, timestamps and UUIDs are computed fresh, user
// and session ids come from cookies, everything else is re-read from the
// field's own DOM node.
func dynamicFieldFor(field FormField, valueType models.DynamicFieldType) models.DynamicField {
	out := models.DynamicField{Name: field.Name, ValueType: valueType}
	switch valueType {
	case models.DynamicCSRFToken:
		out.Strategy = models.ExtractFromDOM
		out.Selector = csrfSelector(FormField{Selector: field.Selector})
	case models.DynamicTimestamp, models.DynamicUUID:
		out.Strategy = models.ExtractComputed
	case models.DynamicUserID, models.DynamicSessionID:
		out.Strategy = models.ExtractFromCookie
		out.Source = field.Name
	default:
		out.Strategy = models.ExtractFromDOM
		out.Selector = field.Selector
	}
	return out
}

func csrfSelector(field FormField) string {
	if field.Selector != "" {
		return field.Selector
	}
	return defaultCSRFSelector
}

// valueVaries reports whether a field's value differs across captures
func valueVaries(name string, captures []map[string]string) bool {
	values := make(map[string]struct{})
	for _, capture := range captures {
		if value, ok := capture[name]; ok {
			values[value] = struct{}{}
		}
	}
	return len(values) > 1
}

// csrfExtractorFor builds the pattern's CSRF recovery rule from the first
// CSRF candidate, if any.
func csrfExtractorFor(form *DetectedForm) *models.CSRFExtractor {
	if len(form.CSRFFields) == 0 {
		return nil
	}
	first := form.CSRFFields[0]
	return &models.CSRFExtractor{
		FieldName: first.Name,
		Selector:  csrfSelector(first),
	}
}

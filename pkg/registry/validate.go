package registry

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pagelens/pagelens/pkg/models"
)

// ValidateResponse checks an API response body against the pattern's
// validation rules: minimum body length plus required top-level JSON fields.
// Required fields are enforced through a generated JSON schema so nested
// responses and type quirks are handled uniformly.
func ValidateResponse(pattern *models.LearnedPattern, body []byte) error {
	if min := pattern.Validation.MinBodyLength; min > 0 && len(body) < min {
		return errors.Errorf("response body shorter than %d bytes", min)
	}
	if len(pattern.Validation.RequiredFields) == 0 {
		return nil
	}

	schema := map[string]interface{}{
		"type":     "object",
		"required": pattern.Validation.RequiredFields,
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return errors.Wrap(err, "failed to build validation schema")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return errors.Wrap(err, "response is not valid JSON")
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return errors.Errorf("response failed validation: %v", details)
	}
	return nil
}

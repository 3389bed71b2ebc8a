package forms

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/registry"
)

var mutationMethods = map[string]struct{}{
	"POST": {}, "PUT": {}, "PATCH": {}, "DELETE": {},
}

// AnalyzeCapture turns one browser-captured submission into a replayable
// form pattern. WebSocket traffic is considered first when present; the
// HTTP path picks the captured mutation request that best matches the
// form's fields, classifies its transport, and maps each field to its
// wire-body key.
func AnalyzeCapture(form *DetectedForm, capture *Capture, submitted map[string]string) (*models.FormPattern, error) {
	if form == nil || capture == nil {
		return nil, errors.New("form and capture are required")
	}

	if frame, score := bestSubmissionFrame(capture.Frames, form.Fields); frame != nil && score > 0 {
		return analyzeWebSocket(form, capture, frame), nil
	}

	request, ok := chooseMutationRequest(capture, form, submitted)
	if !ok {
		return nil, errors.New("capture contains no form submission request")
	}

	info := detectTransport(request, capture.PageURL)
	mapping := buildFieldMapping(form.Fields, bodyKeysFor(info, request))

	pattern := &models.FormPattern{
		LearnedPattern: basePattern(patternIDFor(info.Transport, request.URL), templateTypeFor(info.Transport), request.Method, capture.PageURL, request.URL),
		FormURL:        capture.PageURL,
		FormSelector:   form.Selector,
		SubmitURL:      request.URL,
		Transport:      info.Transport,
		Encoding:       info.Encoding,
		Framework:      info.Framework,
		ActionName:     info.ActionName,
		MutationName:   info.MutationName,
		RPCMethod:      info.RPCMethod,
		BodyTemplate:   bodyTemplateFor(info, request),
		FieldMapping:   mapping,
		FileFields:     form.FileFields,
		CSRF:           csrfExtractorFor(form),
		DynamicFields:  detectDynamicFields(form, submitted),
		Success:        successIndicatorsFor(request),
	}
	return pattern, nil
}

func analyzeWebSocket(form *DetectedForm, capture *Capture, frame *WebSocketFrame) *models.FormPattern {
	payload, event := parseFramePayload(frame.Payload)
	keys := make(map[string]struct{}, len(payload))
	for key := range payload {
		keys[key] = struct{}{}
	}

	return &models.FormPattern{
		LearnedPattern: basePattern(patternIDFor(models.TransportWebSocket, frame.URL), models.TemplateWebSocket, "GET", capture.PageURL, frame.URL),
		FormURL:        capture.PageURL,
		FormSelector:   form.Selector,
		SubmitURL:      frame.URL,
		Transport:      models.TransportWebSocket,
		Encoding:       models.EncodingJSON,
		WSProtocol:     inferWSProtocol(frame),
		WSEventName:    event,
		FieldMapping:   buildFieldMapping(form.Fields, keys),
		FileFields:     form.FileFields,
		CSRF:           csrfExtractorFor(form),
		DynamicFields:  detectDynamicFields(form),
		Success:        models.SuccessIndicators{},
	}
}

// chooseMutationRequest picks the captured request most likely to be the
// submission: among mutation-method requests, the one whose body mentions
// the most field names or submitted values.
func chooseMutationRequest(capture *Capture, form *DetectedForm, submitted map[string]string) (CapturedRequest, bool) {
	var best CapturedRequest
	bestScore := -1
	for _, request := range capture.Requests {
		if _, ok := mutationMethods[strings.ToUpper(request.Method)]; !ok {
			continue
		}
		score := 0
		for _, field := range form.Fields {
			if field.Name == "" {
				continue
			}
			for _, variant := range nameVariants(field.Name) {
				if strings.Contains(request.PostData, variant) {
					score++
					break
				}
			}
		}
		for _, value := range submitted {
			if value != "" && strings.Contains(request.PostData, value) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = request, score
		}
	}
	return best, bestScore >= 0
}

// bodyTemplateFor keeps the raw captured body when replay needs more than
// the field mapping can reconstruct, such as a GraphQL query document.
func bodyTemplateFor(info transportInfo, request CapturedRequest) string {
	if info.Transport == models.TransportGraphQL {
		return request.PostData
	}
	return ""
}

func successIndicatorsFor(request CapturedRequest) models.SuccessIndicators {
	indicators := models.SuccessIndicators{}
	if request.Status >= 200 && request.Status < 300 {
		indicators.StatusCodes = []int{request.Status}
	}
	var object map[string]interface{}
	if err := json.Unmarshal([]byte(request.ResponseBody), &object); err == nil {
		for _, key := range []string{"success", "ok", "id", "status"} {
			if _, present := object[key]; present {
				indicators.ResponseFields = append(indicators.ResponseFields, key)
			}
		}
	}
	return indicators
}

func basePattern(id string, templateType models.TemplateType, method, pageURL, submitURL string) models.LearnedPattern {
	pattern := models.LearnedPattern{
		ID:               id,
		TemplateType:     templateType,
		URLPatterns:      []string{registry.DeriveURLPattern(pageURL)},
		EndpointTemplate: submitURL,
		Method:           strings.ToUpper(method),
		ResponseFormat:   models.FormatJSON,
	}
	if domain := hostOf(submitURL); domain != "" {
		pattern.Metrics.Domains = []string{domain}
	}
	return pattern
}

func patternIDFor(transport models.FormTransport, submitURL string) string {
	prefix := models.PrefixForm
	switch transport {
	case models.TransportGraphQL:
		prefix = models.PrefixGraphQL
	case models.TransportJSONRPC:
		prefix = models.PrefixJSONRPC
	case models.TransportServerAction:
		prefix = models.PrefixServerAction
	case models.TransportWebSocket:
		prefix = models.PrefixWebSocket
	}
	host := hostOf(submitURL)
	if host == "" {
		host = "unknown"
	}
	return prefix + host + ":" + uuid.NewString()
}

func templateTypeFor(transport models.FormTransport) models.TemplateType {
	switch transport {
	case models.TransportGraphQL:
		return models.TemplateGraphQL
	case models.TransportJSONRPC:
		return models.TemplateJSONRPC
	case models.TransportServerAction:
		return models.TemplateServerAction
	case models.TransportWebSocket:
		return models.TemplateWebSocket
	default:
		return models.TemplateRESTResource
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

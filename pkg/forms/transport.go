package forms

import (
	"encoding/json"
	"mime"
	"net/url"
	"regexp"
	"strings"

	"github.com/pagelens/pagelens/pkg/models"
)

// transportInfo is the result of classifying one captured mutation request
type transportInfo struct {
	Transport    models.FormTransport
	Encoding     models.FormEncoding
	Framework    models.ServerActionFramework
	ActionName   string
	MutationName string
	RPCMethod    string
}

var mutationNameRe = regexp.MustCompile(`mutation\s+(\w+)`)

// detectTransport classifies a captured request. Checks run in a fixed
// order: server actions first (their URLs look like ordinary page routes),
// then GraphQL, then JSON-RPC, with REST as the catch-all.
func detectTransport(req CapturedRequest, pageURL string) transportInfo {
	contentType := headerValue(req.Headers, "Content-Type")
	encoding := encodingFromContentType(contentType)

	if info, ok := detectServerAction(req, pageURL, contentType); ok {
		return info
	}
	if info, ok := detectGraphQL(req, contentType); ok {
		return info
	}
	if info, ok := detectJSONRPC(req, contentType); ok {
		return info
	}
	return transportInfo{Transport: models.TransportREST, Encoding: encoding}
}

func detectServerAction(req CapturedRequest, pageURL, contentType string) (transportInfo, bool) {
	if !strings.EqualFold(req.Method, "POST") {
		return transportInfo{}, false
	}
	if action := headerValue(req.Headers, "Next-Action"); action != "" {
		return transportInfo{
			Transport:  models.TransportServerAction,
			Encoding:   encodingFromContentType(contentType),
			Framework:  models.FrameworkNextJS,
			ActionName: action,
		}, true
	}
	if !sameRoute(req.URL, pageURL) {
		return transportInfo{}, false
	}
	if values, err := url.ParseQuery(req.PostData); err == nil {
		if action := values.Get("_action"); action != "" {
			return transportInfo{
				Transport:  models.TransportServerAction,
				Encoding:   models.EncodingURLEncoded,
				Framework:  models.FrameworkRemix,
				ActionName: action,
			}, true
		}
	}
	// Same-route POST with a form content type is a Remix action by
	// convention even without an _action discriminator.
	if isFormContentType(contentType) {
		return transportInfo{
			Transport: models.TransportServerAction,
			Encoding:  encodingFromContentType(contentType),
			Framework: models.FrameworkRemix,
		}, true
	}
	return transportInfo{}, false
}

func detectGraphQL(req CapturedRequest, contentType string) (transportInfo, bool) {
	if !strings.EqualFold(req.Method, "POST") {
		return transportInfo{}, false
	}
	lowered := strings.ToLower(req.URL)
	if !strings.Contains(lowered, "graphql") && !strings.Contains(lowered, "gql") && !strings.Contains(lowered, "query") {
		return transportInfo{}, false
	}
	var body struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(req.PostData), &body); err != nil {
		return transportInfo{}, false
	}
	if !strings.HasPrefix(strings.TrimSpace(body.Query), "mutation") {
		return transportInfo{}, false
	}
	info := transportInfo{Transport: models.TransportGraphQL, Encoding: models.EncodingJSON}
	if m := mutationNameRe.FindStringSubmatch(body.Query); m != nil {
		info.MutationName = m[1]
	}
	return info, true
}

func detectJSONRPC(req CapturedRequest, contentType string) (transportInfo, bool) {
	if !strings.EqualFold(req.Method, "POST") || !strings.Contains(strings.ToLower(contentType), "json") {
		return transportInfo{}, false
	}
	var body struct {
		JSONRPC string      `json:"jsonrpc"`
		Method  interface{} `json:"method"`
	}
	if err := json.Unmarshal([]byte(req.PostData), &body); err != nil {
		return transportInfo{}, false
	}
	method, ok := body.Method.(string)
	if !ok || method == "" {
		return transportInfo{}, false
	}
	if body.JSONRPC != "" && body.JSONRPC != "2.0" {
		return transportInfo{}, false
	}
	return transportInfo{
		Transport: models.TransportJSONRPC,
		Encoding:  models.EncodingJSON,
		RPCMethod: method,
	}, true
}

// sameRoute reports whether both URLs point at the same host and path
func sameRoute(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return ua.Host == ub.Host && strings.TrimSuffix(ua.Path, "/") == strings.TrimSuffix(ub.Path, "/")
}

func encodingFromContentType(contentType string) models.FormEncoding {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.Contains(mediaType, "json"):
		return models.EncodingJSON
	case strings.Contains(mediaType, "multipart"):
		return models.EncodingMultipart
	default:
		return models.EncodingURLEncoded
	}
}

func isFormContentType(contentType string) bool {
	lowered := strings.ToLower(contentType)
	return strings.Contains(lowered, "x-www-form-urlencoded") || strings.Contains(lowered, "multipart/form-data")
}

// headerValue does a case-insensitive header lookup on a captured map
func headerValue(headers map[string]string, name string) string {
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

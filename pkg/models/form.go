package models

import "time"

// FormTransport classifies how a form submission travels on the wire
type FormTransport string

// Form transports
const (
	TransportREST         FormTransport = "rest"
	TransportGraphQL      FormTransport = "graphql"
	TransportJSONRPC      FormTransport = "json-rpc"
	TransportServerAction FormTransport = "server-action"
	TransportWebSocket    FormTransport = "websocket"
)

// FormEncoding is the request body encoding for HTTP transports
type FormEncoding string

// Form encodings
const (
	EncodingURLEncoded FormEncoding = "application/x-www-form-urlencoded"
	EncodingMultipart  FormEncoding = "multipart/form-data"
	EncodingJSON       FormEncoding = "application/json"
)

// ServerActionFramework distinguishes the two server-action dialects
type ServerActionFramework string

// Server action frameworks
const (
	FrameworkNextJS ServerActionFramework = "nextjs"
	FrameworkRemix  ServerActionFramework = "remix"
)

// FileField describes a file input on the form
type FileField struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
	Accept   string `json:"accept,omitempty"`
	Multiple bool   `json:"multiple,omitempty"`
}

// CSRFExtractor records where the CSRF token can be recovered before submit
type CSRFExtractor struct {
	FieldName string `json:"fieldName"`
	Selector  string `json:"selector"`
}

// DynamicFieldType names the well-known kinds of per-submission values
type DynamicFieldType string

// Dynamic field value types
const (
	DynamicUserID    DynamicFieldType = "user_id"
	DynamicSessionID DynamicFieldType = "session_id"
	DynamicNonce     DynamicFieldType = "nonce"
	DynamicTimestamp DynamicFieldType = "timestamp"
	DynamicUUID      DynamicFieldType = "uuid"
	DynamicCSRFToken DynamicFieldType = "csrf_token"
	DynamicCustom    DynamicFieldType = "custom"
)

// ExtractionStrategy names how a dynamic field value is obtained
type ExtractionStrategy string

// Extraction strategies
const (
	ExtractFromDOM          ExtractionStrategy = "dom"
	ExtractFromAPI          ExtractionStrategy = "api"
	ExtractFromCookie       ExtractionStrategy = "cookie"
	ExtractFromURLParam     ExtractionStrategy = "url_param"
	ExtractFromLocalStorage ExtractionStrategy = "localStorage"
	ExtractComputed         ExtractionStrategy = "computed"
)

// DynamicField is a form field whose value must be fetched or computed per
// submission rather than replayed from the capture.
type DynamicField struct {
	Name      string             `json:"name"`
	ValueType DynamicFieldType   `json:"valueType"`
	Strategy  ExtractionStrategy `json:"strategy"`
	Selector  string             `json:"selector,omitempty"`
	Source    string             `json:"source,omitempty"`
}

// OTPKind distinguishes verification channels
type OTPKind string

// OTP kinds
const (
	OTPEmail         OTPKind = "email"
	OTPSMS           OTPKind = "sms"
	OTPAuthenticator OTPKind = "authenticator"
	OTPUnknownKind   OTPKind = "unknown"
)

// OTPPattern records how a verification challenge is detected and answered
type OTPPattern struct {
	Indicators           []string `json:"indicators"`
	VerificationEndpoint string   `json:"verificationEndpoint"`
	CodeFieldName        string   `json:"codeFieldName"`
	Method               string   `json:"method"`
	Kind                 OTPKind  `json:"kind"`
}

// OTPChallenge is raised to the caller when a submission requires a code
type OTPChallenge struct {
	Kind                 OTPKind `json:"kind"`
	Message              string  `json:"message,omitempty"`
	VerificationEndpoint string  `json:"verificationEndpoint"`
	CodeFieldName        string  `json:"codeFieldName"`
}

// SuccessIndicators describe what a successful submission response looks like
type SuccessIndicators struct {
	StatusCodes    []int    `json:"statusCodes,omitempty"`
	ResponseFields []string `json:"responseFields,omitempty"`
}

// FormPattern extends a learned pattern with everything needed to replay a
// form submission without the browser.
type FormPattern struct {
	LearnedPattern

	FormURL       string                `json:"formUrl"`
	FormSelector  string                `json:"formSelector,omitempty"`
	SubmitURL     string                `json:"submitUrl"`
	Transport     FormTransport         `json:"transport"`
	Encoding      FormEncoding          `json:"encoding"`
	Framework     ServerActionFramework `json:"framework,omitempty"`
	ActionName    string                `json:"actionName,omitempty"`
	MutationName  string                `json:"mutationName,omitempty"`
	BodyTemplate  string                `json:"bodyTemplate,omitempty"`
	RPCMethod     string                `json:"rpcMethod,omitempty"`
	WSProtocol    string                `json:"wsProtocol,omitempty"`
	WSEventName   string                `json:"wsEventName,omitempty"`
	FieldMapping  map[string]string     `json:"fieldMapping"`
	FileFields    []FileField           `json:"fileFields,omitempty"`
	CSRF          *CSRFExtractor        `json:"csrf,omitempty"`
	DynamicFields []DynamicField        `json:"dynamicFields,omitempty"`
	OTP           *OTPPattern           `json:"otp,omitempty"`
	Success       SuccessIndicators     `json:"successIndicators"`
}

// RateLimitInfo tracks observed rate-limit state for one domain
type RateLimitInfo struct {
	Limit             int       `json:"limit,omitempty"`
	Remaining         int       `json:"remaining,omitempty"`
	ResetAt           time.Time `json:"resetAt,omitempty"`
	RetryAfterSeconds int       `json:"retryAfterSeconds,omitempty"`
	LastRateLimitTime time.Time `json:"lastRateLimitTime,omitempty"`
	RateLimitCount    int       `json:"rateLimitCount"`
}

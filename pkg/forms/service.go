package forms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/pagelens/pagelens/pkg/config"
	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/observability"
	"github.com/pagelens/pagelens/pkg/registry"
	"github.com/pagelens/pagelens/pkg/webclient"
)

// Submission methods reported in results
const (
	MethodAPI     = "api"
	MethodBrowser = "browser"
)

// Sentinel errors. Both are terminal for a submission attempt: neither can
// be cured by falling back to the browser.
var (
	ErrRateLimited  = errors.New("rate limited")
	ErrMissingFiles = errors.New("missing required file uploads")
)

// OTPPrompt asks the caller for a verification code
type OTPPrompt func(ctx context.Context, challenge *models.OTPChallenge) (string, error)

// SubmitOptions identifies the form and carries optional collaborators for
// one submission.
type SubmitOptions struct {
	FormURL   string
	Selector  string
	Files     map[string][]byte
	OTPPrompt OTPPrompt
}

// SubmitResult reports how a submission went and what was learned
type SubmitResult struct {
	Success      bool                   `json:"success"`
	Method       string                 `json:"method"`
	ResponseURL  string                 `json:"responseUrl,omitempty"`
	ResponseData map[string]interface{} `json:"responseData,omitempty"`
	Duration     time.Duration          `json:"duration"`
	Learned      bool                   `json:"learned"`
	Error        string                 `json:"error,omitempty"`
	OTPRequired  bool                   `json:"otpRequired,omitempty"`
	OTPChallenge *models.OTPChallenge   `json:"otpChallenge,omitempty"`
}

// Service learns and replays form submissions. Known patterns submit
// directly over HTTP or WebSocket; unknown forms fall back to a
// browser-driven capture that is analyzed into a new pattern.
type Service struct {
	cfg      config.FormsConfig
	registry *registry.Registry
	fetcher  webclient.Fetcher
	driver   BrowserDriver
	dialer   WSDialer
	limits   *rateLimitTable
	logger   observability.Logger
	metrics  observability.MetricsClient

	mu       sync.Mutex
	patterns map[string]*models.FormPattern
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewService wires the learner. driver may be nil when browser fallback is
// unavailable; dialer may be nil when no WebSocket patterns are expected.
func NewService(cfg config.FormsConfig, reg *registry.Registry, fetcher webclient.Fetcher, driver BrowserDriver, dialer WSDialer, logger observability.Logger, metrics observability.MetricsClient) *Service {
	return &Service{
		cfg:      cfg,
		registry: reg,
		fetcher:  fetcher,
		driver:   driver,
		dialer:   dialer,
		limits:   newRateLimitTable(),
		logger:   logger.WithPrefix("forms"),
		metrics:  metrics,
		patterns: make(map[string]*models.FormPattern),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func formKey(formURL, selector string) string {
	return formURL + "|" + selector
}

// RegisterPattern stores a form pattern and registers its API shape with
// the pattern registry.
func (s *Service) RegisterPattern(pattern *models.FormPattern) error {
	s.mu.Lock()
	s.patterns[formKey(pattern.FormURL, pattern.FormSelector)] = pattern
	s.mu.Unlock()

	if err := s.registry.LearnPattern(&pattern.LearnedPattern); err != nil {
		return errors.Wrap(err, "failed to register form pattern")
	}
	return nil
}

// PatternFor returns the stored pattern for a form, if any
func (s *Service) PatternFor(formURL, selector string) (*models.FormPattern, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pattern, ok := s.patterns[formKey(formURL, selector)]
	return pattern, ok
}

// SubmitForm submits data to the form at (FormURL, Selector). A known
// pattern is tried directly first; on miss or on a response that fails the
// pattern's success indicators, the browser fallback captures and learns.
func (s *Service) SubmitForm(ctx context.Context, data map[string]string, opts SubmitOptions) (*SubmitResult, error) {
	started := time.Now()

	pattern, known := s.PatternFor(opts.FormURL, opts.Selector)
	if known {
		result, err := s.submitDirect(ctx, pattern, data, opts)
		if err == nil && (result.Success || result.OTPRequired) {
			result.Duration = time.Since(started)
			return result, nil
		}
		if err != nil {
			if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrMissingFiles) {
				return &SubmitResult{
					Method:   MethodAPI,
					Duration: time.Since(started),
					Error:    err.Error(),
				}, err
			}
			s.logger.Warn("Direct submission failed, falling back to browser", map[string]interface{}{
				"formUrl": opts.FormURL,
				"error":   err.Error(),
			})
		}
	}

	result, err := s.submitViaBrowser(ctx, data, opts)
	if result != nil {
		result.Duration = time.Since(started)
	}
	return result, err
}

func (s *Service) submitDirect(ctx context.Context, pattern *models.FormPattern, data map[string]string, opts SubmitOptions) (*SubmitResult, error) {
	if err := checkFileFields(pattern, opts.Files); err != nil {
		return nil, err
	}

	domain := hostOf(pattern.SubmitURL)
	if wait := s.limits.Wait(domain); wait > 0 {
		return nil, errors.Wrapf(ErrRateLimited, "domain %s blocked, retry after %s", domain, wait.Round(time.Second))
	}

	if pattern.Transport == models.TransportWebSocket {
		return s.submitWebSocket(ctx, pattern, data)
	}

	body, headers, err := buildRequestBody(pattern, data, opts.Files)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := s.fetch(ctx, domain, pattern.SubmitURL, webclient.RequestOptions{
		Method:  pattern.Method,
		Headers: headers,
		Body:    body,
		Timeout: s.cfg.SubmitTimeout,
	})
	elapsed := time.Since(started)
	if err != nil {
		s.recordOutcome(pattern, domain, false, elapsed, err.Error())
		return nil, err
	}

	info := s.limits.Observe(domain, resp.Status, resp.Headers)
	if resp.Status == 429 {
		s.recordOutcome(pattern, domain, false, elapsed, "rate limited")
		return nil, errors.Wrapf(ErrRateLimited, "domain %s, retry after %ds", domain, info.RetryAfterSeconds)
	}

	if challenge, ok := detectOTP(resp.Status, resp.Bytes()); ok {
		return s.handleOTP(ctx, pattern, challenge, opts)
	}

	if !meetsSuccessIndicators(pattern.Success, resp) {
		s.recordOutcome(pattern, domain, false, elapsed, fmt.Sprintf("unexpected response status %d", resp.Status))
		return &SubmitResult{Method: MethodAPI, Error: fmt.Sprintf("response did not satisfy success indicators (status %d)", resp.Status)}, nil
	}

	s.recordOutcome(pattern, domain, true, elapsed, "")
	s.metrics.IncrementCounter("form_submissions", map[string]string{"method": MethodAPI, "transport": string(pattern.Transport)})

	result := &SubmitResult{
		Success:     true,
		Method:      MethodAPI,
		ResponseURL: pattern.SubmitURL,
	}
	var responseData map[string]interface{}
	if err := resp.JSON(&responseData); err == nil {
		result.ResponseData = responseData
	}
	return result, nil
}

// fetch routes the HTTP call through the domain's circuit breaker
func (s *Service) fetch(ctx context.Context, domain, submitURL string, opts webclient.RequestOptions) (*webclient.Response, error) {
	breaker := s.breakerFor(domain)
	out, err := breaker.Execute(func() (interface{}, error) {
		return s.fetcher.Fetch(ctx, submitURL, opts)
	})
	if err != nil {
		return nil, err
	}
	return out.(*webclient.Response), nil
}

func (s *Service) breakerFor(domain string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	breaker, ok := s.breakers[domain]
	if !ok {
		breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "form-submit:" + domain,
			Timeout: s.cfg.MaxBackoff,
		})
		s.breakers[domain] = breaker
	}
	return breaker
}

func (s *Service) submitWebSocket(ctx context.Context, pattern *models.FormPattern, data map[string]string) (*SubmitResult, error) {
	if s.dialer == nil {
		return nil, errors.New("no websocket dialer configured")
	}
	payload, err := buildWSPayload(pattern, data)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	reply, err := s.dialer.SendFrame(ctx, pattern.SubmitURL, payload)
	elapsed := time.Since(started)
	domain := hostOf(pattern.SubmitURL)
	if err != nil {
		s.recordOutcome(pattern, domain, false, elapsed, err.Error())
		return nil, err
	}

	s.recordOutcome(pattern, domain, true, elapsed, "")
	result := &SubmitResult{Success: true, Method: MethodAPI, ResponseURL: pattern.SubmitURL}
	var responseData map[string]interface{}
	if json.Unmarshal(reply, &responseData) == nil {
		result.ResponseData = responseData
	}
	return result, nil
}

func (s *Service) handleOTP(ctx context.Context, pattern *models.FormPattern, challenge *models.OTPChallenge, opts SubmitOptions) (*SubmitResult, error) {
	if challenge.VerificationEndpoint == "" {
		challenge.VerificationEndpoint = pattern.SubmitURL
	}
	if pattern.OTP == nil {
		pattern.OTP = otpPatternFrom(challenge, pattern.SubmitURL)
	}

	if opts.OTPPrompt == nil {
		return &SubmitResult{
			Method:       MethodAPI,
			OTPRequired:  true,
			OTPChallenge: challenge,
			Error:        "submission requires a verification code and no OTP prompt is configured",
		}, nil
	}

	code, err := opts.OTPPrompt(ctx, challenge)
	if err != nil {
		return nil, errors.Wrap(err, "otp prompt failed")
	}
	return s.submitOTPCode(ctx, pattern, challenge, code)
}

func (s *Service) submitOTPCode(ctx context.Context, pattern *models.FormPattern, challenge *models.OTPChallenge, code string) (*SubmitResult, error) {
	body, err := json.Marshal(map[string]string{challenge.CodeFieldName: code})
	if err != nil {
		return nil, err
	}
	resp, err := s.fetch(ctx, hostOf(challenge.VerificationEndpoint), challenge.VerificationEndpoint, webclient.RequestOptions{
		Method:  "POST",
		Headers: map[string]string{"Content-Type": string(models.EncodingJSON)},
		Body:    body,
		Timeout: s.cfg.SubmitTimeout,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return &SubmitResult{Method: MethodAPI, Error: fmt.Sprintf("verification code rejected (status %d)", resp.Status)}, nil
	}
	result := &SubmitResult{Success: true, Method: MethodAPI, ResponseURL: challenge.VerificationEndpoint}
	var responseData map[string]interface{}
	if resp.JSON(&responseData) == nil {
		result.ResponseData = responseData
	}
	return result, nil
}

func (s *Service) submitViaBrowser(ctx context.Context, data map[string]string, opts SubmitOptions) (*SubmitResult, error) {
	if s.driver == nil {
		return &SubmitResult{Method: MethodBrowser, Error: "no browser driver configured"},
			errors.New("browser fallback unavailable, no driver configured")
	}

	if err := s.driver.Navigate(ctx, opts.FormURL); err != nil {
		return nil, errors.Wrap(err, "navigation failed")
	}
	form, err := s.driver.DetectForm(ctx, opts.Selector)
	if err != nil {
		return nil, errors.Wrap(err, "form detection failed")
	}
	if err := s.driver.StartCapture(ctx); err != nil {
		return nil, errors.Wrap(err, "capture start failed")
	}

	for _, field := range form.Fields {
		value, ok := data[field.Name]
		if !ok {
			continue
		}
		if err := s.driver.Fill(ctx, field.Selector, value); err != nil {
			return nil, errors.Wrapf(err, "failed to fill field %s", field.Name)
		}
	}
	if err := s.driver.Click(ctx, form.SubmitSelector); err != nil {
		return nil, errors.Wrap(err, "submit click failed")
	}
	if err := s.driver.WaitForNavigation(ctx); err != nil {
		s.logger.Debug("Navigation wait ended with error", map[string]interface{}{"error": err.Error()})
	}

	capture, err := s.driver.StopCapture(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "capture stop failed")
	}
	if capture.PageURL == "" {
		capture.PageURL = opts.FormURL
	}

	pattern, err := AnalyzeCapture(form, capture, data)
	if err != nil {
		return &SubmitResult{Method: MethodBrowser, Error: err.Error()}, err
	}
	if err := s.RegisterPattern(pattern); err != nil {
		s.logger.Warn("Failed to register learned form pattern", map[string]interface{}{
			"patternId": pattern.ID,
			"error":     err.Error(),
		})
	}

	s.logger.Info("Learned form pattern from browser capture", map[string]interface{}{
		"patternId": pattern.ID,
		"transport": string(pattern.Transport),
		"formUrl":   pattern.FormURL,
	})
	s.metrics.IncrementCounter("form_submissions", map[string]string{"method": MethodBrowser, "transport": string(pattern.Transport)})

	return &SubmitResult{
		Success: true,
		Method:  MethodBrowser,
		Learned: true,
	}, nil
}

func (s *Service) recordOutcome(pattern *models.FormPattern, domain string, success bool, elapsed time.Duration, reason string) {
	err := s.registry.UpdatePatternMetrics(pattern.ID, success, domain, float64(elapsed.Milliseconds()), reason)
	if err != nil && !errors.Is(err, registry.ErrPatternNotFound) {
		s.logger.Warn("Failed to record form outcome", map[string]interface{}{
			"patternId": pattern.ID,
			"error":     err.Error(),
		})
	}
}

// checkFileFields rejects a submission that omits files a pattern requires
func checkFileFields(pattern *models.FormPattern, files map[string][]byte) error {
	var missing []string
	for _, field := range pattern.FileFields {
		if _, ok := files[field.Name]; !ok {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrMissingFiles, "form requires file uploads for %s but the submission includes none", strings.Join(missing, ", "))
	}
	return nil
}

// mappedValues renames form fields to their wire keys. Unmapped fields keep
// their own name.
func mappedValues(pattern *models.FormPattern, data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for name, value := range data {
		key := name
		if mapped, ok := pattern.FieldMapping[name]; ok && mapped != "" {
			key = mapped
		}
		out[key] = value
	}
	return out
}

// buildRequestBody constructs the wire body and headers for one direct
// submission according to the pattern's transport and encoding.
func buildRequestBody(pattern *models.FormPattern, data map[string]string, files map[string][]byte) ([]byte, map[string]string, error) {
	mapped := mappedValues(pattern, data)

	switch pattern.Transport {
	case models.TransportGraphQL:
		return buildGraphQLBody(pattern, mapped)
	case models.TransportJSONRPC:
		return buildJSONRPCBody(pattern, mapped)
	case models.TransportServerAction:
		return buildServerActionBody(pattern, mapped)
	default:
		return buildRESTBody(pattern, mapped, files)
	}
}

func buildRESTBody(pattern *models.FormPattern, mapped map[string]string, files map[string][]byte) ([]byte, map[string]string, error) {
	switch pattern.Encoding {
	case models.EncodingJSON:
		body, err := json.Marshal(mapped)
		if err != nil {
			return nil, nil, err
		}
		return body, map[string]string{"Content-Type": string(models.EncodingJSON)}, nil

	case models.EncodingMultipart:
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		for key, value := range mapped {
			if err := writer.WriteField(key, value); err != nil {
				return nil, nil, err
			}
		}
		for _, field := range pattern.FileFields {
			part, err := writer.CreateFormFile(field.Name, field.Name)
			if err != nil {
				return nil, nil, err
			}
			if _, err := part.Write(files[field.Name]); err != nil {
				return nil, nil, err
			}
		}
		if err := writer.Close(); err != nil {
			return nil, nil, err
		}
		return buf.Bytes(), map[string]string{"Content-Type": writer.FormDataContentType()}, nil

	default:
		values := url.Values{}
		for key, value := range mapped {
			values.Set(key, value)
		}
		return []byte(values.Encode()), map[string]string{"Content-Type": string(models.EncodingURLEncoded)}, nil
	}
}

func buildGraphQLBody(pattern *models.FormPattern, mapped map[string]string) ([]byte, map[string]string, error) {
	var template struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(pattern.BodyTemplate), &template); err != nil || template.Query == "" {
		return nil, nil, errors.New("pattern has no stored GraphQL query")
	}
	variables := make(map[string]interface{}, len(mapped))
	for key, value := range mapped {
		variables[key] = value
	}
	body, err := json.Marshal(map[string]interface{}{
		"query":     template.Query,
		"variables": variables,
	})
	if err != nil {
		return nil, nil, err
	}
	return body, map[string]string{"Content-Type": string(models.EncodingJSON)}, nil
}

func buildJSONRPCBody(pattern *models.FormPattern, mapped map[string]string) ([]byte, map[string]string, error) {
	params := make(map[string]interface{}, len(mapped))
	for key, value := range mapped {
		params[key] = value
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  pattern.RPCMethod,
		"params":  params,
		"id":      1,
	})
	if err != nil {
		return nil, nil, err
	}
	return body, map[string]string{"Content-Type": string(models.EncodingJSON)}, nil
}

func buildServerActionBody(pattern *models.FormPattern, mapped map[string]string) ([]byte, map[string]string, error) {
	if pattern.Framework == models.FrameworkNextJS {
		body, err := json.Marshal(mapped)
		if err != nil {
			return nil, nil, err
		}
		return body, map[string]string{
			"Content-Type": string(models.EncodingJSON),
			"Next-Action":  pattern.ActionName,
		}, nil
	}

	values := url.Values{}
	if pattern.ActionName != "" {
		values.Set("_action", pattern.ActionName)
	}
	for key, value := range mapped {
		values.Set(key, value)
	}
	return []byte(values.Encode()), map[string]string{"Content-Type": string(models.EncodingURLEncoded)}, nil
}

func buildWSPayload(pattern *models.FormPattern, data map[string]string) ([]byte, error) {
	mapped := mappedValues(pattern, data)
	payload := make(map[string]interface{}, len(mapped))
	for key, value := range mapped {
		payload[key] = value
	}

	if pattern.WSProtocol == WSProtocolSocketIO {
		event := pattern.WSEventName
		if event == "" {
			event = "message"
		}
		frame, err := json.Marshal([]interface{}{event, payload})
		if err != nil {
			return nil, err
		}
		return append([]byte("42"), frame...), nil
	}
	return json.Marshal(payload)
}

// meetsSuccessIndicators checks a response against a pattern's declared
// success shape. With no declared status codes any 2xx passes; declared
// response fields must all be present in the JSON body.
func meetsSuccessIndicators(indicators models.SuccessIndicators, resp *webclient.Response) bool {
	if len(indicators.StatusCodes) == 0 {
		if resp.Status < 200 || resp.Status >= 300 {
			return false
		}
	} else {
		matched := false
		for _, code := range indicators.StatusCodes {
			if resp.Status == code {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(indicators.ResponseFields) == 0 {
		return true
	}
	var object map[string]interface{}
	if err := resp.JSON(&object); err != nil {
		return false
	}
	for _, field := range indicators.ResponseFields {
		if _, ok := object[field]; !ok {
			return false
		}
	}
	return true
}

package forms

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/pkg/config"
	"github.com/pagelens/pagelens/pkg/models"
	"github.com/pagelens/pagelens/pkg/observability"
	"github.com/pagelens/pagelens/pkg/registry"
	"github.com/pagelens/pagelens/pkg/store"
	"github.com/pagelens/pagelens/pkg/webclient"
)

type fetchCall struct {
	URL  string
	Opts webclient.RequestOptions
}

type fakeFetcher struct {
	responses map[string]*webclient.Response
	calls     []fetchCall
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, opts webclient.RequestOptions) (*webclient.Response, error) {
	f.calls = append(f.calls, fetchCall{URL: url, Opts: opts})
	if resp, ok := f.responses[url]; ok {
		return resp, nil
	}
	return webclient.NewResponse(404, http.Header{}, nil), nil
}

type fakeDriver struct {
	form    *DetectedForm
	capture *Capture
	filled  map[string]string
}

func (d *fakeDriver) Navigate(context.Context, string) error { return nil }
func (d *fakeDriver) DetectForm(context.Context, string) (*DetectedForm, error) {
	return d.form, nil
}
func (d *fakeDriver) Fill(_ context.Context, selector, value string) error {
	if d.filled == nil {
		d.filled = make(map[string]string)
	}
	d.filled[selector] = value
	return nil
}
func (d *fakeDriver) Click(context.Context, string) error           { return nil }
func (d *fakeDriver) WaitForNavigation(context.Context) error       { return nil }
func (d *fakeDriver) StartCapture(context.Context) error            { return nil }
func (d *fakeDriver) StopCapture(context.Context) (*Capture, error) { return d.capture, nil }

func newTestService(t *testing.T, fetcher webclient.Fetcher, driver BrowserDriver) *Service {
	t.Helper()
	reg := registry.NewRegistry(config.RegistryConfig{
		ArchiveAfter:        30 * 24 * time.Hour,
		ConfidenceFloor:     0.1,
		ConfidenceEpsilon:   0.05,
		RecentFailureWindow: 10,
	}, store.NewMemoryStore(), observability.NewNoopLogger(), observability.NewNoopMetrics())
	require.NoError(t, reg.Initialize())

	cfg := config.FormsConfig{SubmitTimeout: 5 * time.Second, MaxBackoff: 60 * time.Second}
	return NewService(cfg, reg, fetcher, driver, nil, observability.NewNoopLogger(), observability.NewNoopMetrics())
}

func contactForm() *DetectedForm {
	return &DetectedForm{
		Selector: "#contact",
		Encoding: models.EncodingURLEncoded,
		Fields: []FormField{
			{Name: "email_addr", Type: "email", Required: true, Selector: "#email_addr"},
			{Name: "full_name", Type: "text", Selector: "#full_name"},
		},
		SubmitSelector: "button[type=submit]",
	}
}

func TestAnalyzeCapture(t *testing.T) {
	t.Run("Single JSON POST becomes a REST pattern", func(t *testing.T) {
		capture := &Capture{
			PageURL: "https://example.com/contact",
			Requests: []CapturedRequest{{
				URL:      "https://example.com/submit",
				Method:   "POST",
				Headers:  map[string]string{"Content-Type": "application/json"},
				PostData: `{"email_addr":"a@b","full_name":"A B"}`,
				Status:   200,
			}},
		}
		submitted := map[string]string{"email_addr": "a@b", "full_name": "A B"}

		pattern, err := AnalyzeCapture(contactForm(), capture, submitted)
		require.NoError(t, err)

		assert.Equal(t, models.TransportREST, pattern.Transport)
		assert.Equal(t, models.EncodingJSON, pattern.Encoding)
		assert.Equal(t, "https://example.com/submit", pattern.SubmitURL)
		assert.Equal(t, map[string]string{
			"email_addr": "email_addr",
			"full_name":  "full_name",
		}, pattern.FieldMapping)
		assert.Equal(t, []int{200}, pattern.Success.StatusCodes)
		assert.Empty(t, pattern.Success.ResponseFields)
		assert.Contains(t, pattern.ID, models.PrefixForm)
		assert.Equal(t, models.TemplateRESTResource, pattern.TemplateType)
	})

	t.Run("Mutation request is chosen over asset fetches", func(t *testing.T) {
		capture := &Capture{
			PageURL: "https://example.com/contact",
			Requests: []CapturedRequest{
				{URL: "https://example.com/analytics", Method: "POST", PostData: `{"event":"pageview"}`, Status: 204},
				{URL: "https://example.com/app.js", Method: "GET", Status: 200},
				{
					URL:      "https://example.com/submit",
					Method:   "POST",
					Headers:  map[string]string{"Content-Type": "application/json"},
					PostData: `{"email_addr":"a@b","full_name":"A B"}`,
					Status:   201,
				},
			},
		}
		pattern, err := AnalyzeCapture(contactForm(), capture, map[string]string{"email_addr": "a@b"})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/submit", pattern.SubmitURL)
	})

	t.Run("WebSocket frames win when they match the fields", func(t *testing.T) {
		form := &DetectedForm{
			Selector:       "#composer",
			Fields:         []FormField{{Name: "title", Selector: "#title"}, {Name: "body", Selector: "#body"}},
			SubmitSelector: "button",
		}
		capture := &Capture{
			PageURL: "https://chat.example/new",
			Frames: []WebSocketFrame{
				{URL: "wss://chat.example/socket.io/?EIO=4", Sent: false, Payload: `42["ack",{}]`},
				{URL: "wss://chat.example/socket.io/?EIO=4", Sent: true, Payload: `42["submit_post",{"title":"x","body":"y"}]`},
			},
		}
		pattern, err := AnalyzeCapture(form, capture, nil)
		require.NoError(t, err)

		assert.Equal(t, models.TransportWebSocket, pattern.Transport)
		assert.Equal(t, WSProtocolSocketIO, pattern.WSProtocol)
		assert.Equal(t, "submit_post", pattern.WSEventName)
		assert.Equal(t, "wss://chat.example/socket.io/?EIO=4", pattern.SubmitURL)
		assert.Contains(t, pattern.ID, models.PrefixWebSocket)
	})

	t.Run("No submission request", func(t *testing.T) {
		capture := &Capture{
			PageURL:  "https://example.com/contact",
			Requests: []CapturedRequest{{URL: "https://example.com/app.js", Method: "GET"}},
		}
		_, err := AnalyzeCapture(contactForm(), capture, nil)
		assert.Error(t, err)
	})
}

func TestDetectTransport(t *testing.T) {
	pageURL := "https://app.example/items/new"

	tests := []struct {
		name      string
		req       CapturedRequest
		transport models.FormTransport
		check     func(t *testing.T, info transportInfo)
	}{
		{
			name: "Next.js server action",
			req: CapturedRequest{
				URL:    "https://app.example/items/new",
				Method: "POST",
				Headers: map[string]string{
					"Next-Action":  "a1b2c3",
					"Content-Type": "text/plain",
				},
			},
			transport: models.TransportServerAction,
			check: func(t *testing.T, info transportInfo) {
				assert.Equal(t, models.FrameworkNextJS, info.Framework)
				assert.Equal(t, "a1b2c3", info.ActionName)
			},
		},
		{
			name: "Remix action discriminator",
			req: CapturedRequest{
				URL:      "https://app.example/items/new",
				Method:   "POST",
				Headers:  map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
				PostData: "_action=create&title=x",
			},
			transport: models.TransportServerAction,
			check: func(t *testing.T, info transportInfo) {
				assert.Equal(t, models.FrameworkRemix, info.Framework)
				assert.Equal(t, "create", info.ActionName)
			},
		},
		{
			name: "Same-route form POST is a Remix action",
			req: CapturedRequest{
				URL:      "https://app.example/items/new",
				Method:   "POST",
				Headers:  map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
				PostData: "title=x",
			},
			transport: models.TransportServerAction,
			check: func(t *testing.T, info transportInfo) {
				assert.Equal(t, models.FrameworkRemix, info.Framework)
				assert.Empty(t, info.ActionName)
			},
		},
		{
			name: "GraphQL mutation",
			req: CapturedRequest{
				URL:      "https://app.example/graphql",
				Method:   "POST",
				Headers:  map[string]string{"Content-Type": "application/json"},
				PostData: `{"query":"mutation CreateItem($title: String!) { createItem(title: $title) { id } }","variables":{"title":"x"}}`,
			},
			transport: models.TransportGraphQL,
			check: func(t *testing.T, info transportInfo) {
				assert.Equal(t, "CreateItem", info.MutationName)
				assert.Equal(t, models.EncodingJSON, info.Encoding)
			},
		},
		{
			name: "JSON-RPC 2.0",
			req: CapturedRequest{
				URL:      "https://app.example/rpc",
				Method:   "POST",
				Headers:  map[string]string{"Content-Type": "application/json"},
				PostData: `{"jsonrpc":"2.0","method":"createItem","params":{"title":"x"},"id":7}`,
			},
			transport: models.TransportJSONRPC,
			check: func(t *testing.T, info transportInfo) {
				assert.Equal(t, "createItem", info.RPCMethod)
			},
		},
		{
			name: "Plain JSON POST is REST",
			req: CapturedRequest{
				URL:      "https://app.example/api/items",
				Method:   "POST",
				Headers:  map[string]string{"Content-Type": "application/json"},
				PostData: `{"title":"x"}`,
			},
			transport: models.TransportREST,
			check: func(t *testing.T, info transportInfo) {
				assert.Equal(t, models.EncodingJSON, info.Encoding)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := detectTransport(tt.req, pageURL)
			assert.Equal(t, tt.transport, info.Transport)
			if tt.check != nil {
				tt.check(t, info)
			}
		})
	}
}

func TestBestSubmissionFrame(t *testing.T) {
	fields := []FormField{{Name: "title"}, {Name: "body"}}

	t.Run("Highest-scoring sent frame wins", func(t *testing.T) {
		frames := []WebSocketFrame{
			{Sent: true, Payload: `42["ping",{}]`},
			{Sent: true, Payload: `42["submit_post",{"title":"x","body":"y"}]`},
			{Sent: false, Payload: `42["submit_post",{"title":"x","body":"y"}]`},
		}
		frame, score := bestSubmissionFrame(frames, fields)
		require.NotNil(t, frame)
		assert.Equal(t, 7, score)
		assert.True(t, frame.Sent)
	})

	t.Run("Camel case payload keys still match", func(t *testing.T) {
		frames := []WebSocketFrame{
			{Sent: true, Payload: `{"event":"create","data":{"emailAddr":"a@b"}}`},
		}
		frame, score := bestSubmissionFrame(frames, []FormField{{Name: "email_addr"}})
		require.NotNil(t, frame)
		assert.Equal(t, 5, score)
	})

	t.Run("No matching frame", func(t *testing.T) {
		frames := []WebSocketFrame{{Sent: true, Payload: `2`}}
		frame, score := bestSubmissionFrame(frames, fields)
		assert.Nil(t, frame)
		assert.Zero(t, score)
	})
}

func TestInferWSProtocol(t *testing.T) {
	assert.Equal(t, WSProtocolSocketIO, inferWSProtocol(&WebSocketFrame{URL: "wss://x.example/socket.io/?EIO=4"}))
	assert.Equal(t, WSProtocolSockJS, inferWSProtocol(&WebSocketFrame{URL: "wss://x.example/sockjs/123/abc/websocket"}))
	assert.Equal(t, WSProtocolSocketIO, inferWSProtocol(&WebSocketFrame{URL: "wss://x.example/ws", Payload: `42["e",{}]`}))
	assert.Equal(t, WSProtocolRaw, inferWSProtocol(&WebSocketFrame{URL: "wss://x.example/ws", Payload: `{"title":"x"}`}))
}

func TestBuildFieldMapping(t *testing.T) {
	fields := []FormField{{Name: "email_addr"}, {Name: "fullName"}, {Name: "unmapped"}}
	keys := map[string]struct{}{"emailAddr": {}, "full_name": {}}

	mapping := buildFieldMapping(fields, keys)
	assert.Equal(t, map[string]string{
		"email_addr": "emailAddr",
		"fullName":   "full_name",
	}, mapping)
}

func TestDetectDynamicFields(t *testing.T) {
	t.Run("CSRF candidates extract from the DOM", func(t *testing.T) {
		form := &DetectedForm{
			CSRFFields: []FormField{{Name: "authenticity_token", Selector: `input[name="authenticity_token"]`}},
		}
		dynamic := detectDynamicFields(form)
		require.Len(t, dynamic, 1)
		assert.Equal(t, models.DynamicCSRFToken, dynamic[0].ValueType)
		assert.Equal(t, models.ExtractFromDOM, dynamic[0].Strategy)
		assert.Equal(t, `input[name="authenticity_token"]`, dynamic[0].Selector)
	})

	t.Run("Value shape heuristics", func(t *testing.T) {
		form := &DetectedForm{Fields: []FormField{
			{Name: "request_id", Value: "0b0e78a0-98e6-46ec-91cc-b2e8cb0a09d2", Selector: "#rid"},
			{Name: "submitted_at", Value: "1724500000000", Selector: "#ts"},
		}}
		dynamic := detectDynamicFields(form)
		require.Len(t, dynamic, 2)
		assert.Equal(t, models.DynamicUUID, dynamic[0].ValueType)
		assert.Equal(t, models.ExtractComputed, dynamic[0].Strategy)
		assert.Equal(t, models.DynamicTimestamp, dynamic[1].ValueType)
		assert.Equal(t, models.ExtractComputed, dynamic[1].Strategy)
	})

	t.Run("Name heuristics", func(t *testing.T) {
		form := &DetectedForm{Fields: []FormField{
			{Name: "session_key", Selector: "#sk"},
			{Name: "user_ref", Selector: "#ur"},
			{Name: "form_nonce", Selector: "#n"},
		}}
		dynamic := detectDynamicFields(form)
		require.Len(t, dynamic, 3)
		assert.Equal(t, models.DynamicSessionID, dynamic[0].ValueType)
		assert.Equal(t, models.ExtractFromCookie, dynamic[0].Strategy)
		assert.Equal(t, models.DynamicUserID, dynamic[1].ValueType)
		assert.Equal(t, models.DynamicNonce, dynamic[2].ValueType)
	})

	t.Run("Value varying across captures", func(t *testing.T) {
		form := &DetectedForm{Fields: []FormField{{Name: "challenge", Selector: "#c"}}}
		dynamic := detectDynamicFields(form,
			map[string]string{"challenge": "abc"},
			map[string]string{"challenge": "def"},
		)
		require.Len(t, dynamic, 1)
		assert.Equal(t, models.DynamicCustom, dynamic[0].ValueType)
		assert.Equal(t, "#c", dynamic[0].Selector)
	})

	t.Run("Stable plain field is not dynamic", func(t *testing.T) {
		form := &DetectedForm{Fields: []FormField{{Name: "email", Selector: "#e"}}}
		assert.Empty(t, detectDynamicFields(form,
			map[string]string{"email": "a@b"},
			map[string]string{"email": "a@b"},
		))
	})
}

func TestDetectOTP(t *testing.T) {
	t.Run("Field indicator", func(t *testing.T) {
		challenge, ok := detectOTP(401, []byte(`{"requiresOTP":true,"message":"We sent a code to your email"}`))
		require.True(t, ok)
		assert.Equal(t, models.OTPEmail, challenge.Kind)
		assert.Equal(t, "code", challenge.CodeFieldName)
		assert.Equal(t, "We sent a code to your email", challenge.Message)
	})

	t.Run("Message indicator", func(t *testing.T) {
		challenge, ok := detectOTP(428, []byte(`enter the verification code from your authenticator app`))
		require.True(t, ok)
		assert.Equal(t, models.OTPAuthenticator, challenge.Kind)
	})

	t.Run("Status outside the challenge set", func(t *testing.T) {
		_, ok := detectOTP(200, []byte(`{"requiresOTP":true}`))
		assert.False(t, ok)
	})

	t.Run("Challenge status without indicators", func(t *testing.T) {
		_, ok := detectOTP(403, []byte(`{"error":"forbidden"}`))
		assert.False(t, ok)
	})
}

func TestSubmitForm(t *testing.T) {
	restPattern := func() *models.FormPattern {
		return &models.FormPattern{
			LearnedPattern: models.LearnedPattern{
				ID:           "form:example.com:contact",
				TemplateType: models.TemplateRESTResource,
				URLPatterns:  []string{`https?://example\.com/contact`},
				Method:       "POST",
				Metrics:      models.PatternMetrics{Domains: []string{"example.com"}},
			},
			FormURL:      "https://example.com/contact",
			FormSelector: "#contact",
			SubmitURL:    "https://example.com/submit",
			Transport:    models.TransportREST,
			Encoding:     models.EncodingJSON,
			FieldMapping: map[string]string{"email_addr": "emailAddr"},
			Success:      models.SuccessIndicators{StatusCodes: []int{200}},
		}
	}

	t.Run("Direct REST submission", func(t *testing.T) {
		fetcher := &fakeFetcher{responses: map[string]*webclient.Response{
			"https://example.com/submit": webclient.NewResponse(200, http.Header{}, []byte(`{"ok":true}`)),
		}}
		svc := newTestService(t, fetcher, nil)
		require.NoError(t, svc.RegisterPattern(restPattern()))

		result, err := svc.SubmitForm(context.Background(), map[string]string{"email_addr": "a@b"}, SubmitOptions{
			FormURL:  "https://example.com/contact",
			Selector: "#contact",
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, MethodAPI, result.Method)
		assert.False(t, result.Learned)
		assert.Equal(t, map[string]interface{}{"ok": true}, result.ResponseData)

		require.Len(t, fetcher.calls, 1)
		var sent map[string]string
		require.NoError(t, json.Unmarshal(fetcher.calls[0].Opts.Body, &sent))
		assert.Equal(t, map[string]string{"emailAddr": "a@b"}, sent)
		assert.Equal(t, "application/json", fetcher.calls[0].Opts.Headers["Content-Type"])
	})

	t.Run("File fields reject a submission without files", func(t *testing.T) {
		pattern := restPattern()
		pattern.FileFields = []models.FileField{{Name: "attachment", Selector: `input[type=file]`}}

		fetcher := &fakeFetcher{}
		svc := newTestService(t, fetcher, nil)
		require.NoError(t, svc.RegisterPattern(pattern))

		result, err := svc.SubmitForm(context.Background(), map[string]string{"email_addr": "a@b"}, SubmitOptions{
			FormURL:  "https://example.com/contact",
			Selector: "#contact",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "attachment")
		assert.Contains(t, result.Error, "file uploads")
		assert.Empty(t, fetcher.calls)
	})

	t.Run("Rate limited submission blocks the domain", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("Retry-After", "30")
		fetcher := &fakeFetcher{responses: map[string]*webclient.Response{
			"https://example.com/submit": webclient.NewResponse(429, headers, nil),
		}}
		svc := newTestService(t, fetcher, nil)
		require.NoError(t, svc.RegisterPattern(restPattern()))

		opts := SubmitOptions{FormURL: "https://example.com/contact", Selector: "#contact"}
		_, err := svc.SubmitForm(context.Background(), map[string]string{"email_addr": "a@b"}, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retry after")
		require.Len(t, fetcher.calls, 1)

		// The table now blocks the domain, so the next attempt never fetches.
		_, err = svc.SubmitForm(context.Background(), map[string]string{"email_addr": "a@b"}, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
		assert.Len(t, fetcher.calls, 1)
	})

	t.Run("OTP challenge without prompt", func(t *testing.T) {
		fetcher := &fakeFetcher{responses: map[string]*webclient.Response{
			"https://example.com/submit": webclient.NewResponse(401, http.Header{},
				[]byte(`{"requiresOTP":true,"message":"enter the verification code sent by sms"}`)),
		}}
		svc := newTestService(t, fetcher, nil)
		require.NoError(t, svc.RegisterPattern(restPattern()))

		result, err := svc.SubmitForm(context.Background(), map[string]string{"email_addr": "a@b"}, SubmitOptions{
			FormURL:  "https://example.com/contact",
			Selector: "#contact",
		})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.True(t, result.OTPRequired)
		require.NotNil(t, result.OTPChallenge)
		assert.Equal(t, models.OTPSMS, result.OTPChallenge.Kind)
		assert.Equal(t, "https://example.com/submit", result.OTPChallenge.VerificationEndpoint)
	})

	t.Run("OTP prompt answers the challenge", func(t *testing.T) {
		fetcher := &fakeFetcher{responses: map[string]*webclient.Response{
			"https://example.com/submit": webclient.NewResponse(401, http.Header{},
				[]byte(`{"requiresOTP":true,"verification_url":"https://example.com/verify"}`)),
			"https://example.com/verify": webclient.NewResponse(200, http.Header{}, []byte(`{"ok":true}`)),
		}}
		svc := newTestService(t, fetcher, nil)
		require.NoError(t, svc.RegisterPattern(restPattern()))

		result, err := svc.SubmitForm(context.Background(), map[string]string{"email_addr": "a@b"}, SubmitOptions{
			FormURL:  "https://example.com/contact",
			Selector: "#contact",
			OTPPrompt: func(context.Context, *models.OTPChallenge) (string, error) {
				return "123456", nil
			},
		})
		require.NoError(t, err)
		assert.True(t, result.Success)

		require.Len(t, fetcher.calls, 2)
		var sent map[string]string
		require.NoError(t, json.Unmarshal(fetcher.calls[1].Opts.Body, &sent))
		assert.Equal(t, map[string]string{"code": "123456"}, sent)
	})

	t.Run("Unknown form learns through the browser", func(t *testing.T) {
		driver := &fakeDriver{
			form: contactForm(),
			capture: &Capture{
				PageURL: "https://example.com/contact",
				Requests: []CapturedRequest{{
					URL:      "https://example.com/submit",
					Method:   "POST",
					Headers:  map[string]string{"Content-Type": "application/json"},
					PostData: `{"email_addr":"a@b","full_name":"A B"}`,
					Status:   200,
				}},
			},
		}
		svc := newTestService(t, &fakeFetcher{}, driver)

		result, err := svc.SubmitForm(context.Background(), map[string]string{
			"email_addr": "a@b",
			"full_name":  "A B",
		}, SubmitOptions{FormURL: "https://example.com/contact", Selector: "#contact"})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, MethodBrowser, result.Method)
		assert.True(t, result.Learned)
		assert.Equal(t, "a@b", driver.filled["#email_addr"])

		pattern, ok := svc.PatternFor("https://example.com/contact", "#contact")
		require.True(t, ok)
		assert.Equal(t, models.TransportREST, pattern.Transport)
		assert.Equal(t, []int{200}, pattern.Success.StatusCodes)

		// The learned pattern is registered with the registry too.
		_, found := svc.registry.GetPattern(pattern.ID)
		assert.True(t, found)
	})
}

func TestBuildRequestBody(t *testing.T) {
	t.Run("GraphQL body reuses the captured query", func(t *testing.T) {
		pattern := &models.FormPattern{
			Transport:    models.TransportGraphQL,
			Encoding:     models.EncodingJSON,
			FieldMapping: map[string]string{"title": "title"},
			BodyTemplate: `{"query":"mutation CreateItem($title: String!) { createItem(title: $title) { id } }","variables":{"title":"old"}}`,
		}
		body, headers, err := buildRequestBody(pattern, map[string]string{"title": "new"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "application/json", headers["Content-Type"])

		var sent struct {
			Query     string            `json:"query"`
			Variables map[string]string `json:"variables"`
		}
		require.NoError(t, json.Unmarshal(body, &sent))
		assert.Contains(t, sent.Query, "mutation CreateItem")
		assert.Equal(t, map[string]string{"title": "new"}, sent.Variables)
	})

	t.Run("JSON-RPC envelope", func(t *testing.T) {
		pattern := &models.FormPattern{
			Transport: models.TransportJSONRPC,
			RPCMethod: "createItem",
		}
		body, _, err := buildRequestBody(pattern, map[string]string{"title": "x"}, nil)
		require.NoError(t, err)

		var sent map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &sent))
		assert.Equal(t, "2.0", sent["jsonrpc"])
		assert.Equal(t, "createItem", sent["method"])
		assert.Equal(t, map[string]interface{}{"title": "x"}, sent["params"])
	})

	t.Run("Next.js server action carries the action header", func(t *testing.T) {
		pattern := &models.FormPattern{
			Transport:  models.TransportServerAction,
			Framework:  models.FrameworkNextJS,
			ActionName: "a1b2c3",
		}
		_, headers, err := buildRequestBody(pattern, map[string]string{"title": "x"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "a1b2c3", headers["Next-Action"])
	})

	t.Run("Remix server action injects the discriminator field", func(t *testing.T) {
		pattern := &models.FormPattern{
			Transport:  models.TransportServerAction,
			Framework:  models.FrameworkRemix,
			ActionName: "create",
		}
		body, headers, err := buildRequestBody(pattern, map[string]string{"title": "x"}, nil)
		require.NoError(t, err)
		assert.Equal(t, string(models.EncodingURLEncoded), headers["Content-Type"])
		assert.Contains(t, string(body), "_action=create")
		assert.Contains(t, string(body), "title=x")
	})

	t.Run("URL-encoded REST body", func(t *testing.T) {
		pattern := &models.FormPattern{
			Transport: models.TransportREST,
			Encoding:  models.EncodingURLEncoded,
		}
		body, headers, err := buildRequestBody(pattern, map[string]string{"email": "a@b"}, nil)
		require.NoError(t, err)
		assert.Equal(t, string(models.EncodingURLEncoded), headers["Content-Type"])
		assert.Equal(t, "email=a%40b", string(body))
	})
}

func TestRateLimitTable(t *testing.T) {
	t.Run("429 blocks until the advertised reset", func(t *testing.T) {
		table := newRateLimitTable()
		now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
		table.now = func() time.Time { return now }

		headers := http.Header{}
		headers.Set("Retry-After", "30")
		info := table.Observe("example.com", 429, headers)
		assert.Equal(t, 30, info.RetryAfterSeconds)
		assert.Equal(t, 1, info.RateLimitCount)

		wait := table.Wait("example.com")
		assert.Equal(t, 30*time.Second, wait)

		now = now.Add(31 * time.Second)
		assert.Zero(t, table.Wait("example.com"))
	})

	t.Run("Quota headers are recorded on every response", func(t *testing.T) {
		table := newRateLimitTable()
		headers := http.Header{}
		headers.Set("X-RateLimit-Limit", "100")
		headers.Set("X-RateLimit-Remaining", "42")
		headers.Set("X-RateLimit-Reset", "1790000000")

		info := table.Observe("example.com", 200, headers)
		assert.Equal(t, 100, info.Limit)
		assert.Equal(t, 42, info.Remaining)
		assert.Equal(t, time.Unix(1790000000, 0), info.ResetAt)
		assert.Zero(t, info.RateLimitCount)
	})
}

// Package webclient defines the HTTP fetch contract the learning core
// consumes. The core never manages cookies; a cookie-aware client is
// supplied by the enclosing application when needed.
package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/observability"
)

// RequestOptions shapes one outgoing request. A zero value means GET with
// no headers, no body, and the fetcher's default timeout.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// Response is a fully buffered HTTP response
type Response struct {
	Status     int
	StatusText string
	Headers    http.Header
	body       []byte
}

// NewResponse builds a Response from parts. Adapters wrapping non-HTTP
// transports and test doubles use this.
func NewResponse(status int, headers http.Header, body []byte) *Response {
	return &Response{
		Status:     status,
		StatusText: http.StatusText(status),
		Headers:    headers,
		body:       body,
	}
}

// Text returns the response body as a string
func (r *Response) Text() string {
	return string(r.body)
}

// Bytes returns the raw response body
func (r *Response) Bytes() []byte {
	return r.body
}

// JSON unmarshals the response body into v
func (r *Response) JSON(v interface{}) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return errors.Wrap(err, "response body is not valid JSON")
	}
	return nil
}

// Fetcher issues one HTTP request and buffers the response
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts RequestOptions) (*Response, error)
}

// HTTPFetcher is the net/http backed Fetcher
type HTTPFetcher struct {
	client         *http.Client
	logger         observability.Logger
	defaultTimeout time.Duration
	maxBodyBytes   int64
}

// NewHTTPFetcher creates a fetcher with a 30 second default timeout and a
// 10 MB response cap.
func NewHTTPFetcher(logger observability.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:         &http.Client{},
		logger:         logger,
		defaultTimeout: 30 * time.Second,
		maxBodyBytes:   10 << 20,
	}
}

// Fetch issues the request and buffers the body. Non-2xx statuses are not
// errors; callers inspect Status themselves.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	for name, value := range opts.Headers {
		req.Header.Set(name, value)
	}

	started := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request to %s failed", url)
	}
	defer func() { _ = resp.Body.Close() }()

	buffered, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	f.logger.Debug("Fetched URL", map[string]interface{}{
		"url":      url,
		"method":   method,
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	})

	return &Response{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    resp.Header,
		body:       buffered,
	}, nil
}

// Package forms learns how a site's forms submit on the wire. One browser
// capture of a submission is analyzed into a replayable pattern covering the
// transport (REST, GraphQL, JSON-RPC, server actions, WebSocket), the field
// mapping, and the per-submission dynamic values; later submissions go
// straight to the API without a browser.
package forms

import (
	"context"
	"time"

	"github.com/pagelens/pagelens/pkg/models"
)

// CapturedRequest is one network request recorded while the browser submitted
// the form. PostData is only populated for mutation methods.
type CapturedRequest struct {
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	PostData     string            `json:"postData,omitempty"`
	Status       int               `json:"status"`
	ResponseBody string            `json:"responseBody,omitempty"`
}

// WebSocketFrame is one frame sniffed from a CDP session during capture
type WebSocketFrame struct {
	URL       string    `json:"url"`
	Sent      bool      `json:"sent"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// FormField describes one input/select/textarea on the detected form
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Value    string `json:"value,omitempty"`
	Selector string `json:"selector"`
}

// DetectedForm is the in-page view of a form: its fields, its file inputs,
// its CSRF candidates, and how to trigger submission.
type DetectedForm struct {
	Selector       string              `json:"selector"`
	Action         string              `json:"action,omitempty"`
	Method         string              `json:"method,omitempty"`
	Encoding       models.FormEncoding `json:"encoding"`
	Fields         []FormField         `json:"fields"`
	FileFields     []models.FileField  `json:"fileFields,omitempty"`
	CSRFFields     []FormField         `json:"csrfFields,omitempty"`
	SubmitSelector string              `json:"submitSelector"`
}

// Capture is everything recorded during one browser-driven submission
type Capture struct {
	PageURL  string
	Requests []CapturedRequest
	Frames   []WebSocketFrame
}

// BrowserDriver is the headless-browser surface consumed during learning.
// The core never touches the browser directly; the enclosing application
// supplies an implementation.
type BrowserDriver interface {
	Navigate(ctx context.Context, url string) error
	DetectForm(ctx context.Context, selector string) (*DetectedForm, error)
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	WaitForNavigation(ctx context.Context) error

	// StartCapture begins recording network requests and WebSocket frames;
	// StopCapture ends recording and returns everything seen since.
	StartCapture(ctx context.Context) error
	StopCapture(ctx context.Context) (*Capture, error)
}

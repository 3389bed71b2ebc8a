package forms

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
)

// WebSocket sub-protocols the analyzer can recognize
const (
	WSProtocolSocketIO = "socket.io"
	WSProtocolSockJS   = "sockjs"
	WSProtocolRaw      = "raw"
)

var submitEventWords = []string{"submit", "create", "update", "send"}

// bestSubmissionFrame picks the sent frame most likely to be the form
// submission: payload keys matching field names score two points each, an
// event name containing a submission verb scores three. Returns nil when no
// frame scores at all.
func bestSubmissionFrame(frames []WebSocketFrame, fields []FormField) (*WebSocketFrame, int) {
	var best *WebSocketFrame
	bestScore := 0
	for i := range frames {
		frame := &frames[i]
		if !frame.Sent {
			continue
		}
		score := scoreFrame(frame, fields)
		if score > bestScore {
			best, bestScore = frame, score
		}
	}
	return best, bestScore
}

func scoreFrame(frame *WebSocketFrame, fields []FormField) int {
	payload, event := parseFramePayload(frame.Payload)

	score := 0
	for _, field := range fields {
		for _, variant := range nameVariants(field.Name) {
			if _, ok := payload[variant]; ok {
				score += 2
				break
			}
		}
	}
	lowered := strings.ToLower(event)
	for _, word := range submitEventWords {
		if strings.Contains(lowered, word) {
			score += 3
			break
		}
	}
	return score
}

// parseFramePayload extracts the key-value payload and event name from a
// frame body. Socket.IO event frames look like `42["event",{...}]`; plain
// JSON objects may carry an "event" key; anything else yields no keys.
func parseFramePayload(payload string) (map[string]interface{}, string) {
	trimmed := strings.TrimSpace(payload)

	if strings.HasPrefix(trimmed, "42") {
		var parts []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed[2:]), &parts); err == nil && len(parts) > 0 {
			var event string
			_ = json.Unmarshal(parts[0], &event)
			data := map[string]interface{}{}
			if len(parts) > 1 {
				_ = json.Unmarshal(parts[1], &data)
			}
			return data, event
		}
	}

	var object map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &object); err == nil {
		event, _ := object["event"].(string)
		if data, ok := object["data"].(map[string]interface{}); ok {
			return data, event
		}
		return object, event
	}
	return map[string]interface{}{}, ""
}

// inferWSProtocol classifies the socket dialect from the URL first, then
// from the payload shape.
func inferWSProtocol(frame *WebSocketFrame) string {
	lowered := strings.ToLower(frame.URL)
	if strings.Contains(lowered, "socket.io") {
		return WSProtocolSocketIO
	}
	if strings.Contains(lowered, "sockjs") {
		return WSProtocolSockJS
	}
	trimmed := strings.TrimSpace(frame.Payload)
	if strings.HasPrefix(trimmed, "42") {
		return WSProtocolSocketIO
	}
	var object map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &object); err == nil {
		if _, ok := object["event"]; ok {
			return WSProtocolSocketIO
		}
	}
	return WSProtocolRaw
}

// WSDialer opens a WebSocket, sends one text frame, and returns the first
// frame received in reply. Swappable for tests.
type WSDialer interface {
	SendFrame(ctx context.Context, url string, payload []byte) ([]byte, error)
}

// CoderWSDialer is the coder/websocket backed WSDialer
type CoderWSDialer struct {
	ReadTimeout time.Duration
}

// SendFrame dials, writes the payload as a text message, and waits for one
// reply frame before closing.
func (d *CoderWSDialer) SendFrame(ctx context.Context, wsURL string, payload []byte) ([]byte, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", wsURL)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return nil, errors.Wrap(err, "failed to send frame")
	}

	readCtx := ctx
	if d.ReadTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, d.ReadTimeout)
		defer cancel()
	}
	_, reply, err := conn.Read(readCtx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read reply frame")
	}
	return reply, nil
}

package models

import "time"

// EventType names the registry event surface
type EventType string

// Registry events
const (
	EventPatternLearned     EventType = "pattern_learned"
	EventPatternApplied     EventType = "pattern_applied"
	EventPatternArchived    EventType = "pattern_archived"
	EventConfidenceDecayed  EventType = "confidence_decayed"
	EventAntiPatternCreated EventType = "anti_pattern_created"
)

// Event is delivered synchronously to registry listeners in emission order.
// A panicking listener never prevents delivery to its siblings.
type Event struct {
	Type      EventType              `json:"type"`
	PatternID string                 `json:"patternId"`
	Domain    string                 `json:"domain,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Session mirrors the on-disk session file contents. It obeys the same
// atomic-rename and encryption rules as the pattern file.
type Session struct {
	Cookies         []SessionCookie   `json:"cookies"`
	LocalStorage    map[string]string `json:"localStorage,omitempty"`
	SessionStorage  map[string]string `json:"sessionStorage,omitempty"`
	IsAuthenticated bool              `json:"isAuthenticated"`
	LastUsed        time.Time         `json:"lastUsed"`
}

// SessionCookie is one persisted cookie
type SessionCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"httpOnly,omitempty"`
}

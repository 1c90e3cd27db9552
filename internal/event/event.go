package event

import (
	"encoding/json"
	"time"
)

// Severity classifies how dangerous a recorded event is.
// The set is closed: anything outside it is coerced to SeverityLow at write
// time so that aggregation (which groups by exact label) never sees an
// unknown value introduced by this service.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists the valid values in display order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is one of the four recognized labels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Coerce returns s unchanged when valid, SeverityLow otherwise.
func (s Severity) Coerce() Severity {
	if s.Valid() {
		return s
	}
	return SeverityLow
}

// SecurityEvent is one recorded security-relevant request.
//
// JSON field names are the dashboard wire contract and round-trip unchanged
// through JSON export; they must not be renamed.
type SecurityEvent struct {
	ID             string          `json:"_id"`
	EventType      string          `json:"eventType"`
	IPAddress      string          `json:"ipAddress"`
	UserAgent      string          `json:"userAgent"`
	Endpoint       string          `json:"endpoint"`
	Method         string          `json:"method"`
	RequestBody    json.RawMessage `json:"requestBody,omitempty"`
	RequestHeaders json.RawMessage `json:"requestHeaders,omitempty"`
	AttackPattern  string          `json:"attackPattern"`
	Payload        string          `json:"payload,omitempty"`
	Severity       Severity        `json:"severity"`
	Blocked        bool            `json:"blocked"`
	Country        string          `json:"country,omitempty"`
	City           string          `json:"city,omitempty"`
	Region         string          `json:"region,omitempty"`
	UserID         string          `json:"userId,omitempty"`
	UserEmail      string          `json:"userEmail,omitempty"`
	SessionID      string          `json:"sessionId,omitempty"`
	ResponseStatus int             `json:"responseStatus,omitempty"`
	ResponseTime   float64         `json:"responseTime,omitempty"`
	RateLimitInfo  json.RawMessage `json:"rateLimitInfo,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Processed      bool            `json:"processed"`
	ProcessedAt    *time.Time      `json:"processedAt"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Stats holds the summary counters computed over a set of events.
// Total may exceed the sum of the four severity counters when the store
// contains records with a severity outside the enum; that asymmetry is part
// of the contract.
type Stats struct {
	Total     int `json:"total"`
	Critical  int `json:"critical"`
	High      int `json:"high"`
	Medium    int `json:"medium"`
	Low       int `json:"low"`
	Blocked   int `json:"blocked"`
	Processed int `json:"processed"`
}

// PatternCount is one attack-pattern frequency bucket.
// The "_id" key mirrors the original aggregation output consumed by the
// dashboard charts.
type PatternCount struct {
	Pattern string `json:"_id"`
	Count   int    `json:"count"`
}

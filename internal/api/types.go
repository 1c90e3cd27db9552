package api

import (
	"encoding/json"
	"time"

	"github.com/threatguard/threatguard/internal/event"
)

// ErrorResp is the standard error response body.
type ErrorResp struct {
	Error string `json:"error"`
}

// CreateEventReq is the JSON body for POST /api/securityevents. The id,
// processed flag and processedAt are never taken from the producer; blocked
// defaults to true and timestamp to the insertion time when omitted.
type CreateEventReq struct {
	EventType      string          `json:"eventType"`
	IPAddress      string          `json:"ipAddress"`
	UserAgent      string          `json:"userAgent"`
	Endpoint       string          `json:"endpoint"`
	Method         string          `json:"method"`
	RequestBody    json.RawMessage `json:"requestBody"`
	RequestHeaders json.RawMessage `json:"requestHeaders"`
	AttackPattern  string          `json:"attackPattern"`
	Payload        string          `json:"payload"`
	Severity       string          `json:"severity"`
	Blocked        *bool           `json:"blocked"`
	Country        string          `json:"country"`
	City           string          `json:"city"`
	Region         string          `json:"region"`
	UserID         string          `json:"userId"`
	UserEmail      string          `json:"userEmail"`
	SessionID      string          `json:"sessionId"`
	ResponseStatus int             `json:"responseStatus"`
	ResponseTime   float64         `json:"responseTime"`
	RateLimitInfo  json.RawMessage `json:"rateLimitInfo"`
	Tags           []string        `json:"tags"`
	Timestamp      *time.Time      `json:"timestamp"`
}

// UpdateStatusReq is the JSON body for PATCH /api/securityevents/{id}.
type UpdateStatusReq struct {
	Processed *bool `json:"processed"`
}

// HealthResp mirrors the liveness payload the dashboard expects.
type HealthResp struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

// toEvent applies the write-time invariants: severity outside the enum is
// coerced to LOW (never passed through to aggregation), blocked defaults to
// true, timestamp defaults to now.
func (r *CreateEventReq) toEvent(id string, now time.Time) *event.SecurityEvent {
	blocked := true
	if r.Blocked != nil {
		blocked = *r.Blocked
	}
	ts := now
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return &event.SecurityEvent{
		ID:             id,
		EventType:      r.EventType,
		IPAddress:      r.IPAddress,
		UserAgent:      r.UserAgent,
		Endpoint:       r.Endpoint,
		Method:         r.Method,
		RequestBody:    r.RequestBody,
		RequestHeaders: r.RequestHeaders,
		AttackPattern:  r.AttackPattern,
		Payload:        r.Payload,
		Severity:       event.Severity(r.Severity).Coerce(),
		Blocked:        blocked,
		Country:        r.Country,
		City:           r.City,
		Region:         r.Region,
		UserID:         r.UserID,
		UserEmail:      r.UserEmail,
		SessionID:      r.SessionID,
		ResponseStatus: r.ResponseStatus,
		ResponseTime:   r.ResponseTime,
		RateLimitInfo:  r.RateLimitInfo,
		Tags:           r.Tags,
		Timestamp:      ts,
	}
}

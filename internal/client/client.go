// Package client is a typed HTTP client for the ThreatGuard API, the Go
// counterpart of the dashboard's fetch layer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/threatguard/threatguard/internal/event"
	"github.com/threatguard/threatguard/internal/filter"
)

// APIError is a non-2xx response from the server, carrying the JSON error
// body when one was present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNetworkError reports whether err is a transport-level failure (server
// unreachable) rather than an API response. The dashboard suppresses
// notifications for these, since a backend that is not running yet is an
// expected condition.
func IsNetworkError(err error) bool {
	var uerr *url.Error
	return errors.As(err, &uerr)
}

// Client calls the ThreatGuard HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the given base URL (e.g. "http://localhost:3001").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Events fetches one page of events with the given server-side filter.
func (c *Client) Events(ctx context.Context, f filter.Filter, page, limit int) ([]event.SecurityEvent, error) {
	q := url.Values{}
	if f.Severity != "" {
		q.Set("severity", f.Severity)
	}
	if f.EventType != "" {
		q.Set("eventType", f.EventType)
	}
	if f.TimeRange != "" {
		q.Set("timeRange", f.TimeRange)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var events []event.SecurityEvent
	if err := c.get(ctx, "/api/securityevents", q, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Stats fetches the server-computed summary counters.
func (c *Client) Stats(ctx context.Context) (event.Stats, error) {
	var s event.Stats
	err := c.get(ctx, "/api/securityevents/stats", nil, &s)
	return s, err
}

// Patterns fetches the top attack-pattern frequencies.
func (c *Client) Patterns(ctx context.Context) ([]event.PatternCount, error) {
	var p []event.PatternCount
	err := c.get(ctx, "/api/securityevents/patterns", nil, &p)
	return p, err
}

// UpdateStatus flips the processed flag on one event and returns the updated
// record.
func (c *Client) UpdateStatus(ctx context.Context, id string, processed bool) (*event.SecurityEvent, error) {
	body, _ := json.Marshal(map[string]bool{"processed": processed})
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.baseURL+"/api/securityevents/"+url.PathEscape(id), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var updated event.SecurityEvent
	if err := c.do(req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// CreateEvent submits a new event record and returns it as stored.
func (c *Client) CreateEvent(ctx context.Context, e *event.SecurityEvent) (*event.SecurityEvent, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/securityevents", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var stored event.SecurityEvent
	if err := c.do(req, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Export downloads the matching events in the given format.
func (c *Client) Export(ctx context.Context, format string, f filter.Filter) ([]byte, error) {
	q := url.Values{"format": {format}}
	if f.Severity != "" {
		q.Set("severity", f.Severity)
	}
	if f.EventType != "" {
		q.Set("eventType", f.EventType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/securityevents/export?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFrom(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFrom(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiErrorFrom(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}

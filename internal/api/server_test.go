package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/threatguard/threatguard/internal/client"
	"github.com/threatguard/threatguard/internal/event"
	"github.com/threatguard/threatguard/internal/filter"
	"github.com/threatguard/threatguard/internal/mirror"
	"github.com/threatguard/threatguard/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *client.Client) {
	t.Helper()
	mem := store.NewMemStore()
	logger := zap.NewNop()
	srv := httptest.NewServer(NewRouter(&Dependencies{
		Store:  mem,
		Mirror: mirror.NewLogWriter(logger),
		Logger: logger,
	}))
	t.Cleanup(srv.Close)
	return srv, client.New(srv.URL)
}

// seedFixture loads the reference set: ten events, one CRITICAL, two HIGH,
// one MEDIUM, six LOW, three blocked, none processed.
func seedFixture(t *testing.T, api *client.Client) {
	t.Helper()
	ctx := context.Background()
	seeds := []struct {
		sev     event.Severity
		typ     string
		pattern string
		blocked bool
		age     time.Duration
	}{
		{event.SeverityCritical, "SQL_INJECTION", "UNION SELECT", true, 10 * time.Minute},
		{event.SeverityHigh, "SQL_INJECTION", "UNION SELECT", true, 20 * time.Minute},
		{event.SeverityHigh, "XSS_ATTEMPT", "script-tag", true, 2 * time.Hour},
		{event.SeverityMedium, "BRUTE_FORCE", "credential-stuffing", false, 3 * time.Hour},
		{event.SeverityLow, "RATE_LIMIT_ABUSE", "burst", false, 30 * time.Minute},
		{event.SeverityLow, "RATE_LIMIT_ABUSE", "burst", false, 8 * time.Hour},
		{event.SeverityLow, "XSS_ATTEMPT", "script-tag", false, 12 * time.Hour},
		{event.SeverityLow, "PATH_TRAVERSAL", "dot-dot-slash", false, 30 * time.Hour},
		{event.SeverityLow, "PATH_TRAVERSAL", "dot-dot-slash", false, 3 * 24 * time.Hour},
		{event.SeverityLow, "BRUTE_FORCE", "credential-stuffing", false, 6 * 24 * time.Hour},
	}
	for i, s := range seeds {
		e := &event.SecurityEvent{
			EventType:     s.typ,
			AttackPattern: s.pattern,
			IPAddress:     "10.0.0.1",
			Endpoint:      "/api/login",
			Method:        "POST",
			Severity:      s.sev,
			Blocked:       s.blocked,
			Timestamp:     time.Now().UTC().Add(-s.age),
		}
		if _, err := api.CreateEvent(ctx, e); err != nil {
			t.Fatalf("seed event %d: %v", i, err)
		}
	}
}

func TestStatsOverSeededSet(t *testing.T) {
	_, api := newTestServer(t)
	seedFixture(t, api)

	stats, err := api.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := event.Stats{Total: 10, Critical: 1, High: 2, Medium: 1, Low: 6, Blocked: 3, Processed: 0}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestListEvents_SeverityFilter(t *testing.T) {
	_, api := newTestServer(t)
	seedFixture(t, api)

	events, err := api.Events(context.Background(), filter.Filter{Severity: "HIGH"}, 1, 100)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d HIGH events, want 2", len(events))
	}
	for _, e := range events {
		if e.Severity != event.SeverityHigh {
			t.Errorf("event %s has severity %s", e.ID, e.Severity)
		}
	}
}

func TestListEvents_TimeRangeFilter(t *testing.T) {
	_, api := newTestServer(t)
	seedFixture(t, api)

	events, err := api.Events(context.Background(), filter.Filter{TimeRange: "1h"}, 1, 100)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("got %d events in the last hour, want 3", len(events))
	}
}

func TestListEvents_SortedNewestFirst(t *testing.T) {
	_, api := newTestServer(t)
	seedFixture(t, api)

	events, err := api.Events(context.Background(), filter.Filter{}, 1, 100)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Fatalf("events not in descending timestamp order at index %d", i)
		}
	}
}

func TestListEvents_InvalidSeverityRejected(t *testing.T) {
	_, api := newTestServer(t)

	_, err := api.Events(context.Background(), filter.Filter{Severity: "banana"}, 1, 100)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("Events(severity=banana) = %v, want 400 APIError", err)
	}
}

func TestEventsBySeverityPath(t *testing.T) {
	srv, api := newTestServer(t)
	seedFixture(t, api)

	resp, err := http.Get(srv.URL + "/api/securityevents/severity/CRITICAL")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/api/securityevents/severity/banana")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid severity path status = %d, want 400", resp2.StatusCode)
	}
}

func TestCreateEvent_AppliesDefaults(t *testing.T) {
	srv, _ := newTestServer(t)

	// Raw body with blocked and timestamp omitted entirely; the typed client
	// always serializes them.
	resp, err := http.Post(srv.URL+"/api/securityevents", "application/json",
		strings.NewReader(`{"eventType":"SQL_INJECTION","severity":"whatever"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var stored event.SecurityEvent
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.ID == "" {
		t.Error("server must assign an id")
	}
	if stored.Severity != event.SeverityLow {
		t.Errorf("unknown severity should coerce to LOW, got %s", stored.Severity)
	}
	if !stored.Blocked {
		t.Error("blocked must default to true when omitted")
	}
	if stored.Timestamp.IsZero() {
		t.Error("timestamp must default to now")
	}
	if stored.Processed || stored.ProcessedAt != nil {
		t.Error("new events must start unprocessed")
	}
}

func TestUpdateStatus_RoundTrip(t *testing.T) {
	_, api := newTestServer(t)

	stored, err := api.CreateEvent(context.Background(), &event.SecurityEvent{
		EventType: "XSS_ATTEMPT", Severity: event.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	updated, err := api.UpdateStatus(context.Background(), stored.ID, true)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !updated.Processed || updated.ProcessedAt == nil {
		t.Errorf("expected processed with timestamp, got %+v", updated)
	}

	updated, err = api.UpdateStatus(context.Background(), stored.ID, false)
	if err != nil {
		t.Fatalf("UpdateStatus(false): %v", err)
	}
	if updated.Processed || updated.ProcessedAt != nil {
		t.Errorf("expected processedAt cleared, got %+v", updated)
	}
}

func TestUpdateStatus_UnknownEvent(t *testing.T) {
	_, api := newTestServer(t)

	_, err := api.UpdateStatus(context.Background(), "no-such-id", true)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("UpdateStatus(no-such-id) = %v, want 404 APIError", err)
	}
	if apiErr.Message != "Event not found" {
		t.Errorf("message = %q, want %q", apiErr.Message, "Event not found")
	}
}

func TestUpdateStatus_MissingProcessedField(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPatch,
		srv.URL+"/api/securityevents/some-id", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPatterns_MongoShapedKeys(t *testing.T) {
	srv, api := newTestServer(t)
	seedFixture(t, api)

	resp, err := http.Get(srv.URL + "/api/securityevents/patterns")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)
	if !strings.Contains(body, `"_id"`) {
		t.Errorf(`pattern buckets must use the "_id" key, got %s`, body)
	}

	patterns, err := api.Patterns(context.Background())
	if err != nil {
		t.Fatalf("Patterns: %v", err)
	}
	if len(patterns) == 0 {
		t.Fatal("expected pattern buckets for the seeded set")
	}
	for i := 1; i < len(patterns); i++ {
		if patterns[i].Count > patterns[i-1].Count {
			t.Fatalf("patterns not sorted by count desc: %+v", patterns)
		}
	}
}

func TestPatterns_EmptyStoreIsArray(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/securityevents/patterns")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(raw)); got != "[]" {
		t.Errorf("empty patterns body = %q, want []", got)
	}
}

func TestExport_CSVDownload(t *testing.T) {
	srv, api := newTestServer(t)
	seedFixture(t, api)

	resp, err := http.Get(srv.URL + "/api/securityevents/export?format=csv")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	cd := resp.Header.Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment; filename=security-events-") || !strings.HasSuffix(cd, ".csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	raw, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) != 11 {
		t.Errorf("got %d lines, want header + 10 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID,Event Type,") {
		t.Errorf("unexpected header %q", lines[0])
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	_, api := newTestServer(t)

	_, err := api.Export(context.Background(), "xml", filter.Filter{})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("Export(xml) = %v, want 400 APIError", err)
	}
	if apiErr.Message != "Unsupported export format" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestExport_SeverityFiltered(t *testing.T) {
	_, api := newTestServer(t)
	seedFixture(t, api)

	body, err := api.Export(context.Background(), "csv", filter.Filter{Severity: "HIGH"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) != 3 {
		t.Errorf("got %d lines, want header + 2 HIGH rows:\n%s", len(lines), body)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)
	for _, want := range []string{`"status":"OK"`, `"database":"Connected"`} {
		if !strings.Contains(body, want) {
			t.Errorf("health body missing %s: %s", want, body)
		}
	}
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/securityevents", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("preflight response missing CORS headers")
	}
}

// Package export renders an event set as a downloadable payload.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/threatguard/threatguard/internal/event"
)

// ErrUnsupportedFormat is returned for any format outside {json, csv, html}.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// CSVHeader is the fixed export column order.
const CSVHeader = "ID,Event Type,IP Address,Endpoint,Method,Attack Pattern,Severity,Blocked,Timestamp"

// Render produces the export payload and its content type.
func Render(format string, events []event.SecurityEvent, now time.Time) (body []byte, contentType string, err error) {
	switch format {
	case "json":
		body, err = JSON(events)
		return body, "application/json", err
	case "csv":
		return CSV(events), "text/csv", nil
	case "html":
		body, err = HTML(events, now)
		return body, "text/html; charset=utf-8", err
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Filename is the date-stamped attachment name for a given format.
func Filename(format string, now time.Time) string {
	return fmt.Sprintf("security-events-%s.%s", now.UTC().Format("2006-01-02"), format)
}

// JSON renders the full record set with the wire field names unmodified.
func JSON(events []event.SecurityEvent) ([]byte, error) {
	if events == nil {
		events = []event.SecurityEvent{}
	}
	return json.Marshal(events)
}

// CSV renders the fixed column set, one line per event.
//
// Fields are joined with bare commas and never quoted or escaped: a field
// containing a comma shifts every following column in its row. That matches
// the historical export byte-for-byte and is pinned by test; fixing it would
// silently change files consumers already parse.
func CSV(events []event.SecurityEvent) []byte {
	var buf bytes.Buffer
	buf.WriteString(CSVHeader)
	buf.WriteByte('\n')
	for i := range events {
		e := &events[i]
		fmt.Fprintf(&buf, "%s,%s,%s,%s,%s,%s,%s,%t,%s\n",
			e.ID, e.EventType, e.IPAddress, e.Endpoint, e.Method,
			e.AttackPattern, e.Severity, e.Blocked,
			e.Timestamp.UTC().Format(time.RFC3339),
		)
	}
	return buf.Bytes()
}

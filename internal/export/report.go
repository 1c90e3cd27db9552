package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/threatguard/threatguard/internal/event"
)

// reportTmpl is the self-contained printable report. Severity styling is
// keyed by a lowercase class name; unknown severities fall back to "low".
var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Security Events Report</title>
<style>
  body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 2rem; color: #111; }
  h1 { margin-bottom: 0.25rem; }
  .meta { color: #555; margin-bottom: 1.5rem; }
  table { border-collapse: collapse; width: 100%; font-size: 0.85rem; }
  th, td { border: 1px solid #ddd; padding: 6px 8px; text-align: left; }
  th { background: #f3f4f6; }
  .severity { font-weight: 600; padding: 2px 8px; border-radius: 4px; }
  .critical { color: #dc2626; background: #dc262620; }
  .high     { color: #f59e0b; background: #f59e0b20; }
  .medium   { color: #3b82f6; background: #3b82f620; }
  .low      { color: #10b981; background: #10b98120; }
</style>
</head>
<body>
<h1>Security Events Report</h1>
<div class="meta">Generated {{.GeneratedAt}} &middot; {{.Total}} events</div>
<table>
<thead>
<tr><th>Time</th><th>Event Type</th><th>IP Address</th><th>Endpoint</th><th>Method</th><th>Attack Pattern</th><th>Severity</th><th>Status</th></tr>
</thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.Time}}</td>
<td>{{.EventType}}</td>
<td>{{.IPAddress}}</td>
<td>{{.Endpoint}}</td>
<td>{{.Method}}</td>
<td>{{.AttackPattern}}</td>
<td><span class="severity {{.SeverityClass}}">{{.Severity}}</span></td>
<td>{{.Status}}</td>
</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

type reportRow struct {
	Time          string
	EventType     string
	IPAddress     string
	Endpoint      string
	Method        string
	AttackPattern string
	Severity      string
	SeverityClass string
	Status        string
}

type reportData struct {
	GeneratedAt string
	Total       int
	Rows        []reportRow
}

// HTML renders the printable report.
func HTML(events []event.SecurityEvent, now time.Time) ([]byte, error) {
	data := reportData{
		GeneratedAt: now.UTC().Format(time.RFC1123),
		Total:       len(events),
		Rows:        make([]reportRow, 0, len(events)),
	}
	for i := range events {
		e := &events[i]
		status := "Detected"
		if e.Blocked {
			status = "Blocked"
		}
		data.Rows = append(data.Rows, reportRow{
			Time:          e.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			EventType:     e.EventType,
			IPAddress:     e.IPAddress,
			Endpoint:      e.Endpoint,
			Method:        e.Method,
			AttackPattern: e.AttackPattern,
			Severity:      string(e.Severity),
			SeverityClass: severityClass(e.Severity),
			Status:        status,
		})
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func severityClass(s event.Severity) string {
	if !s.Valid() {
		return "low"
	}
	return strings.ToLower(string(s))
}

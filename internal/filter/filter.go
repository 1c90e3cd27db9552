// Package filter is the single source of truth for event query predicates.
//
// The same three filter dimensions are evaluated twice in this system: by the
// store when a page is fetched, and by the dashboard session when it re-filters
// the already-fetched page locally. Both sides go through this package (the
// Postgres store translates a Filter to SQL with the cutoff computed here), so
// the two layers cannot drift.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/threatguard/threatguard/internal/event"
)

// All is the sentinel value meaning a predicate is omitted entirely.
const All = "all"

// ErrInvalidFilter is returned when a filter value is outside the recognized
// set. Callers must reject such filters rather than silently ignoring them.
var ErrInvalidFilter = errors.New("invalid filter")

// timeRanges maps a recognized timeRange label to its window duration.
var timeRanges = map[string]time.Duration{
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

// Filter holds the three shared filter dimensions. Empty string and All both
// mean the dimension is unconstrained.
type Filter struct {
	Severity  string
	EventType string
	TimeRange string
}

// IsZero reports whether no dimension constrains the result set.
func (f Filter) IsZero() bool {
	return !f.hasSeverity() && !f.hasEventType() && !f.hasTimeRange()
}

func (f Filter) hasSeverity() bool  { return f.Severity != "" && f.Severity != All }
func (f Filter) hasEventType() bool { return f.EventType != "" && f.EventType != All }
func (f Filter) hasTimeRange() bool { return f.TimeRange != "" && f.TimeRange != All }

// Validate rejects severity and timeRange values outside the recognized sets.
// EventType is a free-form label and is never rejected.
func (f Filter) Validate() error {
	if f.hasSeverity() && !event.Severity(f.Severity).Valid() {
		return fmt.Errorf("%w: severity %q", ErrInvalidFilter, f.Severity)
	}
	if f.hasTimeRange() {
		if _, ok := timeRanges[f.TimeRange]; !ok {
			return fmt.Errorf("%w: timeRange %q", ErrInvalidFilter, f.TimeRange)
		}
	}
	return nil
}

// CutoffAt returns the inclusive lower timestamp bound implied by the
// timeRange dimension at the given instant. ok is false when no bound applies.
// Callers must capture now once per filtering pass, never per record.
func (f Filter) CutoffAt(now time.Time) (cutoff time.Time, ok bool) {
	if !f.hasTimeRange() {
		return time.Time{}, false
	}
	d, known := timeRanges[f.TimeRange]
	if !known {
		return time.Time{}, false
	}
	return now.Add(-d), true
}

// Match reports whether e satisfies every constrained dimension.
// Enum comparisons are exact and case-sensitive; the time window is an
// inclusive lower bound (timestamp >= cutoff).
func (f Filter) Match(e *event.SecurityEvent, now time.Time) bool {
	if f.hasSeverity() && string(e.Severity) != f.Severity {
		return false
	}
	if f.hasEventType() && e.EventType != f.EventType {
		return false
	}
	if cutoff, ok := f.CutoffAt(now); ok && e.Timestamp.Before(cutoff) {
		return false
	}
	return true
}

// Apply returns the subset of events matching f, preserving input order.
// now is captured once for the whole pass.
func Apply(events []event.SecurityEvent, f Filter, now time.Time) []event.SecurityEvent {
	out := make([]event.SecurityEvent, 0, len(events))
	for i := range events {
		if f.Match(&events[i], now) {
			out = append(out, events[i])
		}
	}
	return out
}

// SearchMatch reports whether e matches a free-text search term: a
// case-insensitive substring test ORed across ipAddress, eventType,
// attackPattern and endpoint. The empty term matches everything.
func SearchMatch(e *event.SecurityEvent, term string) bool {
	if term == "" {
		return true
	}
	t := strings.ToLower(term)
	return strings.Contains(strings.ToLower(e.IPAddress), t) ||
		strings.Contains(strings.ToLower(e.EventType), t) ||
		strings.Contains(strings.ToLower(e.AttackPattern), t) ||
		strings.Contains(strings.ToLower(e.Endpoint), t)
}

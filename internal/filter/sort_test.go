package filter

import (
	"testing"
	"time"

	"github.com/threatguard/threatguard/internal/event"
)

func TestToggle_SameFieldFlipsDirection(t *testing.T) {
	s := DefaultSort()
	if s.Field != SortByTimestamp || !s.Descending {
		t.Fatalf("unexpected default sort: %+v", s)
	}

	s.Toggle(SortByTimestamp)
	if s.Descending {
		t.Error("toggling the current field should flip to ascending")
	}
	s.Toggle(SortByTimestamp)
	if !s.Descending {
		t.Error("toggling again should flip back to descending")
	}
}

func TestToggle_NewFieldResetsDescending(t *testing.T) {
	s := DefaultSort()
	s.Toggle(SortByTimestamp) // now ascending

	s.Toggle(SortBySeverity)
	if s.Field != SortBySeverity || !s.Descending {
		t.Errorf("selecting a new field should reset to descending, got %+v", s)
	}
}

func TestSortEvents_Timestamp(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []event.SecurityEvent{
		{ID: "mid", Timestamp: base.Add(time.Minute)},
		{ID: "new", Timestamp: base.Add(time.Hour)},
		{ID: "old", Timestamp: base},
	}

	SortEvents(events, Sort{Field: SortByTimestamp, Descending: true})
	if events[0].ID != "new" || events[2].ID != "old" {
		t.Errorf("descending sort got %v", ids(events))
	}

	SortEvents(events, Sort{Field: SortByTimestamp, Descending: false})
	if events[0].ID != "old" || events[2].ID != "new" {
		t.Errorf("ascending sort got %v", ids(events))
	}
}

func TestSortEvents_SeverityIsLexical(t *testing.T) {
	events := []event.SecurityEvent{
		{ID: "l", Severity: event.SeverityLow},
		{ID: "c", Severity: event.SeverityCritical},
		{ID: "m", Severity: event.SeverityMedium},
		{ID: "h", Severity: event.SeverityHigh},
	}

	// Lexical, not by rank: CRITICAL < HIGH < LOW < MEDIUM.
	SortEvents(events, Sort{Field: SortBySeverity, Descending: false})
	want := []string{"c", "h", "l", "m"}
	for i, id := range want {
		if events[i].ID != id {
			t.Fatalf("lexical severity sort got %v, want %v", ids(events), want)
		}
	}
}

func TestSortEvents_StableOnEqualKeys(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []event.SecurityEvent{
		{ID: "first", Timestamp: ts},
		{ID: "second", Timestamp: ts},
		{ID: "third", Timestamp: ts},
	}

	SortEvents(events, Sort{Field: SortByTimestamp, Descending: true})
	if events[0].ID != "first" || events[1].ID != "second" || events[2].ID != "third" {
		t.Errorf("equal timestamps should keep their order, got %v", ids(events))
	}
}

package aggregate

import (
	"testing"

	"github.com/threatguard/threatguard/internal/event"
)

func TestComputeStats_EmptySetIsAllZeros(t *testing.T) {
	got := ComputeStats(nil)
	if got != (event.Stats{}) {
		t.Errorf("ComputeStats(nil) = %+v, want all zeros", got)
	}
	got = ComputeStats([]event.SecurityEvent{})
	if got != (event.Stats{}) {
		t.Errorf("ComputeStats(empty) = %+v, want all zeros", got)
	}
}

func TestComputeStats_Counts(t *testing.T) {
	events := []event.SecurityEvent{
		{Severity: event.SeverityCritical, Blocked: true},
		{Severity: event.SeverityHigh, Blocked: true, Processed: true},
		{Severity: event.SeverityHigh},
		{Severity: event.SeverityMedium},
		{Severity: event.SeverityLow, Blocked: true},
		{Severity: event.SeverityLow},
	}

	got := ComputeStats(events)
	want := event.Stats{Total: 6, Critical: 1, High: 2, Medium: 1, Low: 2, Blocked: 3, Processed: 1}
	if got != want {
		t.Errorf("ComputeStats = %+v, want %+v", got, want)
	}
}

func TestComputeStats_InvalidSeverityCountsTowardTotalOnly(t *testing.T) {
	events := []event.SecurityEvent{
		{Severity: event.SeverityLow},
		{Severity: "WEIRD"},
		{Severity: ""},
	}

	got := ComputeStats(events)
	if got.Total != 3 {
		t.Errorf("Total = %d, want 3", got.Total)
	}
	sum := got.Critical + got.High + got.Medium + got.Low
	if sum != 1 {
		t.Errorf("severity counter sum = %d, want 1", sum)
	}
	if sum > got.Total {
		t.Error("severity counters must never exceed total")
	}
}

func TestPatternFrequency_SortedDescending(t *testing.T) {
	var events []event.SecurityEvent
	add := func(pattern string, n int) {
		for i := 0; i < n; i++ {
			events = append(events, event.SecurityEvent{AttackPattern: pattern})
		}
	}
	add("C", 3)
	add("A", 5)
	add("B", 5)

	got := PatternFrequency(events, TopPatterns)
	if len(got) != 3 {
		t.Fatalf("got %d buckets, want 3", len(got))
	}
	if got[2].Pattern != "C" || got[2].Count != 3 {
		t.Errorf("C must rank last, got %+v", got)
	}
	// A and B tie at 5; scan order decides: C was seen first but has a
	// lower count, A precedes B.
	if got[0].Pattern != "A" || got[1].Pattern != "B" {
		t.Errorf("tie should keep scan order A then B, got %+v", got)
	}
}

func TestPatternFrequency_TruncatesToTopN(t *testing.T) {
	var events []event.SecurityEvent
	for i := 0; i < 12; i++ {
		p := string(rune('a' + i))
		for j := 0; j <= i; j++ {
			events = append(events, event.SecurityEvent{AttackPattern: p})
		}
	}

	got := PatternFrequency(events, TopPatterns)
	if len(got) != TopPatterns {
		t.Fatalf("got %d buckets, want %d", len(got), TopPatterns)
	}
	if got[0].Pattern != "l" || got[0].Count != 12 {
		t.Errorf("most frequent pattern wrong: %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Count > got[i-1].Count {
			t.Fatalf("counts not descending at %d: %+v", i, got)
		}
	}
}

func TestPatternFrequency_CaseSensitiveGrouping(t *testing.T) {
	events := []event.SecurityEvent{
		{AttackPattern: "xss"},
		{AttackPattern: "XSS"},
		{AttackPattern: "xss"},
	}

	got := PatternFrequency(events, TopPatterns)
	if len(got) != 2 {
		t.Fatalf("expected case-sensitive grouping into 2 buckets, got %+v", got)
	}
	if got[0].Pattern != "xss" || got[0].Count != 2 {
		t.Errorf("unexpected leading bucket: %+v", got[0])
	}
}

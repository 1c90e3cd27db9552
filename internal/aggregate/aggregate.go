// Package aggregate computes the dashboard summary statistics over an
// in-memory event set in a single pass. The Postgres store runs the
// equivalent aggregation in SQL; this package serves the in-memory store and
// the dashboard's local recompute.
package aggregate

import (
	"sort"

	"github.com/threatguard/threatguard/internal/event"
)

// TopPatterns is how many attack-pattern buckets the frequency aggregation
// keeps.
const TopPatterns = 10

// ComputeStats counts the event set in one pass. An event whose severity is
// outside the enum contributes to Total but to none of the four severity
// counters, so Total can exceed their sum.
func ComputeStats(events []event.SecurityEvent) event.Stats {
	var s event.Stats
	for i := range events {
		e := &events[i]
		s.Total++
		switch e.Severity {
		case event.SeverityCritical:
			s.Critical++
		case event.SeverityHigh:
			s.High++
		case event.SeverityMedium:
			s.Medium++
		case event.SeverityLow:
			s.Low++
		}
		if e.Blocked {
			s.Blocked++
		}
		if e.Processed {
			s.Processed++
		}
	}
	return s
}

// PatternFrequency groups events by exact attackPattern value (case-sensitive,
// no normalization), sorted by count descending and truncated to topN.
// Patterns seen earlier in scan order keep their relative position among equal
// counts.
func PatternFrequency(events []event.SecurityEvent, topN int) []event.PatternCount {
	index := make(map[string]int, len(events))
	counts := make([]event.PatternCount, 0, len(events))
	for i := range events {
		p := events[i].AttackPattern
		if at, seen := index[p]; seen {
			counts[at].Count++
			continue
		}
		index[p] = len(counts)
		counts = append(counts, event.PatternCount{Pattern: p, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if topN > 0 && len(counts) > topN {
		counts = counts[:topN]
	}
	return counts
}

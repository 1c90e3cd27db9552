package filter

import (
	"sort"

	"github.com/threatguard/threatguard/internal/event"
)

// Sort fields recognized by the dashboard table.
const (
	SortByTimestamp = "timestamp"
	SortByEventType = "eventType"
	SortBySeverity  = "severity"
)

// Sort describes the dashboard table ordering. The zero value is not useful;
// use DefaultSort.
type Sort struct {
	Field      string
	Descending bool
}

// DefaultSort is most-recent-first, the table's initial state.
func DefaultSort() Sort {
	return Sort{Field: SortByTimestamp, Descending: true}
}

// Toggle applies the table-header click rule: clicking the current field flips
// direction, clicking a new field selects it descending.
func (s *Sort) Toggle(field string) {
	if s.Field == field {
		s.Descending = !s.Descending
		return
	}
	s.Field = field
	s.Descending = true
}

// SortEvents orders events in place. timestamp compares as an instant; every
// other field compares lexically. The sort is stable so equal keys keep their
// fetched order.
func SortEvents(events []event.SecurityEvent, s Sort) {
	less := func(a, b *event.SecurityEvent) bool {
		if s.Field == SortByTimestamp {
			return a.Timestamp.Before(b.Timestamp)
		}
		return fieldString(a, s.Field) < fieldString(b, s.Field)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if s.Descending {
			return less(&events[j], &events[i])
		}
		return less(&events[i], &events[j])
	})
}

func fieldString(e *event.SecurityEvent, field string) string {
	switch field {
	case SortByEventType:
		return e.EventType
	case SortBySeverity:
		return string(e.Severity)
	default:
		return ""
	}
}

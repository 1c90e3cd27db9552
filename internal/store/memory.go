package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/threatguard/threatguard/internal/aggregate"
	"github.com/threatguard/threatguard/internal/event"
	"github.com/threatguard/threatguard/internal/filter"
)

// MemStore is an in-memory Store used when no POSTGRES_DSN is configured and
// by the test suite. Events are held in insertion order, which is what makes
// the timestamp-descending sort's tie-break stable.
type MemStore struct {
	mu     sync.RWMutex
	events []event.SecurityEvent
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Insert(_ context.Context, e *event.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

// matching returns a timestamp-descending copy of the events satisfying f.
// now is captured once here, per the filter contract.
func (m *MemStore) matching(f filter.Filter) []event.SecurityEvent {
	now := time.Now()
	m.mu.RLock()
	matched := filter.Apply(m.events, f, now)
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return matched
}

func (m *MemStore) List(_ context.Context, f filter.Filter, page, pageSize int) ([]event.SecurityEvent, int, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = SeverityQueryLimit
	}

	matched := m.matching(f)
	total := len(matched)

	skip := (page - 1) * pageSize
	if skip >= total {
		return []event.SecurityEvent{}, total, nil
	}
	end := skip + pageSize
	if end > total {
		end = total
	}
	return matched[skip:end], total, nil
}

func (m *MemStore) Matching(_ context.Context, f filter.Filter) ([]event.SecurityEvent, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return m.matching(f), nil
}

func (m *MemStore) BySeverity(_ context.Context, sev event.Severity) ([]event.SecurityEvent, error) {
	matched := m.matching(filter.Filter{Severity: string(sev)})
	if len(matched) > SeverityQueryLimit {
		matched = matched[:SeverityQueryLimit]
	}
	return matched, nil
}

func (m *MemStore) ByTimeRange(_ context.Context, start, end time.Time) ([]event.SecurityEvent, error) {
	m.mu.RLock()
	var matched []event.SecurityEvent
	for i := range m.events {
		ts := m.events[i].Timestamp
		if !ts.Before(start) && !ts.After(end) {
			matched = append(matched, m.events[i])
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if len(matched) > SeverityQueryLimit {
		matched = matched[:SeverityQueryLimit]
	}
	return matched, nil
}

func (m *MemStore) Stats(_ context.Context, f filter.Filter) (event.Stats, error) {
	if err := f.Validate(); err != nil {
		return event.Stats{}, err
	}
	return aggregate.ComputeStats(m.matching(f)), nil
}

func (m *MemStore) Patterns(_ context.Context, f filter.Filter) ([]event.PatternCount, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	// Frequency scan runs in insertion order so equal counts tie-break
	// deterministically.
	now := time.Now()
	m.mu.RLock()
	matched := filter.Apply(m.events, f, now)
	m.mu.RUnlock()
	return aggregate.PatternFrequency(matched, aggregate.TopPatterns), nil
}

func (m *MemStore) SetProcessed(_ context.Context, id string, processed bool) (*event.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID != id {
			continue
		}
		m.events[i].Processed = processed
		if processed {
			now := time.Now()
			m.events[i].ProcessedAt = &now
		} else {
			m.events[i].ProcessedAt = nil
		}
		updated := m.events[i]
		return &updated, nil
	}
	return nil, ErrNotFound
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) Close() {}

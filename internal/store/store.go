// Package store is the persistence layer for security events.
//
// Two implementations share one contract: PostgresStore for production and
// MemStore for local development and tests. Both evaluate the same
// filter.Filter semantics (MemStore directly, PostgresStore by translating
// the filter to SQL with the cutoff computed by the filter package).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/threatguard/threatguard/internal/event"
	"github.com/threatguard/threatguard/internal/filter"
)

// ErrNotFound is returned when an operation targets an id that is not in the
// store.
var ErrNotFound = errors.New("event not found")

// SeverityQueryLimit caps the severity-restricted and time-range queries.
const SeverityQueryLimit = 100

// Store is the event persistence contract. Read operations never mutate
// records. Concurrent SetProcessed calls against the same id are not
// serialized; the last write wins.
type Store interface {
	// Insert persists a new event. The caller is responsible for the
	// write-time invariants (id and timestamp assigned, severity coerced).
	Insert(ctx context.Context, e *event.SecurityEvent) error

	// List returns one page of matching events, timestamp descending with
	// ties in insertion order, plus the total match count ignoring
	// pagination. The total is computed even when the page is empty so a
	// caller can tell "zero results" from "page out of range".
	List(ctx context.Context, f filter.Filter, page, pageSize int) ([]event.SecurityEvent, int, error)

	// Matching returns every matching event, timestamp descending, no cap.
	// Used by export.
	Matching(ctx context.Context, f filter.Filter) ([]event.SecurityEvent, error)

	// BySeverity returns up to SeverityQueryLimit events of one severity,
	// timestamp descending.
	BySeverity(ctx context.Context, sev event.Severity) ([]event.SecurityEvent, error)

	// ByTimeRange returns up to SeverityQueryLimit events with
	// start <= timestamp <= end, timestamp descending.
	ByTimeRange(ctx context.Context, start, end time.Time) ([]event.SecurityEvent, error)

	// Stats counts the matching set in a single pass. A zero filter means
	// the whole store. Always returns a value; an empty store yields the
	// all-zero record.
	Stats(ctx context.Context, f filter.Filter) (event.Stats, error)

	// Patterns returns attack-pattern frequencies for the matching set,
	// count descending, top 10.
	Patterns(ctx context.Context, f filter.Filter) ([]event.PatternCount, error)

	// SetProcessed updates the operator-acknowledgement flag, stamping
	// processedAt when the flag is set and clearing it when unset. Returns
	// ErrNotFound for an unknown id.
	SetProcessed(ctx context.Context, id string, processed bool) (*event.SecurityEvent, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	Close()
}

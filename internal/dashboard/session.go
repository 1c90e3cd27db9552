// Package dashboard holds the client-side state for the threat dashboard: the
// last fetched page of events, derived statistics, and the local filter layer
// that drives tables and charts without a new round trip.
package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/threatguard/threatguard/internal/aggregate"
	"github.com/threatguard/threatguard/internal/client"
	"github.com/threatguard/threatguard/internal/event"
	"github.com/threatguard/threatguard/internal/filter"
)

// DefaultRefreshInterval matches the dashboard's 30-second auto-refresh.
const DefaultRefreshInterval = 30 * time.Second

const fetchLimit = 100

// Notifier surfaces transient, non-blocking notifications to the operator.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier is a Notifier that writes to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Success(msg string) { n.Logger.Info(msg) }
func (n LogNotifier) Error(msg string)   { n.Logger.Warn(msg) }

// Snapshot is a consistent view of the session state with the local filter
// layer applied.
type Snapshot struct {
	Events      []event.SecurityEvent
	Stats       event.Stats
	Loading     bool
	Err         error
	LastRefresh time.Time
}

// Config wires a Session's collaborators.
type Config struct {
	API      *client.Client
	Notifier Notifier
	Logger   *zap.Logger
	Interval time.Duration // refresh period; DefaultRefreshInterval if zero

	// OnRefresh, if set, is invoked with a fresh snapshot after every
	// completed refresh.
	OnRefresh func(Snapshot)
}

// Session owns the refresh lifecycle: one fetch on Start, then a fixed-
// interval timer until Stop. A refresh already in flight when the timer fires
// again is not cancelled, so overlapping requests are possible and the last
// response to resolve wins.
//
// Refresh failures never clear previously loaded data; a stale view beats a
// blank one. Only a failure on the very first load leaves the view empty.
type Session struct {
	api       *client.Client
	notifier  Notifier
	logger    *zap.Logger
	interval  time.Duration
	onRefresh func(Snapshot)

	mu          sync.Mutex
	events      []event.SecurityEvent
	stats       event.Stats
	loading     bool
	err         error
	lastRefresh time.Time
	local       filter.Filter
	search      string
	sort        filter.Sort

	done    chan struct{}
	stopped chan struct{}
}

// NewSession creates a stopped session. Call Start to begin refreshing.
func NewSession(cfg Config) *Session {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: cfg.Logger}
	}
	return &Session{
		api:       cfg.API,
		notifier:  notifier,
		logger:    cfg.Logger,
		interval:  interval,
		onRefresh: cfg.OnRefresh,
		loading:   true,
		sort:      filter.DefaultSort(),
	}
}

// Start fetches once immediately and then refreshes on the interval until
// Stop is called.
func (s *Session) Start() {
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run()
}

// Stop cancels the refresh timer and waits for the loop to exit. An in-flight
// refresh is left to finish on its own.
func (s *Session) Stop() {
	close(s.done)
	<-s.stopped
}

func (s *Session) run() {
	defer close(s.stopped)

	s.refresh()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			go s.refresh()
		case <-s.done:
			return
		}
	}
}

// Refresh performs one fetch cycle immediately, outside the timer.
func (s *Session) Refresh() { s.refresh() }

func (s *Session) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := s.api.Events(ctx, filter.Filter{}, 1, fetchLimit)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.loading = false
		s.mu.Unlock()

		// A backend that is simply not reachable is an expected
		// condition and stays quiet; anything else notifies.
		if !client.IsNetworkError(err) {
			s.notifier.Error("Failed to fetch security events")
		}
		s.logger.Warn("refresh failed", zap.Error(err))
		return
	}

	stats, statsErr := s.api.Stats(ctx)
	if statsErr != nil {
		// Server stats unavailable; recompute locally from the page we
		// already hold.
		stats = aggregate.ComputeStats(events)
	}

	s.mu.Lock()
	s.events = events
	s.stats = stats
	s.err = nil
	s.loading = false
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	if s.onRefresh != nil {
		s.onRefresh(s.Snapshot())
	}
}

// SetFilter replaces the local filter layer. Invalid values are rejected, not
// silently ignored.
func (s *Session) SetFilter(f filter.Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.local = f
	s.mu.Unlock()
	return nil
}

// SetSearch sets the free-text search term.
func (s *Session) SetSearch(term string) {
	s.mu.Lock()
	s.search = term
	s.mu.Unlock()
}

// ToggleSort applies the table-header click rule to the current sort.
func (s *Session) ToggleSort(field string) {
	s.mu.Lock()
	s.sort.Toggle(field)
	s.mu.Unlock()
}

// Sort returns the current table ordering.
func (s *Session) Sort() filter.Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// Snapshot applies the local filter, search, and sort to the cached events
// and returns the result with the current stats. The time window is evaluated
// against a single instant captured here.
func (s *Session) Snapshot() Snapshot {
	now := time.Now()

	s.mu.Lock()
	events := filter.Apply(s.events, s.local, now)
	if s.search != "" {
		kept := events[:0]
		for i := range events {
			if filter.SearchMatch(&events[i], s.search) {
				kept = append(kept, events[i])
			}
		}
		events = kept
	}
	snap := Snapshot{
		Events:      events,
		Stats:       s.stats,
		Loading:     s.loading,
		Err:         s.err,
		LastRefresh: s.lastRefresh,
	}
	sortBy := s.sort
	s.mu.Unlock()

	filter.SortEvents(snap.Events, sortBy)
	return snap
}

// MarkProcessed updates one event's acknowledgement flag on the server and,
// only after a successful acknowledgement, mutates the local copy. On failure
// the local state is untouched.
func (s *Session) MarkProcessed(ctx context.Context, id string, processed bool) error {
	updated, err := s.api.UpdateStatus(ctx, id, processed)
	if err != nil {
		s.notifier.Error("Failed to update event status")
		return err
	}

	s.mu.Lock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i] = *updated
			break
		}
	}
	s.mu.Unlock()

	s.notifier.Success("Event status updated successfully")
	return nil
}

// Export downloads the current filter's matching events in the given format.
func (s *Session) Export(ctx context.Context, format string) ([]byte, error) {
	s.mu.Lock()
	f := s.local
	s.mu.Unlock()

	data, err := s.api.Export(ctx, format, f)
	if err != nil {
		s.notifier.Error("Failed to export events")
		return nil, err
	}
	s.notifier.Success("Events exported successfully")
	return data, nil
}

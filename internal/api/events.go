package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threatguard/threatguard/internal/event"
	"github.com/threatguard/threatguard/internal/filter"
	"github.com/threatguard/threatguard/internal/store"
)

// filterFromQuery builds the shared filter from the three query dimensions.
func filterFromQuery(r *http.Request) filter.Filter {
	q := r.URL.Query()
	return filter.Filter{
		Severity:  q.Get("severity"),
		EventType: q.Get("eventType"),
		TimeRange: q.Get("timeRange"),
	}
}

func (d *Dependencies) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	if err := f.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: err.Error()})
		return
	}

	q := r.URL.Query()
	page := queryInt(q, "page", 1)
	limit := queryInt(q, "limit", 100)

	events, _, err := d.Store.List(r.Context(), f, page, limit)
	if err != nil {
		d.Logger.Error("failed to list events", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to fetch security events"})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (d *Dependencies) handleEventsBySeverity(w http.ResponseWriter, r *http.Request) {
	sev := event.Severity(r.PathValue("severity"))
	if !sev.Valid() {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: "invalid filter: severity \"" + string(sev) + "\""})
		return
	}

	events, err := d.Store.BySeverity(r.Context(), sev)
	if err != nil {
		d.Logger.Error("failed to list events by severity", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to fetch events by severity"})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (d *Dependencies) handleEventsByTimeRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startStr, endStr := q.Get("startDate"), q.Get("endDate")

	// Without both bounds the query is unconstrained, capped like the
	// severity query.
	if startStr == "" || endStr == "" {
		events, _, err := d.Store.List(r.Context(), filter.Filter{}, 1, store.SeverityQueryLimit)
		if err != nil {
			d.Logger.Error("failed to list events", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to fetch events by time range"})
			return
		}
		writeJSON(w, http.StatusOK, events)
		return
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: "startDate must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: "endDate must be RFC3339"})
		return
	}

	events, err := d.Store.ByTimeRange(r.Context(), start, end)
	if err != nil {
		d.Logger.Error("failed to list events by time range", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to fetch events by time range"})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (d *Dependencies) handleStats(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	if err := f.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: err.Error()})
		return
	}

	stats, err := d.Store.Stats(r.Context(), f)
	if err != nil {
		d.Logger.Error("failed to compute stats", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to fetch event statistics"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (d *Dependencies) handlePatterns(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	if err := f.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: err.Error()})
		return
	}

	patterns, err := d.Store.Patterns(r.Context(), f)
	if err != nil {
		d.Logger.Error("failed to compute attack patterns", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to fetch attack patterns"})
		return
	}
	if patterns == nil {
		patterns = []event.PatternCount{}
	}
	writeJSON(w, http.StatusOK, patterns)
}

func (d *Dependencies) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: "invalid request body"})
		return
	}

	e := req.toEvent(uuid.NewString(), time.Now().UTC())
	if err := d.Store.Insert(r.Context(), e); err != nil {
		d.Logger.Error("failed to insert event", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to store security event"})
		return
	}
	d.Mirror.Write(e)

	writeJSON(w, http.StatusCreated, e)
}

func (d *Dependencies) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusReq
	if err := readJSON(r, &req); err != nil || req.Processed == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: "processed is required"})
		return
	}

	updated, err := d.Store.SetProcessed(r.Context(), r.PathValue("id"), *req.Processed)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResp{Error: "Event not found"})
		return
	}
	if err != nil {
		d.Logger.Error("failed to update event status", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to update event status"})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

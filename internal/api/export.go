package api

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/threatguard/threatguard/internal/export"
	"github.com/threatguard/threatguard/internal/filter"
)

func (d *Dependencies) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "json"
	}

	// Export filters on severity and event type only; the whole matching
	// history is rendered, not a page.
	f := filter.Filter{Severity: q.Get("severity"), EventType: q.Get("eventType")}
	if err := f.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: err.Error()})
		return
	}

	events, err := d.Store.Matching(r.Context(), f)
	if err != nil {
		d.Logger.Error("failed to load events for export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to export events"})
		return
	}

	now := time.Now()
	body, contentType, err := export.Render(format, events, now)
	if errors.Is(err, export.ErrUnsupportedFormat) {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Error: "Unsupported export format"})
		return
	}
	if err != nil {
		d.Logger.Error("failed to render export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Error: "Failed to export events"})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(format, now))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

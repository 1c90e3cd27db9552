package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/threatguard/threatguard/internal/mirror"
	"github.com/threatguard/threatguard/internal/store"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Store  store.Store
	Mirror mirror.EventWriter
	Logger *zap.Logger
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Events
	mux.HandleFunc("GET /api/securityevents", deps.handleListEvents)
	mux.HandleFunc("POST /api/securityevents", deps.handleCreateEvent)
	mux.HandleFunc("GET /api/securityevents/severity/{severity}", deps.handleEventsBySeverity)
	mux.HandleFunc("GET /api/securityevents/timerange", deps.handleEventsByTimeRange)
	mux.HandleFunc("PATCH /api/securityevents/{id}", deps.handleUpdateStatus)

	// Aggregations
	mux.HandleFunc("GET /api/securityevents/stats", deps.handleStats)
	mux.HandleFunc("GET /api/securityevents/patterns", deps.handlePatterns)

	// Export
	mux.HandleFunc("GET /api/securityevents/export", deps.handleExport)

	// Health check
	mux.HandleFunc("GET /api/health", deps.handleHealth)

	return corsMiddleware(requestLogging(mux, deps.Logger))
}

func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	database := "Connected"
	if err := d.Store.Ping(r.Context()); err != nil {
		database = "Disconnected"
	}
	writeJSON(w, http.StatusOK, HealthResp{
		Status:    "OK",
		Message:   "ThreatGuard API is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  database,
	})
}

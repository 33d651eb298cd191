package handler

import (
	"log/slog"
	"net/http"

	"github.com/wealthforge/network/internal/domain"
)

// HandleHealthz reports liveness, including a datastore ping.
// GET /healthz
func HandleHealthz(db domain.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			slog.Error("health check", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

package http

import (
	"log/slog"
	"net/http"
)

// handleDashboard serves the finance aggregate, memoized between
// writes.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if agg, ok := s.dashboardCache.Get(dashboardCacheKey); ok {
		slog.DebugContext(r.Context(), "Dashboard served from cache")
		writeJSON(w, http.StatusOK, agg)
		return
	}

	agg, err := s.finance.Dashboard(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.dashboardCache.Set(dashboardCacheKey, agg)
	writeJSON(w, http.StatusOK, agg)
}

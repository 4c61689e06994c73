package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.DocumentStats(r.Context())
	if err != nil {
		s.log.Error("stats", "error", err)
		jsonError(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents":   stats,
		"queue_depth": s.orch.QueueDepth(),
	})
}

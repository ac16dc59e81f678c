package api

import (
	"net/http"
	"strconv"
)

// handleListReadings returns recent sensor readings, newest first.
// Query parameters: limit (default 50, max 200).
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.readings.List(r.Context(), queryInt(r, "limit"))
	if err != nil {
		s.logger.Error("listing sensor readings failed", "error", err)
		writeInternalError(w, "failed to list readings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"readings": readings,
		"count":    len(readings),
	})
}

// handleReadingStats returns count, average, min and max over all
// logged sensor readings.
func (s *Server) handleReadingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.readings.Stats(r.Context())
	if err != nil {
		s.logger.Error("computing reading stats failed", "error", err)
		writeInternalError(w, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// queryInt parses an integer query parameter, returning 0 when absent
// or malformed. Repositories clamp zero to their defaults.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmoralesv/panel-core/internal/panel"
)

// toggleResponse is the response body for POST /control/leds/{id}/toggle.
type toggleResponse struct {
	ID    int  `json:"id"`
	State bool `json:"state"`
}

// pressResponse is the response body for POST /control/pushbuttons/{id}/press.
type pressResponse struct {
	ID      int  `json:"id"`
	Pressed bool `json:"pressed"`
}

// handleToggleLED flips one LED through the synchronizer and returns
// the new state.
func (s *Server) handleToggleLED(w http.ResponseWriter, r *http.Request) {
	id, ok := entityIDParam(w, r)
	if !ok {
		return
	}

	state, err := s.sync.ToggleLED(r.Context(), id, claimsFrom(r).Subject)
	if err != nil {
		writeControlError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toggleResponse{ID: id, State: state})
}

// handlePressPushbutton simulates a physical press of one pushbutton.
// The response is sent once the press phase has been applied; the
// release follows after the hold duration.
func (s *Server) handlePressPushbutton(w http.ResponseWriter, r *http.Request) {
	id, ok := entityIDParam(w, r)
	if !ok {
		return
	}

	if err := s.sync.PressPushbutton(r.Context(), id, claimsFrom(r).Subject); err != nil {
		writeControlError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pressResponse{ID: id, Pressed: true})
}

// entityIDParam parses the {id} route parameter. On failure it writes
// the error response and returns false.
func entityIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "id must be an integer")
		return 0, false
	}
	return id, true
}

// writeControlError maps synchronizer errors to HTTP responses.
func writeControlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, panel.ErrInvalidIndex):
		writeNotFound(w, "no such entity")
	case errors.Is(err, panel.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "panel is shutting down")
	default:
		writeInternalError(w, "command failed")
	}
}

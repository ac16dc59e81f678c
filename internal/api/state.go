package api

import (
	"net/http"

	"github.com/dmoralesv/panel-core/internal/panel"
)

// Transport status values reported by GET /state.
const (
	transportConnected = "connected"
	transportManual    = "manual"
)

// stateResponse is the response body for GET /state.
type stateResponse struct {
	panel.Snapshot
	Transport string `json:"transport"`
}

// handleState returns the full panel snapshot plus transport status.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	transport := transportManual
	if s.transportUp != nil && s.transportUp() {
		transport = transportConnected
	}

	writeJSON(w, http.StatusOK, stateResponse{
		Snapshot:  s.store.Snapshot(),
		Transport: transport,
	})
}

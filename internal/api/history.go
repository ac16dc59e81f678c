package api

import (
	"net/http"

	"github.com/dmoralesv/panel-core/internal/panel"
)

// handleListTransitions returns state transitions, newest first.
// Query parameters: entity_type (led or pushbutton), entity_id,
// limit (default 50, max 200).
func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	if entityType != "" && entityType != panel.EntityLED && entityType != panel.EntityPushbutton {
		writeBadRequest(w, "entity_type must be led or pushbutton")
		return
	}

	filter := panel.TransitionFilter{
		EntityType: entityType,
		EntityID:   queryInt(r, "entity_id"),
		Limit:      queryInt(r, "limit"),
	}

	transitions, err := s.transitions.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing state transitions failed", "error", err)
		writeInternalError(w, "failed to list transitions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transitions": transitions,
		"count":       len(transitions),
	})
}

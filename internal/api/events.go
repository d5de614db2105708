package api

import (
	"encoding/json"
	"net/http"

	"github.com/telenexus-admin/Api/internal/service"
)

// GatewayEvents is the push boundary for unsolicited gateway notifications.
// The gateway has no retry semantics worth triggering, so the response is
// always 200; the outcome rides in the body.
func (h *Handler) GatewayEvents(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusOK, service.Outcome{
			Status: service.OutcomeError,
			Reason: "invalid json payload",
		})
		return
	}

	writeJSON(w, http.StatusOK, h.ingestor.Ingest(r.Context(), payload))
}

package http

import (
	"net/http"
	"strings"

	"spendsync/internal/domain/recurring"
	"spendsync/internal/shared/middleware"
)

type RecurringHandler struct {
	streams recurring.Repository
}

func NewRecurringHandler(streams recurring.Repository) *RecurringHandler {
	return &RecurringHandler{streams: streams}
}

// HandleListRecurring returns the caller's streams, optionally filtered by ?flow=inflow|outflow.
func (h *RecurringHandler) HandleListRecurring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var flow *recurring.Flow
	if raw := r.URL.Query().Get("flow"); raw != "" {
		f := recurring.Flow(strings.ToUpper(raw))
		if f != recurring.FlowInflow && f != recurring.FlowOutflow {
			http.Error(w, "flow must be inflow or outflow", http.StatusBadRequest)
			return
		}
		flow = &f
	}

	streams, err := h.streams.ListByOwnerID(r.Context(), ownerID, flow)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if streams == nil {
		streams = []*recurring.Stream{}
	}

	writeJSON(w, http.StatusOK, streams)
}

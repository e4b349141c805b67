package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/events"
)

// EventHandler receives cross-context domain events from the surrounding
// bounded contexts (content library, assignments, messaging) and republishes
// them on the in-process bus. Delivery onto the bus is fire-and-forget; the
// notification handlers isolate their own failures.
type EventHandler struct {
	bus    *events.Bus
	logger zerolog.Logger
}

func NewEventHandler(bus *events.Bus, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		bus:    bus,
		logger: logger.With().Str("handler", "event").Logger(),
	}
}

func (h *EventHandler) ContentAssigned(w http.ResponseWriter, r *http.Request) {
	var evt events.ContentAssigned
	if !h.decode(w, r, &evt) {
		return
	}
	h.bus.Publish(r.Context(), evt)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *EventHandler) AssignmentCompleted(w http.ResponseWriter, r *http.Request) {
	var evt events.AssignmentCompleted
	if !h.decode(w, r, &evt) {
		return
	}
	h.bus.Publish(r.Context(), evt)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *EventHandler) AllAssignmentsCompleted(w http.ResponseWriter, r *http.Request) {
	var evt events.AllAssignmentsCompleted
	if !h.decode(w, r, &evt) {
		return
	}
	h.bus.Publish(r.Context(), evt)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *EventHandler) MessageSent(w http.ResponseWriter, r *http.Request) {
	var evt events.MessageSent
	if !h.decode(w, r, &evt) {
		return
	}
	h.bus.Publish(r.Context(), evt)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *EventHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

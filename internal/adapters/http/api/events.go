package api

import (
	"context"
	"net/http"

	"github.com/okian/techradar/internal/domain/model"
)

// EventsHandler serves the event lifecycle routes.
type EventsHandler struct {
	svc EventService
	ids IdentityResolver
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(svc EventService, ids IdentityResolver) *EventsHandler {
	return &EventsHandler{svc: svc, ids: ids}
}

// HandleCreate handles POST /v1/events. The caller, when identified, is
// recorded as creator.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	creator, err := identity(r, h.ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := h.svc.CreateEvent(r.Context(), req.Name, req.Initiative, creator)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleList handles GET /v1/events?full=bool.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	full, err := queryBool(r, "full")
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.svc.ListEvents(r.Context(), full)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGet handles GET /v1/events/{eventID}.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, h.svc.GetEvent)
}

// HandleGetWithCounts handles GET /v1/events/{eventID}/counts.
func (h *EventsHandler) HandleGetWithCounts(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.GetEventWithCounts(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleCancel handles DELETE /v1/events/{eventID}?hard=bool.
func (h *EventsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	hard, err := queryBool(r, "hard")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.CancelEvent(r.Context(), r.PathValue("eventID"), hard); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleOpen handles POST /v1/events/{eventID}/open.
func (h *EventsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, h.svc.OpenEvent)
}

// HandleClose handles POST /v1/events/{eventID}/close.
func (h *EventsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, h.svc.CloseEvent)
}

// HandleUndoCancel handles POST /v1/events/{eventID}/undo-cancel.
func (h *EventsHandler) HandleUndoCancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, h.svc.UndoCancel)
}

// HandleOpenForRevote handles POST /v1/events/{eventID}/revote/open.
func (h *EventsHandler) HandleOpenForRevote(w http.ResponseWriter, r *http.Request) {
	var req roundRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := h.svc.OpenForRevote(r.Context(), r.PathValue("eventID"), req.Round)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleCloseForRevote handles POST /v1/events/{eventID}/revote/close.
func (h *EventsHandler) HandleCloseForRevote(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, h.svc.CloseForRevote)
}

// HandleNextFlowStep handles POST /v1/events/{eventID}/next-step. The body
// may pin the round the caller saw; without one the current round is used.
func (h *EventsHandler) HandleNextFlowStep(w http.ResponseWriter, r *http.Request) {
	var req roundRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := h.svc.MoveToNextFlowStep(r.Context(), r.PathValue("eventID"), req.Round)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleAddTechnology handles POST /v1/events/{eventID}/technologies.
func (h *EventsHandler) HandleAddTechnology(w http.ResponseWriter, r *http.Request) {
	var req technologyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tech, err := h.svc.AddNewTechnology(r.Context(), r.PathValue("eventID"), req.technology())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tech)
}

// HandleSetTechnologies handles PUT /v1/events/{eventID}/technologies.
func (h *EventsHandler) HandleSetTechnologies(w http.ResponseWriter, r *http.Request) {
	var req setTechnologiesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := h.svc.SetTechnologies(r.Context(), r.PathValue("eventID"), req.technologies())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *EventsHandler) respond(w http.ResponseWriter, r *http.Request, status int,
	op func(ctx context.Context, id string) (model.VotingEvent, error),
) {
	ev, err := op(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, ev)
}

package api

import (
	"context"
	"net/http"

	"github.com/okian/techradar/internal/domain/model"
)

// CatalogHandler serves the technology catalog routes.
type CatalogHandler struct {
	svc CatalogService
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// HandleList handles GET /v1/technologies?all=bool.
func (h *CatalogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := queryBool(r, "all")
	if err != nil {
		writeError(w, r, err)
		return
	}
	techs, err := h.svc.GetTechnologies(r.Context(), all)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, techs)
}

// HandleAdd handles POST /v1/technologies.
func (h *CatalogHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req technologyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tech, err := h.svc.AddTechnology(r.Context(), req.technology())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tech)
}

// HandleLoad handles POST /v1/technologies/load. Without a technologies
// list the built-in catalog is installed.
func (h *CatalogHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	var req setTechnologiesRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.svc.LoadTechnologies(r.Context(), req.technologies())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// HandleGet handles GET /v1/technologies/{techID}.
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.GetTechnology)
}

// HandleUpdate handles PUT /v1/technologies/{techID}.
func (h *CatalogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req technologyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tech, err := h.svc.UpdateTechnology(r.Context(), r.PathValue("techID"), req.technology())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tech)
}

// HandleCancel handles POST /v1/technologies/{techID}/cancel.
func (h *CatalogHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.CancelTechnology)
}

// HandleRestore handles POST /v1/technologies/{techID}/restore.
func (h *CatalogHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.svc.RestoreTechnology)
}

// HandleDelete handles DELETE /v1/technologies/{techID}.
func (h *CatalogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTechnology(r.Context(), r.PathValue("techID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) respond(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id string) (model.Technology, error),
) {
	tech, err := op(r.Context(), r.PathValue("techID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tech)
}

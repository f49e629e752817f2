package api

import (
	"net/http"
	"strings"

	"github.com/okian/techradar/internal/domain/model"
)

// RecommendationsHandler serves the recommendation lock.
type RecommendationsHandler struct {
	svc RecommendationService
	ids IdentityResolver
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(svc RecommendationService, ids IdentityResolver) *RecommendationsHandler {
	return &RecommendationsHandler{svc: svc, ids: ids}
}

// HandleSetAuthor handles PUT .../recommendation-author. An empty author
// in the body falls back to the caller's identity.
func (h *RecommendationsHandler) HandleSetAuthor(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	author, err := h.author(r, req.Author)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tech, err := h.svc.SetRecommendationAuthor(r.Context(), r.PathValue("eventID"), r.PathValue("techID"), author)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tech)
}

// HandleSet handles PUT .../recommendation.
func (h *RecommendationsHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	author, err := h.author(r, req.Author)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec := model.Recommendation{Author: author, Text: req.Text}
	if req.Ring != "" {
		if rec.Ring, err = model.ParseRing(req.Ring); err != nil {
			writeError(w, r, err)
			return
		}
	}
	tech, err := h.svc.SetRecommendation(r.Context(), r.PathValue("eventID"), r.PathValue("techID"), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tech)
}

// HandleReset handles DELETE .../recommendation. Only the lock holder,
// identified by bearer token, may reset it.
func (h *RecommendationsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	requester, err := requireIdentity(r, h.ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tech, err := h.svc.ResetRecommendation(r.Context(), r.PathValue("eventID"), r.PathValue("techID"), requester)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tech)
}

func (h *RecommendationsHandler) author(r *http.Request, fromBody string) (string, error) {
	if a := strings.TrimSpace(fromBody); a != "" {
		return a, nil
	}
	return requireIdentity(r, h.ids)
}

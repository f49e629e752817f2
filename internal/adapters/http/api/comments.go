package api

import (
	"net/http"
)

// CommentsHandler serves comment threads on technologies and votes.
type CommentsHandler struct {
	svc CommentService
}

// NewCommentsHandler creates a new comments handler.
func NewCommentsHandler(svc CommentService) *CommentsHandler {
	return &CommentsHandler{svc: svc}
}

// HandleAddTechComment handles POST /v1/events/{eventID}/technologies/{techID}/comments.
func (h *CommentsHandler) HandleAddTechComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.svc.AddCommentToTech(r.Context(), r.PathValue("eventID"), r.PathValue("techID"), req.Text, req.Author)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// HandleReplyTechComment handles
// POST /v1/events/{eventID}/technologies/{techID}/comments/{commentID}/replies.
func (h *CommentsHandler) HandleReplyTechComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.svc.AddReplyToTechComment(r.Context(),
		r.PathValue("eventID"), r.PathValue("techID"), r.PathValue("commentID"), req.Text, req.Author)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// HandleReplyVoteComment handles POST /v1/votes/{voteID}/comments/{commentID}/replies.
func (h *CommentsHandler) HandleReplyVoteComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.svc.AddReplyToVoteComment(r.Context(), r.PathValue("voteID"), r.PathValue("commentID"), req.Text, req.Author)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// HandleVoteComments handles GET /v1/technologies/{techID}/vote-comments?eventId=.
func (h *CommentsHandler) HandleVoteComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.GetVotesCommentsForTech(r.Context(), r.PathValue("techID"), r.URL.Query().Get("eventId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleVotesWithComments handles
// GET /v1/events/{eventID}/technologies/{techID}/votes-with-comments.
func (h *CommentsHandler) HandleVotesWithComments(w http.ResponseWriter, r *http.Request) {
	votes, err := h.svc.GetVotesWithCommentsForTechAndEvent(r.Context(), r.PathValue("techID"), r.PathValue("eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, votes)
}

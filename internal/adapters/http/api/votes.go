package api

import (
	"net/http"

	"github.com/okian/techradar/internal/adapters/repository"
	service "github.com/okian/techradar/internal/app"
	"github.com/okian/techradar/internal/domain/model"
)

// VotesHandler serves votes, tallies and blips.
type VotesHandler struct {
	svc VoteService
}

// NewVotesHandler creates a new votes handler.
func NewVotesHandler(svc VoteService) *VotesHandler {
	return &VotesHandler{svc: svc}
}

// HandleSave handles POST /v1/events/{eventID}/votes.
func (h *VotesHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req saveVotesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cred := service.Credentials{EventID: r.PathValue("eventID"), Voter: req.Voter.voter()}
	votes, err := h.svc.SaveVotes(r.Context(), cred, req.ballots(), clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, votes)
}

// HandleDelete handles DELETE /v1/events/{eventID}/votes.
func (h *VotesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DeleteVotes(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// HandleList handles GET /v1/events/{eventID}/votes?technologyId=&round=.
func (h *VotesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	round, err := queryInt(r, "round")
	if err != nil {
		writeError(w, r, err)
		return
	}
	votes, err := h.svc.GetVotes(r.Context(), repository.VoteFilter{
		EventID:      r.PathValue("eventID"),
		TechnologyID: r.URL.Query().Get("technologyId"),
		Round:        round,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, votes)
}

// HandleVoters handles GET /v1/events/{eventID}/voters.
func (h *VotesHandler) HandleVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := h.svc.GetVoters(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voters)
}

// HandleHasVoted handles GET /v1/events/{eventID}/has-voted?firstName=&lastName=&nickname=.
func (h *VotesHandler) HandleHasVoted(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := model.Voter{FirstName: q.Get("firstName"), LastName: q.Get("lastName"), Nickname: q.Get("nickname")}
	voted, err := h.svc.HasAlreadyVoted(r.Context(), r.PathValue("eventID"), v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, votedResponse{Voted: voted})
}

// HandleWinner handles POST /v1/events/{eventID}/winner.
func (h *VotesHandler) HandleWinner(w http.ResponseWriter, r *http.Request) {
	winner, err := h.svc.CalculateWinner(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, winner)
}

// HandleTallies handles GET /v1/events/{eventID}/tallies?round=.
func (h *VotesHandler) HandleTallies(w http.ResponseWriter, r *http.Request) {
	round, err := queryInt(r, "round")
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.svc.AggregateVotes(r.Context(), r.PathValue("eventID"), round)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// HandleBlips handles POST /v1/events/{eventID}/blips?round=. Blips are
// stored on the event, hence POST.
func (h *VotesHandler) HandleBlips(w http.ResponseWriter, r *http.Request) {
	round, err := queryInt(r, "round")
	if err != nil {
		writeError(w, r, err)
		return
	}
	blips, err := h.svc.CalculateBlips(r.Context(), r.PathValue("eventID"), round)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blips)
}

// HandleAllBlips handles GET /v1/blips.
func (h *VotesHandler) HandleAllBlips(w http.ResponseWriter, r *http.Request) {
	blips, err := h.svc.CalculateBlipsFromAllEvents(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blips)
}

// Package api exposes the voting service over HTTP with JSON bodies.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/techradar/internal/adapters/repository"
	service "github.com/okian/techradar/internal/app"
	"github.com/okian/techradar/internal/domain/model"
	"github.com/okian/techradar/internal/domain/tally"
	"github.com/okian/techradar/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty body")

// Service is everything the handlers need from the voting service.
type Service interface {
	EventService
	VoteService
	CatalogService
	CommentService
	RecommendationService
	StatsProvider

	Ready(ctx context.Context) error
	ResolveIdentity(ctx context.Context, token string) (string, error)
}

// EventService covers the event lifecycle.
type EventService interface {
	CreateEvent(ctx context.Context, name, initiative, creator string) (model.VotingEvent, error)
	GetEvent(ctx context.Context, id string) (model.VotingEvent, error)
	GetEventWithCounts(ctx context.Context, id string) (service.EventWithCounts, error)
	ListEvents(ctx context.Context, full bool) ([]model.VotingEvent, error)
	OpenEvent(ctx context.Context, id string) (model.VotingEvent, error)
	CloseEvent(ctx context.Context, id string) (model.VotingEvent, error)
	CancelEvent(ctx context.Context, id string, hard bool) error
	UndoCancel(ctx context.Context, id string) (model.VotingEvent, error)
	OpenForRevote(ctx context.Context, id string, round int) (model.VotingEvent, error)
	CloseForRevote(ctx context.Context, id string) (model.VotingEvent, error)
	MoveToNextFlowStep(ctx context.Context, id string, round int) (model.VotingEvent, error)
	AddNewTechnology(ctx context.Context, id string, tech model.Technology) (model.Technology, error)
	SetTechnologies(ctx context.Context, id string, techs []model.Technology) (model.VotingEvent, error)
}

// VoteService covers votes, tallies and blips.
type VoteService interface {
	SaveVotes(ctx context.Context, cred service.Credentials, ballots []service.Ballot, ip string) ([]model.Vote, error)
	DeleteVotes(ctx context.Context, eventID string) (int, error)
	GetVotes(ctx context.Context, f repository.VoteFilter) ([]model.Vote, error)
	HasAlreadyVoted(ctx context.Context, eventID string, voter model.Voter) (bool, error)
	GetVoters(ctx context.Context, eventID string) ([]model.Voter, error)
	CalculateWinner(ctx context.Context, eventID string) (model.Voter, error)
	AggregateVotes(ctx context.Context, eventID string, round int) ([]tally.Result, error)
	CalculateBlips(ctx context.Context, eventID string, round int) ([]model.Blip, error)
	CalculateBlipsFromAllEvents(ctx context.Context) ([]model.Blip, error)
}

// CatalogService covers the technology catalog events snapshot on first open.
type CatalogService interface {
	GetTechnologies(ctx context.Context, includeCancelled bool) ([]model.Technology, error)
	GetTechnology(ctx context.Context, id string) (model.Technology, error)
	AddTechnology(ctx context.Context, t model.Technology) (model.Technology, error)
	UpdateTechnology(ctx context.Context, id string, t model.Technology) (model.Technology, error)
	CancelTechnology(ctx context.Context, id string) (model.Technology, error)
	RestoreTechnology(ctx context.Context, id string) (model.Technology, error)
	DeleteTechnology(ctx context.Context, id string) error
	LoadTechnologies(ctx context.Context, techs []model.Technology) (int, error)
}

// CommentService covers comment threads on votes and technologies.
type CommentService interface {
	AddCommentToTech(ctx context.Context, eventID, techID, text, author string) (string, error)
	AddReplyToTechComment(ctx context.Context, eventID, techID, commentID, text, author string) (string, error)
	AddReplyToVoteComment(ctx context.Context, voteID, commentID, text, author string) (string, error)
	GetVotesCommentsForTech(ctx context.Context, techID, eventID string) ([]model.Comment, error)
	GetVotesWithCommentsForTechAndEvent(ctx context.Context, techID, eventID string) ([]model.Vote, error)
}

// RecommendationService covers the recommendation lock.
type RecommendationService interface {
	SetRecommendationAuthor(ctx context.Context, eventID, techID, author string) (model.Technology, error)
	SetRecommendation(ctx context.Context, eventID, techID string, rec model.Recommendation) (model.Technology, error)
	ResetRecommendation(ctx context.Context, eventID, techID, requester string) (model.Technology, error)
}

// Server wires HTTP routes for the voting API.
type Server struct {
	healthHandler          *HealthHandler
	statsHandler           *StatsHandler
	eventsHandler          *EventsHandler
	votesHandler           *VotesHandler
	catalogHandler         *CatalogHandler
	commentsHandler        *CommentsHandler
	recommendationsHandler *RecommendationsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(svc Service) *Server {
	return &Server{
		healthHandler:          NewHealthHandler(svc),
		statsHandler:           NewStatsHandler(svc),
		eventsHandler:          NewEventsHandler(svc, svc),
		votesHandler:           NewVotesHandler(svc),
		catalogHandler:         NewCatalogHandler(svc),
		commentsHandler:        NewCommentsHandler(svc),
		recommendationsHandler: NewRecommendationsHandler(svc, svc),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /metrics", "metrics", s.healthHandler.HandleHealth)
	route("GET /readyz", "readyz", s.healthHandler.HandleReady)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	e := s.eventsHandler
	route("POST /v1/events", "create_event", e.HandleCreate)
	route("GET /v1/events", "list_events", e.HandleList)
	route("GET /v1/events/{eventID}", "get_event", e.HandleGet)
	route("DELETE /v1/events/{eventID}", "cancel_event", e.HandleCancel)
	route("GET /v1/events/{eventID}/counts", "get_event_with_counts", e.HandleGetWithCounts)
	route("POST /v1/events/{eventID}/open", "open_event", e.HandleOpen)
	route("POST /v1/events/{eventID}/close", "close_event", e.HandleClose)
	route("POST /v1/events/{eventID}/undo-cancel", "undo_cancel", e.HandleUndoCancel)
	route("POST /v1/events/{eventID}/revote/open", "open_for_revote", e.HandleOpenForRevote)
	route("POST /v1/events/{eventID}/revote/close", "close_for_revote", e.HandleCloseForRevote)
	route("POST /v1/events/{eventID}/next-step", "next_flow_step", e.HandleNextFlowStep)
	route("POST /v1/events/{eventID}/technologies", "add_technology", e.HandleAddTechnology)
	route("PUT /v1/events/{eventID}/technologies", "set_technologies", e.HandleSetTechnologies)

	v := s.votesHandler
	route("POST /v1/events/{eventID}/votes", "save_votes", v.HandleSave)
	route("GET /v1/events/{eventID}/votes", "get_votes", v.HandleList)
	route("DELETE /v1/events/{eventID}/votes", "delete_votes", v.HandleDelete)
	route("GET /v1/events/{eventID}/voters", "get_voters", v.HandleVoters)
	route("GET /v1/events/{eventID}/has-voted", "has_already_voted", v.HandleHasVoted)
	route("POST /v1/events/{eventID}/winner", "calculate_winner", v.HandleWinner)
	route("GET /v1/events/{eventID}/tallies", "aggregate_votes", v.HandleTallies)
	route("POST /v1/events/{eventID}/blips", "calculate_blips", v.HandleBlips)
	route("GET /v1/blips", "calculate_blips_all_events", v.HandleAllBlips)

	t := s.catalogHandler
	route("GET /v1/technologies", "get_technologies", t.HandleList)
	route("POST /v1/technologies", "add_catalog_technology", t.HandleAdd)
	route("POST /v1/technologies/load", "load_technologies", t.HandleLoad)
	route("GET /v1/technologies/{techID}", "get_technology", t.HandleGet)
	route("PUT /v1/technologies/{techID}", "update_technology", t.HandleUpdate)
	route("POST /v1/technologies/{techID}/cancel", "cancel_technology", t.HandleCancel)
	route("POST /v1/technologies/{techID}/restore", "restore_technology", t.HandleRestore)
	route("DELETE /v1/technologies/{techID}", "delete_technology", t.HandleDelete)

	c := s.commentsHandler
	route("POST /v1/events/{eventID}/technologies/{techID}/comments", "add_comment_to_tech", c.HandleAddTechComment)
	route("POST /v1/events/{eventID}/technologies/{techID}/comments/{commentID}/replies",
		"add_reply_to_tech_comment", c.HandleReplyTechComment)
	route("GET /v1/events/{eventID}/technologies/{techID}/votes-with-comments",
		"get_votes_with_comments", c.HandleVotesWithComments)
	route("POST /v1/votes/{voteID}/comments/{commentID}/replies", "add_reply_to_vote_comment", c.HandleReplyVoteComment)
	route("GET /v1/technologies/{techID}/vote-comments", "get_votes_comments_for_tech", c.HandleVoteComments)

	r := s.recommendationsHandler
	route("PUT /v1/events/{eventID}/technologies/{techID}/recommendation-author",
		"set_recommendation_author", r.HandleSetAuthor)
	route("PUT /v1/events/{eventID}/technologies/{techID}/recommendation", "set_recommendation", r.HandleSet)
	route("DELETE /v1/events/{eventID}/technologies/{techID}/recommendation", "reset_recommendation", r.HandleReset)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports err with the status and code of its kind. Server-side
// failures are logged; client errors are not.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorResponse{Code: codeOf(err), Message: err.Error()}
	if author, ok := model.CurrentAuthor(err); ok {
		body.CurrentAuthor = author
	}
	if status >= http.StatusInternalServerError {
		logger.Get().Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return wrap(ErrBadRequest, errEmptyBody)
		}
		return wrap(ErrBadRequest, err)
	}
	return validate(dst)
}

// decodeOptional is decode for bodies that may be absent. An empty body,
// whatever its framing, leaves dst at its zero value.
func decodeOptional(r *http.Request, dst any) error {
	err := decode(r, dst)
	if errors.Is(err, errEmptyBody) {
		return nil
	}
	return err
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, wrap(ErrBadRequest, errors.New(name+" must be a non-negative integer"))
	}
	return n, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, wrap(ErrBadRequest, errors.New(name+" must be a boolean"))
	}
	return b, nil
}

// clientIP returns the caller address, preferring the first forwarded hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

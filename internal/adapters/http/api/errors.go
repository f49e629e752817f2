package api

import (
	"errors"
	"net/http"

	"github.com/okian/techradar/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("missing bearer token")
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	CurrentAuthor string `json:"currentAuthor,omitempty"`
}

// statusOf maps a domain error kind to its HTTP status.
func statusOf(err error) int {
	switch model.Kind(err) {
	case model.ErrEventNotFound, model.ErrVoteNotFound,
		model.ErrTechnologyNotPresent, model.ErrCommentTargetNotFound:
		return http.StatusNotFound
	case model.ErrDuplicateEventName, model.ErrDuplicateVote, model.ErrTechnologyAlreadyPresent,
		model.ErrRecommendationAuthorAlreadySet, model.ErrRecommendationAuthorDifferent,
		model.ErrStaleRound, model.ErrIllegalTransition, model.ErrConcurrentUpdate:
		return http.StatusConflict
	case model.ErrInvalidInput:
		return http.StatusBadRequest
	case model.ErrTimeout:
		return http.StatusGatewayTimeout
	case model.ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// codeOf returns the machine code reported for err.
func codeOf(err error) string {
	if model.Kind(err) != nil {
		return model.Code(err)
	}
	switch {
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	}
	return "internal"
}

// wrap attaches cause to an API error kind.
func wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return &apiError{kind: kind, cause: cause}
}

type apiError struct {
	kind  error
	cause error
}

func (e *apiError) Error() string   { return e.kind.Error() + ": " + e.cause.Error() }
func (e *apiError) Unwrap() []error { return []error{e.kind, e.cause} }

package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers match them with errors.Is.
var (
	ErrDuplicateEventName             = errors.New("duplicate event name")
	ErrDuplicateVote                  = errors.New("duplicate vote")
	ErrEventNotFound                  = errors.New("event not found")
	ErrVoteNotFound                   = errors.New("vote not found")
	ErrTechnologyNotPresent           = errors.New("technology not present")
	ErrTechnologyAlreadyPresent       = errors.New("technology already present")
	ErrCommentTargetNotFound          = errors.New("comment target not found")
	ErrRecommendationAuthorAlreadySet = errors.New("recommendation author already set")
	ErrRecommendationAuthorDifferent  = errors.New("recommendation author different")
	ErrStaleRound                     = errors.New("stale round")
	ErrIllegalTransition              = errors.New("illegal transition")
	ErrConcurrentUpdate               = errors.New("concurrent update")
	ErrInvalidInput                   = errors.New("invalid input")
	ErrTimeout                        = errors.New("timeout")
	ErrStoreUnavailable               = errors.New("store unavailable")
)

// kinds maps each sentinel to its stable machine code.
var kinds = []struct { //nolint:gochecknoglobals // fixed table
	err  error
	code string
}{
	{ErrDuplicateEventName, "duplicate_event_name"},
	{ErrDuplicateVote, "duplicate_vote"},
	{ErrEventNotFound, "event_not_found"},
	{ErrVoteNotFound, "vote_not_found"},
	{ErrTechnologyNotPresent, "technology_not_present"},
	{ErrTechnologyAlreadyPresent, "technology_already_present"},
	{ErrCommentTargetNotFound, "comment_target_not_found"},
	{ErrRecommendationAuthorAlreadySet, "recommendation_author_already_set"},
	{ErrRecommendationAuthorDifferent, "recommendation_author_different"},
	{ErrStaleRound, "stale_round"},
	{ErrIllegalTransition, "illegal_transition"},
	{ErrConcurrentUpdate, "concurrent_update"},
	{ErrInvalidInput, "invalid_input"},
	{ErrTimeout, "timeout"},
	{ErrStoreUnavailable, "store_unavailable"},
}

// Kind returns the sentinel err belongs to, or nil when it is not a domain error.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err
		}
	}
	return nil
}

// Code returns the machine code of err's kind, "internal" otherwise.
func Code(err error) string {
	k := Kind(err)
	for _, e := range kinds {
		if e.err == k {
			return e.code
		}
	}
	return "internal"
}

// OpError records the operation, the error kind and an optional cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

// NewKind builds an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// WrapKind attaches cause to an error of the given kind for op.
func WrapKind(op string, kind, cause error) error {
	if cause == nil {
		return NewKind(op, kind)
	}
	return &OpError{Op: op, Kind: kind, Err: cause}
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AuthorError is returned by the recommendation lock and carries the
// author currently holding it.
type AuthorError struct {
	Kind          error
	CurrentAuthor string
}

func (e *AuthorError) Error() string {
	return fmt.Sprintf("%s: current author %q", e.Kind, e.CurrentAuthor)
}

func (e *AuthorError) Unwrap() error { return e.Kind }

// CurrentAuthor extracts the lock holder from err, if it carries one.
func CurrentAuthor(err error) (string, bool) {
	var ae *AuthorError
	if errors.As(err, &ae) {
		return ae.CurrentAuthor, true
	}
	return "", false
}

package repository

import "errors"

// Sentinel kinds for store errors that never leave the service layer.
var (
	// ErrVersionConflict reports a lost compare-and-set on an event document.
	ErrVersionConflict = errors.New("event version conflict")
	ErrClosed          = errors.New("store closed")
)

type errDuplicateKey string

func (e errDuplicateKey) Error() string { return "key already taken: " + string(e) }

type errForeignVote string

func (e errForeignVote) Error() string { return "vote belongs to another event: " + string(e) }

package service

import "errors"

var (
	errNotStarted        = errors.New("service not started")
	errRetriesExhausted  = errors.New("event kept changing while updating")
	errNoVoter           = errors.New("voter identity is empty")
	errEmptyBallot       = errors.New("no votes submitted")
	errNoVoters          = errors.New("event has no voters")
	errEmptyToken        = errors.New("empty bearer token")
	errMissingTechnology = errors.New("technology id or name required")
	errEmptyTechName     = errors.New("technology name must not be empty")
)

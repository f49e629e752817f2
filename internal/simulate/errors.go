package simulate

import (
	"errors"
	"fmt"
)

// Error values.
var (
	ErrConfig   = errors.New("invalid simulation config")
	ErrMismatch = errors.New("server blips differ from local tally")
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Method string
	Path   string
	Status int
	Code   string
	Msg    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, e.Code, e.Msg)
}

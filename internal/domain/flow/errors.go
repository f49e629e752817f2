package flow

import "errors"

var (
	errEmptyName = errors.New("name must not be empty")
	errNotOpened = errors.New("event has no technology snapshot yet")
)

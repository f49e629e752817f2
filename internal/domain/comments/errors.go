package comments

import "errors"

var errEmptyText = errors.New("comment text must not be empty")

package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrBadDay     = errors.New("invalid day; must be YYYY-MM-DD")
)

package repository

import "errors"

// Sentinel kinds for assignment store errors.
var (
	ErrEmptyCategoryID = errors.New("empty category id")
)

package scheduler

import "errors"

// Sentinel errors returned by Scheduler commands.
var (
	// ErrPlacementRejected means the candidate placement produced at least
	// one error-severity conflict warning and was not committed.
	ErrPlacementRejected = errors.New("placement rejected")

	ErrUnknownCategory  = errors.New("unknown category")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrUnknownDay       = errors.New("day is not a competition day")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidPlacement = errors.New("invalid placement")
	ErrInvalidEvent     = errors.New("invalid event")
	ErrInvalidConfig    = errors.New("invalid schedule config")
)

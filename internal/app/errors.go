package service

import (
	"errors"

	workerpool "github.com/okian/tatami/internal/adapters/mq/worker"
)

var (
	// ErrInvalidTournament is returned for an empty tournament id.
	ErrInvalidTournament = errors.New("invalid tournament id")
	// ErrUnknownTournament is returned by reads of a tournament that was
	// never written.
	ErrUnknownTournament = workerpool.ErrUnknownTournament
	// ErrCommandPending is returned for a command id whose first attempt
	// has not finished yet.
	ErrCommandPending = errors.New("command still in progress")
	// ErrNotStarted is returned by operations that need a running service.
	ErrNotStarted = errors.New("service not started")
)

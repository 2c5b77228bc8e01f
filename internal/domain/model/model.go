// Package model holds messages passed between the scheduler and the
// write-behind persistence pipeline.
package model

import "time"

// SaveJob asks the persistence workers to flush a tournament whose schedule
// reached Revision.
type SaveJob struct {
	TournamentID string    `json:"tournament_id"`
	Revision     uint64    `json:"revision"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Package persistence stores whole schedule records keyed by tournament id.
//
// Every backend treats Save as "write if not older": a record whose revision
// is below the stored one is dropped, so out-of-order saves from concurrent
// workers never roll a tournament back.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/tatami/internal/domain/types"
)

// Backend names used in metrics and logs.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Sentinel errors.
var (
	ErrNotFound      = errors.New("schedule record not found")
	ErrInvalidRecord = errors.New("invalid schedule record")
)

// Persister loads and saves schedule records.
type Persister interface {
	// Load returns ErrNotFound when nothing is stored for the tournament.
	Load(ctx context.Context, tournamentID string) (*types.ScheduleRecord, error)
	Save(ctx context.Context, rec *types.ScheduleRecord) error
	Close() error
}

func encode(rec *types.ScheduleRecord) ([]byte, error) {
	if rec == nil || rec.TournamentID == "" {
		return nil, ErrInvalidRecord
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return b, nil
}

func decode(b []byte) (*types.ScheduleRecord, error) {
	var rec types.ScheduleRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if rec.Assignments == nil {
		rec.Assignments = map[string]types.Assignment{}
	}
	return &rec, nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

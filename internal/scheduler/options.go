package scheduler

import (
	"context"
	"time"

	"github.com/okian/tatami/pkg/logger"
)

// ChangeFunc is called after every committed mutation with the new revision.
// It runs outside the scheduler lock.
type ChangeFunc func(ctx context.Context, tournamentID string, revision uint64)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used by the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOnChange registers the hook that persists committed mutations.
func WithOnChange(fn ChangeFunc) Option {
	return func(s *Scheduler) {
		s.onChange = fn
	}
}

// WithNow overrides the clock used to stamp records.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

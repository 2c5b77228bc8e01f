// Package scheduler owns one tournament's schedule and serializes every
// command against it.
//
// A Scheduler holds the assignment store, the slot grid derived from the
// current configuration, the category list and the custom events. A single
// mutex covers each command end to end, so evaluate-then-write placements and
// whole auto-pack batches are atomic with respect to each other.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/tatami/internal/adapters/repository"
	"github.com/okian/tatami/internal/domain/slotgrid"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/logger"
)

// Scheduler is the per-tournament scheduling engine.
type Scheduler struct {
	mu sync.Mutex

	id         string
	store      repository.Store
	grid       *slotgrid.Grid
	categories []types.Category
	catIndex   map[string]int
	events     []types.CustomEvent
	revision   uint64
	updatedAt  time.Time

	log      logger.Logger
	onChange ChangeFunc
	now      func() time.Time
}

// GridInfo describes the slot grid derived from the current configuration.
type GridInfo struct {
	Config   types.ScheduleConfig `json:"config"`
	Days     []types.Day          `json:"days"`
	Slots    []types.Clock        `json:"slots"`
	Mats     []int                `json:"mats"`
	Capacity int                  `json:"capacity"`
}

// New creates an empty scheduler for a tournament.
func New(tournamentID string, cfg types.ScheduleConfig, opts ...Option) *Scheduler {
	s := &Scheduler{
		id:       tournamentID,
		store:    repository.NewMemoryStore(repository.WithTournament(tournamentID)),
		grid:     slotgrid.NewGrid(cfg),
		catIndex: map[string]int{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("scheduler")
	}
	return s
}

// FromRecord rebuilds a scheduler from its persisted representation.
func FromRecord(rec *types.ScheduleRecord, opts ...Option) *Scheduler {
	s := New(rec.TournamentID, rec.Config, opts...)
	s.store.Replace(context.Background(), rec.Assignments)
	s.setCategoriesLocked(rec.Categories)
	s.events = append([]types.CustomEvent(nil), rec.Events...)
	s.revision = rec.Revision
	s.updatedAt = rec.UpdatedAt
	return s
}

// ID returns the tournament id.
func (s *Scheduler) ID() string { return s.id }

// Revision returns the number of committed mutations.
func (s *Scheduler) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Grid describes the current configuration and the grid derived from it.
func (s *Scheduler) Grid(ctx context.Context) GridInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GridInfo{
		Config:   s.grid.Config(),
		Days:     s.grid.Days(),
		Slots:    s.grid.Slots(),
		Mats:     s.grid.Mats(),
		Capacity: s.grid.Capacity(),
	}
}

// Reconfigure replaces the mat, day and session layout. Existing assignments
// are kept as they are, even when they now fall outside the grid.
func (s *Scheduler) Reconfigure(ctx context.Context, cfg types.ScheduleConfig) error {
	switch {
	case cfg.MatCount < 1 || cfg.MatCount > slotgrid.MaxMatCount:
		return fmt.Errorf("%w: mat_count must be between 1 and %d", ErrInvalidConfig, slotgrid.MaxMatCount)
	case cfg.DayCount < 0 || cfg.DayCount > slotgrid.MaxCompetitionDays:
		return fmt.Errorf("%w: day_count must be between 0 and %d", ErrInvalidConfig, slotgrid.MaxCompetitionDays)
	case len(cfg.CompetitionDays) > slotgrid.MaxCompetitionDays:
		return fmt.Errorf("%w: more than %d competition days", ErrInvalidConfig, slotgrid.MaxCompetitionDays)
	}
	return s.mutate(ctx, func() (bool, error) {
		s.grid = slotgrid.NewGrid(cfg)
		if len(s.grid.Slots()) == 0 {
			s.log.Warn(ctx, "session config produces no slots available",
				logger.String("tournament_id", s.id))
		}
		return true, nil
	})
}

// Snapshot returns the durable representation of the schedule.
func (s *Scheduler) Snapshot(ctx context.Context) *types.ScheduleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	cats := make([]types.Category, len(s.categories))
	copy(cats, s.categories)
	return &types.ScheduleRecord{
		TournamentID: s.id,
		Revision:     s.revision,
		Config:       s.grid.Config(),
		Categories:   cats,
		Assignments:  s.store.Snapshot(ctx),
		Events:       append([]types.CustomEvent{}, s.events...),
		UpdatedAt:    s.updatedAt,
	}
}

// mutate runs fn under the lock. When fn reports a change the revision is
// bumped and the change hook is called after the lock is released.
func (s *Scheduler) mutate(ctx context.Context, fn func() (bool, error)) error {
	s.mu.Lock()
	changed, err := fn()
	var rev uint64
	if changed {
		s.revision++
		s.updatedAt = s.now().UTC()
		rev = s.revision
	}
	s.mu.Unlock()

	if changed && s.onChange != nil {
		s.onChange(ctx, s.id, rev)
	}
	return err
}

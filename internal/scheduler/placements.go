package scheduler

import (
	"context"
	"fmt"

	"github.com/okian/tatami/internal/domain/conflict"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/logger"
	"github.com/okian/tatami/pkg/metrics"
)

// PlaceRequest asks for a category to be placed or moved. A nil Order takes
// the next free position at that mat and time.
type PlaceRequest struct {
	CategoryID string
	Day        types.Day
	Mat        int
	Time       types.Clock
	Order      *int
}

// Evaluate classifies a candidate placement without committing it.
func (s *Scheduler) Evaluate(ctx context.Context, categoryID string, day types.Day, mat int, t types.Clock) ([]types.ConflictWarning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validateTargetLocked(categoryID, day, mat, t); err != nil {
		return nil, err
	}
	return conflict.Evaluate(ctx, s.store, s.categories, categoryID, mat, t, day), nil
}

// Place evaluates and, when no error-severity warning is present, commits the
// placement. Evaluation and write happen under one lock. A rejected placement
// returns the warnings together with ErrPlacementRejected.
func (s *Scheduler) Place(ctx context.Context, req PlaceRequest) (types.Assignment, []types.ConflictWarning, error) {
	var (
		placed   types.Assignment
		warnings []types.ConflictWarning
	)
	err := s.mutate(ctx, func() (bool, error) {
		if err := s.validateTargetLocked(req.CategoryID, req.Day, req.Mat, req.Time); err != nil {
			return false, err
		}
		warnings = conflict.Evaluate(ctx, s.store, s.categories, req.CategoryID, req.Mat, req.Time, req.Day)
		for _, w := range warnings {
			metrics.RecordConflictWarning(string(w.Type), string(w.Severity))
		}
		if conflict.HasErrors(warnings) {
			metrics.RecordPlacementRejected(s.id)
			s.log.Info(ctx, "placement rejected",
				logger.String("tournament_id", s.id),
				logger.String("category_id", req.CategoryID),
				logger.Int("mat", req.Mat),
				logger.String("time", req.Time.String()),
				logger.String("day", string(req.Day)),
				logger.Int("warnings", len(warnings)))
			return false, ErrPlacementRejected
		}

		order := 0
		if req.Order != nil {
			order = *req.Order
		} else {
			order = s.nextOrderLocked(ctx, req.CategoryID, req.Day, req.Mat, req.Time)
		}
		placed = types.Assignment{Day: req.Day, Mat: req.Mat, Time: req.Time, Order: order}
		s.store.Set(ctx, req.CategoryID, placed)
		metrics.RecordPlacementCommitted(s.id)
		return true, nil
	})
	if err != nil {
		return types.Assignment{}, warnings, err
	}
	return placed, warnings, nil
}

// Unassign removes a category's placement. It reports whether one existed.
func (s *Scheduler) Unassign(ctx context.Context, categoryID string) (bool, error) {
	var removed bool
	err := s.mutate(ctx, func() (bool, error) {
		if _, ok := s.catIndex[categoryID]; !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
		}
		removed = s.store.Remove(ctx, categoryID)
		return removed, nil
	})
	return removed, err
}

// Assignment returns the placement of one category.
func (s *Scheduler) Assignment(ctx context.Context, categoryID string) (types.Assignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(ctx, categoryID)
}

// Placements lists assignments, for one day or for all days when day is empty.
func (s *Scheduler) Placements(ctx context.Context, day types.Day) []types.Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	if day == "" {
		return s.store.All(ctx)
	}
	return s.store.ForDay(ctx, day)
}

func (s *Scheduler) validateTargetLocked(categoryID string, day types.Day, mat int, t types.Clock) error {
	if _, ok := s.catIndex[categoryID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}
	if !s.grid.HasDay(day) {
		return fmt.Errorf("%w: %q", ErrUnknownDay, day)
	}
	if mat < 1 || mat > s.grid.MatCount() {
		return fmt.Errorf("%w: mat %d outside 1..%d", ErrInvalidPlacement, mat, s.grid.MatCount())
	}
	if !t.Valid() {
		return fmt.Errorf("%w: time is required", ErrInvalidPlacement)
	}
	return nil
}

// nextOrderLocked is one past the highest order already used at (day, mat, t).
func (s *Scheduler) nextOrderLocked(ctx context.Context, self string, day types.Day, mat int, t types.Clock) int {
	next := 0
	for _, p := range s.store.ForMat(ctx, mat, day) {
		if p.CategoryID == self || p.Time != t {
			continue
		}
		if p.Order >= next {
			next = p.Order + 1
		}
	}
	return next
}

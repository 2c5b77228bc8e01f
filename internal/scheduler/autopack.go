package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/tatami/internal/domain/packer"
	"github.com/okian/tatami/internal/domain/timeline"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/logger"
	"github.com/okian/tatami/pkg/metrics"
)

// Auto-pack modes.
const (
	ModeSingleDay = "single_day"
	ModeAllDays   = "all_days"
)

// PackReport summarizes an auto-pack run.
type PackReport struct {
	Mode       string            `json:"mode"`
	Day        types.Day         `json:"day,omitempty"`
	Placed     int               `json:"placed"`
	Overflow   int               `json:"overflow"`
	NoSlots    bool              `json:"no_slots"`
	Overlaps   int               `json:"overlaps"`
	Placements []types.Placement `json:"placements"`
}

// AutoPack places every unassigned category. With a day it packs that day
// only; with an empty day it packs across all competition days. The run holds
// the scheduler lock throughout and a cancelled ctx leaves the schedule as it
// was. Overlaps is the number of category pairs sharing competitors after the
// run, since packing ignores rosters.
func (s *Scheduler) AutoPack(ctx context.Context, day types.Day) (PackReport, error) {
	report := PackReport{Mode: ModeAllDays, Day: day}
	if day != "" {
		report.Mode = ModeSingleDay
	}

	start := time.Now()
	err := s.mutate(ctx, func() (bool, error) {
		var unassigned []types.Category
		for _, c := range s.categories {
			if _, ok := s.store.Get(ctx, c.ID); !ok {
				unassigned = append(unassigned, c)
			}
		}
		if len(unassigned) == 0 {
			return false, nil
		}

		var (
			res packer.Result
			err error
		)
		if day != "" {
			if !s.grid.HasDay(day) {
				return false, fmt.Errorf("%w: %q", ErrUnknownDay, day)
			}
			res, err = packer.AutoAssign(ctx, s.store, unassigned, s.grid.MatCount(), s.grid.Slots(), day)
		} else {
			res, err = packer.AutoAssignAll(ctx, s.store, unassigned, s.grid)
		}
		if err != nil {
			return false, err
		}

		report.Placed = len(res.Placements)
		report.Overflow = res.Overflow
		report.NoSlots = res.NoSlots
		report.Placements = res.Placements
		return true, nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("autopack", errorKind(err))
		return PackReport{}, err
	}

	report.Overlaps = len(s.Conflicts(ctx))
	if report.Placements == nil {
		report.Placements = []types.Placement{}
	}

	took := time.Since(start)
	metrics.RecordAutoPack(report.Mode, report.Placed, report.Overflow, float64(took.Microseconds())/1000)

	fields := []logger.Field{
		logger.String("tournament_id", s.id),
		logger.String("mode", report.Mode),
		logger.Int("placed", report.Placed),
		logger.Int("overflow", report.Overflow),
		logger.Int("overlaps", report.Overlaps),
		logger.Duration("took", took),
	}
	switch {
	case report.NoSlots && report.Placed > 0:
		s.log.Warn(ctx, "auto-pack: no slots available", fields...)
	case report.Overflow > 0:
		s.log.Warn(ctx, "auto-pack exceeded grid capacity", fields...)
	default:
		s.log.Info(ctx, "auto-pack committed", fields...)
	}
	return report, nil
}

// Timeline builds the per-mat schedule for one day.
func (s *Scheduler) Timeline(ctx context.Context, day types.Day) []types.MatTimeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return timeline.Build(ctx, s.store, s.categories, s.events, day, s.grid.MatCount())
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, packer.ErrNoCompetitionDays):
		return "no_days"
	case errors.Is(err, ErrUnknownDay):
		return "unknown_day"
	default:
		return "other"
	}
}

package seeding

import (
	"errors"
	"fmt"

	"github.com/okian/tatami/internal/domain/types"
)

// ErrVerification is returned when a seeded schedule is inconsistent.
var ErrVerification = errors.New("verification failed")

type slotKey struct {
	day  types.Day
	mat  int
	time types.Clock
}

// countDoubleBooked returns the number of (day, mat, time) slots holding more
// than one category. Untimed entries never clash.
func countDoubleBooked(timelines map[types.Day][]types.MatTimeline) (entries, doubled int) {
	used := make(map[slotKey]int)
	for day, mats := range timelines {
		for _, mt := range mats {
			for _, e := range mt.Entries {
				if e.Kind != types.EntryCategory {
					continue
				}
				entries++
				if !e.Time.Valid() {
					continue
				}
				k := slotKey{day: day, mat: mt.Mat, time: e.Time}
				used[k]++
				if used[k] == 2 {
					doubled++
				}
			}
		}
	}
	return entries, doubled
}

// verify checks the fetched views against the auto-pack report. Double
// booking is tolerated only when the pack overflowed grid capacity.
func verify(report *Report) error {
	var errs []error
	if report.TimelineEntries != report.CategoriesSent {
		errs = append(errs, fmt.Errorf("%w: %d categories on timelines, %d sent",
			ErrVerification, report.TimelineEntries, report.CategoriesSent))
	}
	if report.Placed != report.CategoriesSent {
		errs = append(errs, fmt.Errorf("%w: %d placed, %d sent",
			ErrVerification, report.Placed, report.CategoriesSent))
	}
	if report.DoubleBookedSlots > 0 && report.Overflow == 0 {
		errs = append(errs, fmt.Errorf("%w: %d double-booked slots without overflow",
			ErrVerification, report.DoubleBookedSlots))
	}
	if report.ConflictPairs != report.Overlaps {
		errs = append(errs, fmt.Errorf("%w: %d conflict pairs, auto-pack reported %d",
			ErrVerification, report.ConflictPairs, report.Overlaps))
	}
	return errors.Join(errs...)
}

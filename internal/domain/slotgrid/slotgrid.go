// Package slotgrid derives the valid slots, mats and days of a schedule.
//
// Builders never fail loudly: a malformed window yields no slots, which the
// auto-packer then treats as zero capacity.
package slotgrid

import (
	"time"

	"github.com/okian/tatami/internal/domain/types"
)

// DefaultGranularityMinutes is the slot width used when none is configured.
const DefaultGranularityMinutes = 30

// Upper bounds on the grid. Builders truncate to them; the scheduler rejects
// configs that exceed them.
const (
	MaxMatCount        = 256
	MaxCompetitionDays = 366
)

// BuildSlots discretizes [start, end] into slots of granularity minutes.
// The window's start is always included and end is included when it falls on
// the grid. start == end yields a single slot; start > end yields none.
func BuildSlots(start, end string, granularity int) []types.Clock {
	if granularity <= 0 {
		return nil
	}
	from, ok := types.ParseClock(start)
	if !ok {
		return nil
	}
	to, ok := types.ParseClock(end)
	if !ok || from > to {
		return nil
	}
	slots := make([]types.Clock, 0, int(to-from)/granularity+1)
	for t := from; t <= to; t += types.Clock(granularity) {
		slots = append(slots, t)
	}
	return slots
}

// SessionSlots returns the morning slots followed by the afternoon slots.
func SessionSlots(cfg types.SessionConfig) []types.Clock {
	g := cfg.SlotGranularityMinutes
	morning := BuildSlots(cfg.MorningStart, cfg.MorningEnd, g)
	afternoon := BuildSlots(cfg.AfternoonStart, cfg.AfternoonEnd, g)
	out := make([]types.Clock, 0, len(morning)+len(afternoon))
	out = append(out, morning...)
	return append(out, afternoon...)
}

// CompetitionDays returns the ordered competition dates. An explicit list
// wins (malformed entries dropped); otherwise DayCount consecutive days from
// StartDate are generated. At most MaxCompetitionDays are returned.
func CompetitionDays(cfg types.ScheduleConfig) []types.Day {
	if len(cfg.CompetitionDays) > 0 {
		days := make([]types.Day, 0, min(len(cfg.CompetitionDays), MaxCompetitionDays))
		for _, d := range cfg.CompetitionDays {
			if len(days) == MaxCompetitionDays {
				break
			}
			if parsed, ok := types.ParseDay(string(d)); ok {
				days = append(days, parsed)
			}
		}
		return days
	}
	start, err := time.Parse(types.DayLayout, cfg.StartDate)
	if err != nil {
		return nil
	}
	n := min(max(cfg.DayCount, 1), MaxCompetitionDays)
	days := make([]types.Day, n)
	for i := range days {
		days[i] = types.Day(start.AddDate(0, 0, i).Format(types.DayLayout))
	}
	return days
}

// Mats enumerates mat numbers 1..matCount, capped at MaxMatCount.
func Mats(matCount int) []int {
	if matCount < 1 {
		return nil
	}
	matCount = min(matCount, MaxMatCount)
	mats := make([]int, matCount)
	for i := range mats {
		mats[i] = i + 1
	}
	return mats
}

package slotgrid

import "github.com/okian/tatami/internal/domain/types"

// Grid caches the slots, days and mats derived from one ScheduleConfig.
// It is immutable; reconfiguring builds a new Grid.
type Grid struct {
	cfg   types.ScheduleConfig
	slots []types.Clock
	days  []types.Day
	mats  []int
}

// NewGrid derives the grid for cfg.
func NewGrid(cfg types.ScheduleConfig) *Grid {
	return &Grid{
		cfg:   cfg,
		slots: SessionSlots(cfg.Session),
		days:  CompetitionDays(cfg),
		mats:  Mats(cfg.MatCount),
	}
}

// Config returns the configuration the grid was built from.
func (g *Grid) Config() types.ScheduleConfig { return g.cfg }

// Slots returns a copy of the per-day slot sequence.
func (g *Grid) Slots() []types.Clock { return append([]types.Clock(nil), g.slots...) }

// Days returns a copy of the competition days.
func (g *Grid) Days() []types.Day { return append([]types.Day(nil), g.days...) }

// Mats returns a copy of the mat numbers.
func (g *Grid) Mats() []int { return append([]int(nil), g.mats...) }

// MatCount is the number of configured mats.
func (g *Grid) MatCount() int { return len(g.mats) }

// LastSlot is the final slot of a day, or NoClock when the grid is empty.
func (g *Grid) LastSlot() types.Clock {
	if len(g.slots) == 0 {
		return types.NoClock
	}
	return g.slots[len(g.slots)-1]
}

// HasDay reports whether d is a configured competition day.
func (g *Grid) HasDay(d types.Day) bool {
	for _, day := range g.days {
		if day == d {
			return true
		}
	}
	return false
}

// Capacity is the number of (day, mat, slot) triples in the grid.
func (g *Grid) Capacity() int {
	return len(g.days) * len(g.mats) * len(g.slots)
}

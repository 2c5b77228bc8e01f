// Package packer places unassigned categories into free mat capacity.
//
// Packing is capacity-based only. It never consults the conflict detector, so
// a packed schedule can double-book competitors; callers surface that through
// conflict.ScanAll afterwards.
package packer

import (
	"context"

	"github.com/okian/tatami/internal/domain/slotgrid"
	"github.com/okian/tatami/internal/domain/types"
)

// OverflowOrder is the order given to categories force-placed when every
// (day, mat) pair is full. It sorts them after regular entries.
const OverflowOrder = 9999

// Store is the part of the assignment store the packer reads and commits to.
type Store interface {
	ForMat(ctx context.Context, mat int, day types.Day) []types.Placement
	ApplyBatch(ctx context.Context, batch []types.Placement) error
}

// Result describes one packing run.
type Result struct {
	Placements []types.Placement `json:"placements"`
	// Overflow counts categories placed beyond grid capacity.
	Overflow int `json:"overflow"`
	// NoSlots is set when the session config produced no slots at all.
	NoSlots bool `json:"no_slots"`
}

// AutoAssign packs categories onto one day. Mats are visited round-robin and
// each mat fills its slots in order, starting after whatever it already holds.
// Categories beyond a mat's capacity collapse onto the last slot; with no
// slots at all they are placed without a time.
//
// The batch is computed in full and committed atomically. If ctx is done
// before the commit nothing is written.
func AutoAssign(ctx context.Context, store Store, unassigned []types.Category, matCount int, daySlots []types.Clock, day types.Day) (Result, error) {
	if matCount < 1 {
		matCount = 1
	}

	free := make([]int, matCount)
	for m := range free {
		free[m] = len(store.ForMat(ctx, m+1, day))
	}

	res := Result{
		Placements: make([]types.Placement, 0, len(unassigned)),
		NoSlots:    len(daySlots) == 0,
	}
	for rr, c := range unassigned {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		m := rr % matCount
		idx := free[m]

		t := types.NoClock
		if len(daySlots) > 0 {
			t = daySlots[min(idx, len(daySlots)-1)]
		}
		if idx >= len(daySlots) {
			res.Overflow++
		}

		res.Placements = append(res.Placements, types.Placement{
			CategoryID: c.ID,
			Assignment: types.Assignment{Day: day, Mat: m + 1, Time: t, Order: idx},
		})
		free[m]++
	}

	if err := store.ApplyBatch(ctx, res.Placements); err != nil {
		return Result{}, err
	}
	return res, nil
}

// AutoAssignAll packs categories across every competition day of grid. It
// walks (day, mat) pairs day-major in round-robin order and gives each
// category the next pair with a free slot. When no pair has room the category
// is force-placed on the last day, mat 1, at the final slot with OverflowOrder.
func AutoAssignAll(ctx context.Context, store Store, unassigned []types.Category, grid *slotgrid.Grid) (Result, error) {
	days := grid.Days()
	if len(days) == 0 {
		return Result{}, ErrNoCompetitionDays
	}
	matCount := max(grid.MatCount(), 1)
	slots := grid.Slots()

	type pair struct {
		day  types.Day
		mat  int
		used int
	}
	pairs := make([]pair, 0, len(days)*matCount)
	for _, d := range days {
		for m := 1; m <= matCount; m++ {
			pairs = append(pairs, pair{day: d, mat: m, used: len(store.ForMat(ctx, m, d))})
		}
	}

	res := Result{
		Placements: make([]types.Placement, 0, len(unassigned)),
		NoSlots:    len(slots) == 0,
	}
	cursor := 0
	for _, c := range unassigned {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		placed := false
		for k := 0; k < len(pairs); k++ {
			i := (cursor + k) % len(pairs)
			p := &pairs[i]
			if p.used >= len(slots) {
				continue
			}
			res.Placements = append(res.Placements, types.Placement{
				CategoryID: c.ID,
				Assignment: types.Assignment{Day: p.day, Mat: p.mat, Time: slots[p.used], Order: p.used},
			})
			p.used++
			cursor = i + 1
			placed = true
			break
		}
		if placed {
			continue
		}

		res.Overflow++
		res.Placements = append(res.Placements, types.Placement{
			CategoryID: c.ID,
			Assignment: types.Assignment{Day: days[len(days)-1], Mat: 1, Time: grid.LastSlot(), Order: OverflowOrder},
		})
	}

	if err := store.ApplyBatch(ctx, res.Placements); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Package conflict classifies candidate placements against the current
// schedule and scans category rosters for shared competitors.
package conflict

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/tatami/internal/domain/identity"
	"github.com/okian/tatami/internal/domain/types"
)

// DayReader is the part of the assignment store Evaluate needs.
type DayReader interface {
	ForDay(ctx context.Context, day types.Day) []types.Placement
}

// Evaluate classifies placing targetID at (mat, t, day). It never mutates the
// store. Warnings come grouped by precedence: hard slot clashes, same-time
// competitor clashes, then other-slot advisories. Within a group they are
// ordered by time, mat and category id.
//
// A candidate without a time occupies no instant, so it can only produce
// other-slot advisories.
func Evaluate(ctx context.Context, store DayReader, categories []types.Category, targetID string, mat int, t types.Clock, day types.Day) []types.ConflictWarning {
	byID := index(categories)
	target, haveTarget := byID[targetID]

	others := store.ForDay(ctx, day)
	sort.SliceStable(others, func(i, j int) bool {
		a, b := others[i], others[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Mat != b.Mat {
			return a.Mat < b.Mat
		}
		return a.CategoryID < b.CategoryID
	})

	var hard, same, other []types.ConflictWarning
	for _, p := range others {
		if p.CategoryID == targetID {
			continue
		}
		oc, known := byID[p.CategoryID]
		timed := t.Valid() && p.Time.Valid()

		if timed && p.Time == t && p.Mat == mat {
			hard = append(hard, types.ConflictWarning{
				Type:              types.HardSlotClash,
				Severity:          types.SeverityError,
				Message:           fmt.Sprintf("mat %d at %s on %s is already taken by %s", mat, t, day, label(oc, p.CategoryID)),
				OtherCategoryID:   p.CategoryID,
				OtherCategoryName: oc.Name,
				OtherPlacement:    p.Assignment,
			})
			continue
		}
		if !haveTarget || !known {
			continue
		}
		overlap := identity.FindRosterOverlap(target, oc)
		if len(overlap) == 0 {
			continue
		}
		if timed && p.Time == t {
			same = append(same, types.ConflictWarning{
				Type:              types.AthleteSameTime,
				Severity:          types.SeverityError,
				Message:           fmt.Sprintf("%d competitor(s) also compete in %s on mat %d at %s", len(overlap), label(oc, p.CategoryID), p.Mat, p.Time),
				Competitors:       overlap,
				OtherCategoryID:   p.CategoryID,
				OtherCategoryName: oc.Name,
				OtherPlacement:    p.Assignment,
			})
			continue
		}
		other = append(other, types.ConflictWarning{
			Type:              types.AthleteOtherSlot,
			Severity:          types.SeverityWarning,
			Message:           fmt.Sprintf("%d competitor(s) also compete in %s on mat %d %s", len(overlap), label(oc, p.CategoryID), p.Mat, when(p.Time)),
			Competitors:       overlap,
			OtherCategoryID:   p.CategoryID,
			OtherCategoryName: oc.Name,
			OtherPlacement:    p.Assignment,
		})
	}

	out := make([]types.ConflictWarning, 0, len(hard)+len(same)+len(other))
	out = append(out, hard...)
	out = append(out, same...)
	return append(out, other...)
}

// HasErrors reports whether any warning blocks the placement.
func HasErrors(ws []types.ConflictWarning) bool {
	for _, w := range ws {
		if w.Severity == types.SeverityError {
			return true
		}
	}
	return false
}

// ScanAll returns every unordered pair of categories that share competitors,
// in input order. A category is never paired with itself.
func ScanAll(categories []types.Category) []types.OverlapPair {
	var out []types.OverlapPair
	for i := 0; i < len(categories); i++ {
		for j := i + 1; j < len(categories); j++ {
			if categories[i].ID == categories[j].ID {
				continue
			}
			if overlap := identity.FindRosterOverlap(categories[i], categories[j]); len(overlap) > 0 {
				out = append(out, types.OverlapPair{
					CategoryA: categories[i].ID,
					CategoryB: categories[j].ID,
					Overlap:   overlap,
				})
			}
		}
	}
	return out
}

func index(categories []types.Category) map[string]types.Category {
	m := make(map[string]types.Category, len(categories))
	for _, c := range categories {
		m[c.ID] = c
	}
	return m
}

func label(c types.Category, id string) string {
	if c.Name != "" {
		return c.Name
	}
	return id
}

func when(t types.Clock) string {
	if !t.Valid() {
		return "with no time set"
	}
	return "at " + t.String()
}

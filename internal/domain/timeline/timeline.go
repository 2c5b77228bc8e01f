// Package timeline projects a day's assignments and custom events into
// per-mat ordered lists.
package timeline

import (
	"context"
	"sort"

	"github.com/okian/tatami/internal/domain/types"
)

// DayReader is the part of the assignment store Build needs.
type DayReader interface {
	ForDay(ctx context.Context, day types.Day) []types.Placement
}

// Build returns one timeline per mat 1..matCount, plus any mat outside that
// range that still holds an assignment or event for the day. Events on
// types.AllMats are repeated on every returned mat. Entries are sorted by
// time then order, with entries that have no time first.
//
// Build has no side effects; the same inputs always give the same output.
func Build(ctx context.Context, store DayReader, categories []types.Category, events []types.CustomEvent, day types.Day, matCount int) []types.MatTimeline {
	byID := make(map[string]types.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	entries := map[int][]types.TimelineEntry{}
	for m := 1; m <= matCount; m++ {
		entries[m] = nil
	}

	for _, p := range store.ForDay(ctx, day) {
		c := byID[p.CategoryID]
		name := c.Name
		if name == "" {
			name = p.CategoryID
		}
		entries[p.Mat] = append(entries[p.Mat], types.TimelineEntry{
			Kind:         types.EntryCategory,
			CategoryID:   p.CategoryID,
			Name:         name,
			CategoryType: c.Type,
			Mat:          p.Mat,
			Time:         p.Time,
			Order:        p.Order,
		})
	}

	var shared []types.CustomEvent
	for _, e := range events {
		if e.Date != day {
			continue
		}
		if e.Mat == types.AllMats {
			shared = append(shared, e)
			continue
		}
		entries[e.Mat] = append(entries[e.Mat], eventEntry(e, e.Mat))
	}

	mats := make([]int, 0, len(entries))
	for m := range entries {
		mats = append(mats, m)
	}
	sort.Ints(mats)

	out := make([]types.MatTimeline, 0, len(mats))
	for _, m := range mats {
		list := entries[m]
		for _, e := range shared {
			list = append(list, eventEntry(e, m))
		}
		sortEntries(list)
		if list == nil {
			list = []types.TimelineEntry{}
		}
		out = append(out, types.MatTimeline{Mat: m, Entries: list})
	}
	return out
}

func eventEntry(e types.CustomEvent, mat int) types.TimelineEntry {
	return types.TimelineEntry{
		Kind:    types.EntryEvent,
		EventID: e.ID,
		Name:    e.Name,
		Mat:     mat,
		Time:    e.Time,
		AllMats: e.Mat == types.AllMats,
	}
}

// sortEntries orders by time (absent first) then order. Remaining ties are
// broken by kind and id so the result does not depend on input order.
func sortEntries(list []types.TimelineEntry) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Kind != b.Kind {
			return a.Kind == types.EntryEvent
		}
		return a.CategoryID+a.EventID < b.CategoryID+b.EventID
	})
}

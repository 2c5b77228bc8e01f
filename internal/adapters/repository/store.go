// Package repository defines the assignment store interface and errors.
package repository

import (
	"context"

	"github.com/okian/tatami/internal/domain/types"
)

// Reader is the read side of the assignment store.
type Reader interface {
	// Get returns the assignment of a category, if any.
	Get(ctx context.Context, categoryID string) (types.Assignment, bool)

	// ForMat returns the placements on one mat for one day.
	ForMat(ctx context.Context, mat int, day types.Day) []types.Placement

	// ForDay returns every placement on a day, across mats.
	ForDay(ctx context.Context, day types.Day) []types.Placement

	// All returns every placement.
	All(ctx context.Context) []types.Placement

	// Count returns the number of assigned categories.
	Count(ctx context.Context) int
}

// Store is the single source of truth mapping category id to its placement.
// Writes perform no validation; callers decide whether a placement is
// acceptable before calling Set.
type Store interface {
	Reader

	// Set upserts the assignment of a category.
	Set(ctx context.Context, categoryID string, a types.Assignment)

	// Remove deletes the assignment of a category. It reports whether one existed.
	Remove(ctx context.Context, categoryID string) bool

	// ApplyBatch sets every placement or none of them.
	// Returns the context error if ctx is done before the batch is applied.
	ApplyBatch(ctx context.Context, batch []types.Placement) error

	// Replace discards the current contents and loads the given map.
	Replace(ctx context.Context, assignments map[string]types.Assignment)

	// Snapshot returns a copy of the current contents.
	Snapshot(ctx context.Context) map[string]types.Assignment
}

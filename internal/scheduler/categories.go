package scheduler

import (
	"context"
	"fmt"

	"github.com/okian/tatami/internal/domain/conflict"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/logger"
)

// Categories returns the categories in roster-collaborator order.
func (s *Scheduler) Categories(ctx context.Context) []types.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// SetCategories replaces the category list. Assignments of categories that
// are no longer listed are removed.
func (s *Scheduler) SetCategories(ctx context.Context, cats []types.Category) error {
	seen := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		if c.ID == "" {
			return fmt.Errorf("%w: empty id", ErrInvalidCategory)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidCategory, c.ID)
		}
		seen[c.ID] = struct{}{}
	}

	return s.mutate(ctx, func() (bool, error) {
		for _, p := range s.store.All(ctx) {
			if _, ok := seen[p.CategoryID]; !ok {
				s.store.Remove(ctx, p.CategoryID)
			}
		}
		s.setCategoriesLocked(cats)
		return true, nil
	})
}

// UpsertCategory adds a category or replaces the one with the same id,
// keeping its position and assignment.
func (s *Scheduler) UpsertCategory(ctx context.Context, c types.Category) error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidCategory)
	}
	return s.mutate(ctx, func() (bool, error) {
		if i, ok := s.catIndex[c.ID]; ok {
			s.categories[i] = c
			return true, nil
		}
		s.catIndex[c.ID] = len(s.categories)
		s.categories = append(s.categories, c)
		return true, nil
	})
}

// DeleteCategory removes a category and its assignment.
func (s *Scheduler) DeleteCategory(ctx context.Context, id string) error {
	return s.mutate(ctx, func() (bool, error) {
		i, ok := s.catIndex[id]
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
		}
		rest := append(s.categories[:i:i], s.categories[i+1:]...)
		s.setCategoriesLocked(rest)
		if s.store.Remove(ctx, id) {
			s.log.Debug(ctx, "assignment removed with category",
				logger.String("tournament_id", s.id),
				logger.String("category_id", id))
		}
		return true, nil
	})
}

// Conflicts runs the global conflict scanner over every category.
func (s *Scheduler) Conflicts(ctx context.Context) []types.OverlapPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return conflict.ScanAll(s.categories)
}

func (s *Scheduler) setCategoriesLocked(cats []types.Category) {
	s.categories = append([]types.Category(nil), cats...)
	s.catIndex = make(map[string]int, len(cats))
	for i, c := range s.categories {
		s.catIndex[c.ID] = i
	}
}

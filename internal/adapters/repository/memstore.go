package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/metrics"
)

// Assignment is the value type held by the store.
type Assignment = types.Assignment

// MemoryStore is an in-memory Store. It has no durability of its own; the
// scheduler rebuilds it from the persisted record on load.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]Assignment
	tournament string
}

// NewMemoryStore constructs an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:       make(map[string]Assignment),
		tournament: "default",
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateRepositoryRecords(s.tournament, len(s.byID))
	return s
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, categoryID string) (Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[categoryID]
	return a, ok
}

// Set implements Store.Set.
func (s *MemoryStore) Set(ctx context.Context, categoryID string, a Assignment) {
	start := time.Now()
	defer observeUpdate(start)

	s.mu.Lock()
	s.byID[categoryID] = a
	n := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateRepositoryRecords(s.tournament, n)
}

// Remove implements Store.Remove.
func (s *MemoryStore) Remove(ctx context.Context, categoryID string) bool {
	start := time.Now()
	defer observeUpdate(start)

	s.mu.Lock()
	_, ok := s.byID[categoryID]
	delete(s.byID, categoryID)
	n := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateRepositoryRecords(s.tournament, n)
	return ok
}

// ApplyBatch implements Store.ApplyBatch. The batch is validated before the
// write lock is taken so a rejected batch leaves the store untouched.
func (s *MemoryStore) ApplyBatch(ctx context.Context, batch []types.Placement) error {
	start := time.Now()
	defer observeUpdate(start)

	for _, p := range batch {
		if p.CategoryID == "" {
			metrics.RecordErrorByComponent("repository", "empty_category_id")
			return ErrEmptyCategoryID
		}
	}

	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		metrics.RecordErrorByComponent("repository", "batch_cancelled")
		return err
	}
	for _, p := range batch {
		s.byID[p.CategoryID] = p.Assignment
	}
	n := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateRepositoryRecords(s.tournament, n)
	return nil
}

// Replace implements Store.Replace.
func (s *MemoryStore) Replace(ctx context.Context, assignments map[string]Assignment) {
	next := make(map[string]Assignment, len(assignments))
	for id, a := range assignments {
		next[id] = a
	}
	s.mu.Lock()
	s.byID = next
	s.mu.Unlock()

	metrics.UpdateRepositoryRecords(s.tournament, len(next))
}

// Snapshot implements Store.Snapshot.
func (s *MemoryStore) Snapshot(ctx context.Context) map[string]Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Assignment, len(s.byID))
	for id, a := range s.byID {
		out[id] = a
	}
	return out
}

// ForMat implements Store.ForMat.
func (s *MemoryStore) ForMat(ctx context.Context, mat int, day types.Day) []types.Placement {
	return s.collect(func(a Assignment) bool { return a.Mat == mat && a.Day == day })
}

// ForDay implements Store.ForDay.
func (s *MemoryStore) ForDay(ctx context.Context, day types.Day) []types.Placement {
	return s.collect(func(a Assignment) bool { return a.Day == day })
}

// All implements Store.All.
func (s *MemoryStore) All(ctx context.Context) []types.Placement {
	return s.collect(func(Assignment) bool { return true })
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// collect returns matching placements ordered by time, order, then category id.
func (s *MemoryStore) collect(match func(Assignment) bool) []types.Placement {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	out := make([]types.Placement, 0, len(s.byID))
	for id, a := range s.byID {
		if match(a) {
			out = append(out, types.Placement{CategoryID: id, Assignment: a})
		}
	}
	s.mu.RUnlock()

	SortPlacements(out)
	return out
}

// SortPlacements orders placements by time, order, then category id.
func SortPlacements(ps []types.Placement) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Time != ps[j].Time {
			return ps[i].Time < ps[j].Time
		}
		if ps[i].Order != ps[j].Order {
			return ps[i].Order < ps[j].Order
		}
		return ps[i].CategoryID < ps[j].CategoryID
	})
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}

package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/tatami/internal/domain/types"
)

// Events returns the custom events in insertion order.
func (s *Scheduler) Events(ctx context.Context) []types.CustomEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.CustomEvent{}, s.events...)
}

// AddEvent stores a custom event. An empty id is replaced with a new uuid.
func (s *Scheduler) AddEvent(ctx context.Context, e types.CustomEvent) (types.CustomEvent, error) {
	if err := validateEvent(e); err != nil {
		return types.CustomEvent{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	err := s.mutate(ctx, func() (bool, error) {
		if s.eventIndexLocked(e.ID) >= 0 {
			return false, fmt.Errorf("%w: duplicate id %q", ErrInvalidEvent, e.ID)
		}
		s.events = append(s.events, e)
		return true, nil
	})
	if err != nil {
		return types.CustomEvent{}, err
	}
	return e, nil
}

// UpdateEvent replaces the event with the given id.
func (s *Scheduler) UpdateEvent(ctx context.Context, id string, e types.CustomEvent) (types.CustomEvent, error) {
	if err := validateEvent(e); err != nil {
		return types.CustomEvent{}, err
	}
	e.ID = id
	err := s.mutate(ctx, func() (bool, error) {
		i := s.eventIndexLocked(id)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrUnknownEvent, id)
		}
		s.events[i] = e
		return true, nil
	})
	if err != nil {
		return types.CustomEvent{}, err
	}
	return e, nil
}

// RemoveEvent deletes the event with the given id.
func (s *Scheduler) RemoveEvent(ctx context.Context, id string) error {
	return s.mutate(ctx, func() (bool, error) {
		i := s.eventIndexLocked(id)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrUnknownEvent, id)
		}
		s.events = append(s.events[:i], s.events[i+1:]...)
		return true, nil
	})
}

func (s *Scheduler) eventIndexLocked(id string) int {
	for i, e := range s.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Events may have no time; they then sort first on the timeline.
func validateEvent(e types.CustomEvent) error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEvent)
	}
	if _, ok := types.ParseDay(string(e.Date)); !ok {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidEvent, e.Date)
	}
	if e.Mat < types.AllMats {
		return fmt.Errorf("%w: mat %d", ErrInvalidEvent, e.Mat)
	}
	return nil
}

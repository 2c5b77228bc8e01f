package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithTournament labels the store's log lines and metrics.
func WithTournament(id string) Option {
	return func(s *MemoryStore) {
		if id != "" {
			s.tournament = id
		}
	}
}

// WithInitial seeds the store, e.g. from a persisted record.
func WithInitial(assignments map[string]Assignment) Option {
	return func(s *MemoryStore) {
		for id, a := range assignments {
			s.byID[id] = a
		}
	}
}

package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/metrics"
)

// MemoryPersister keeps encoded records in a map. Records are stored as
// bytes so callers never share state with what was saved.
type MemoryPersister struct {
	mu      sync.RWMutex
	records map[string]stored
}

type stored struct {
	revision uint64
	payload  []byte
}

// NewMemory creates an empty in-process persister.
func NewMemory() *MemoryPersister {
	return &MemoryPersister{records: map[string]stored{}}
}

// Load implements Persister.
func (m *MemoryPersister) Load(ctx context.Context, tournamentID string) (*types.ScheduleRecord, error) {
	start := time.Now()
	m.mu.RLock()
	s, ok := m.records[tournamentID]
	m.mu.RUnlock()
	if !ok {
		metrics.RecordPersistenceLoad(BackendMemory, "miss", elapsedMs(start))
		return nil, ErrNotFound
	}
	rec, err := decode(s.payload)
	if err != nil {
		metrics.RecordPersistenceError(BackendMemory, "load")
		return nil, err
	}
	metrics.RecordPersistenceLoad(BackendMemory, "hit", elapsedMs(start))
	return rec, nil
}

// Save implements Persister.
func (m *MemoryPersister) Save(ctx context.Context, rec *types.ScheduleRecord) error {
	start := time.Now()
	b, err := encode(rec)
	if err != nil {
		metrics.RecordPersistenceError(BackendMemory, "save")
		return err
	}
	m.mu.Lock()
	if cur, ok := m.records[rec.TournamentID]; !ok || cur.revision <= rec.Revision {
		m.records[rec.TournamentID] = stored{revision: rec.Revision, payload: b}
	}
	m.mu.Unlock()
	metrics.RecordPersistenceSave(BackendMemory, elapsedMs(start))
	return nil
}

// Close implements Persister.
func (m *MemoryPersister) Close() error { return nil }

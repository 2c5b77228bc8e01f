// Package service wires the per-tournament schedulers to persistence,
// command deduplication and the write-behind save pipeline. It implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	eventqueue "github.com/okian/tatami/internal/adapters/mq/queue"
	workerpool "github.com/okian/tatami/internal/adapters/mq/worker"
	"github.com/okian/tatami/internal/adapters/persistence"
	"github.com/okian/tatami/internal/domain/dedupe"
	"github.com/okian/tatami/internal/domain/model"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/internal/scheduler"
	"github.com/okian/tatami/pkg/logger"
	"github.com/okian/tatami/pkg/metrics"
)

// Stats summarizes the service for monitoring.
type Stats struct {
	Started       bool     `json:"started"`
	Tournaments   []string `json:"tournaments"`
	Workers       int      `json:"workers"`
	QueueLength   int      `json:"queue_length"`
	QueueCapacity int      `json:"queue_capacity"`
	DedupeSize    int      `json:"dedupe_size"`
	DedupeEntries int      `json:"dedupe_entries"`
}

// Service owns the scheduler registry.
type Service struct {
	mu sync.RWMutex

	schedulers map[string]*scheduler.Scheduler
	defaults   types.ScheduleConfig

	persister persistence.Persister
	deduper   dedupe.Deduper
	cmdMu     sync.Mutex
	pending   map[string]struct{}
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool
	tracker   *workerpool.Tracker

	workerCount int
	queueSize   int
	dedupeSize  int

	started bool
	logger  logger.Logger
}

// New constructs a new Service. Without WithPersister records live in memory.
func New(opts ...Option) *Service {
	s := &Service{
		schedulers:  make(map[string]*scheduler.Scheduler),
		pending:     make(map[string]struct{}),
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  50_000,
		tracker:     workerpool.NewTracker(),
		defaults:    types.ScheduleConfig{MatCount: 1},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.persister == nil {
		s.persister = persistence.NewMemory()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start launches the persistence workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s.persister,
		workerpool.WithTracker(s.tracker),
		workerpool.WithPoolLogger(s.logger.Named("persist")),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "tatami service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the save queue, flushes every tournament with unsaved
// revisions and closes the persister.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	pool := s.pool
	s.started = false
	s.queue = nil
	s.pool = nil
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping tatami service...")

	var errs []error
	if err := pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.persister.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close persister: %w", err))
	}

	s.logger.Info(ctx, "tatami service stopped")
	return errors.Join(errs...)
}

// Tournament returns the scheduler for tournamentID, loading it from the
// persister on first use. Unknown tournaments start from the default
// schedule configuration.
func (s *Service) Tournament(ctx context.Context, tournamentID string) (*scheduler.Scheduler, error) {
	sch, _, err := s.open(ctx, tournamentID, true)
	return sch, err
}

// Lookup returns the scheduler of a tournament that is loaded or persisted.
// It never creates one, so reads of unknown ids return ErrUnknownTournament.
func (s *Service) Lookup(ctx context.Context, tournamentID string) (*scheduler.Scheduler, error) {
	sch, _, err := s.open(ctx, tournamentID, false)
	return sch, err
}

// open resolves a scheduler and reports whether it was created from the
// defaults by this call.
func (s *Service) open(ctx context.Context, tournamentID string, create bool) (*scheduler.Scheduler, bool, error) {
	tournamentID = strings.TrimSpace(tournamentID)
	if tournamentID == "" {
		return nil, false, ErrInvalidTournament
	}

	s.mu.RLock()
	sch, ok := s.schedulers[tournamentID]
	s.mu.RUnlock()
	if ok {
		return sch, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sch, ok := s.schedulers[tournamentID]; ok {
		return sch, false, nil
	}

	opts := []scheduler.Option{
		scheduler.WithLogger(s.logger.Named("scheduler").Named(tournamentID)),
		scheduler.WithOnChange(s.persist),
	}
	created := false
	rec, err := s.persister.Load(ctx, tournamentID)
	switch {
	case err == nil:
		sch = scheduler.FromRecord(rec, opts...)
		s.tracker.Mark(tournamentID, rec.Revision)
		s.logger.Info(ctx, "tournament loaded",
			logger.String("tournament", tournamentID),
			logger.Uint64("revision", rec.Revision),
		)
	case errors.Is(err, persistence.ErrNotFound):
		if !create {
			return nil, false, fmt.Errorf("%w: %s", ErrUnknownTournament, tournamentID)
		}
		sch = scheduler.New(tournamentID, s.defaults, opts...)
		created = true
		s.logger.Info(ctx, "tournament created", logger.String("tournament", tournamentID))
	default:
		return nil, false, fmt.Errorf("load tournament %s: %w", tournamentID, err)
	}

	s.schedulers[tournamentID] = sch
	metrics.UpdateTournamentsLoaded(len(s.schedulers))
	return sch, created, nil
}

// forget drops a tournament created by a command that changed nothing.
// Revision zero means no mutation committed.
func (s *Service) forget(sch *scheduler.Scheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedulers[sch.ID()] == sch && sch.Revision() == 0 {
		delete(s.schedulers, sch.ID())
		metrics.UpdateTournamentsLoaded(len(s.schedulers))
	}
}

// Execute runs fn against a tournament's scheduler once per commandID.
// A repeated commandID is acknowledged as a duplicate without running fn,
// or refused with ErrCommandPending while the first attempt still runs.
// A failed command forgets its id so the caller can retry it.
func (s *Service) Execute(ctx context.Context, tournamentID, commandID string, fn func(*scheduler.Scheduler) error) (bool, error) {
	sch, created, err := s.open(ctx, tournamentID, true)
	if err != nil {
		return false, err
	}
	run := func() error {
		err := fn(sch)
		if created {
			s.forget(sch)
		}
		return err
	}
	if commandID == "" {
		return false, run()
	}

	key := dedupe.Key(sch.ID(), commandID)
	s.cmdMu.Lock()
	seen := s.deduper.SeenAndRecord(ctx, key)
	_, pending := s.pending[key]
	if !seen {
		s.pending[key] = struct{}{}
	}
	s.cmdMu.Unlock()

	if seen {
		if pending {
			return false, fmt.Errorf("%w: %s", ErrCommandPending, commandID)
		}
		metrics.RecordCommandDuplicate()
		s.logger.Debug(ctx, "duplicate command acknowledged",
			logger.String("tournament", sch.ID()),
			logger.String("command_id", commandID),
		)
		return true, nil
	}

	err = run()
	s.cmdMu.Lock()
	delete(s.pending, key)
	if err != nil {
		s.deduper.Unrecord(ctx, key)
	}
	s.cmdMu.Unlock()
	return false, err
}

// Snapshot returns the current record of a loaded tournament. The
// persistence workers call it for every save job.
func (s *Service) Snapshot(ctx context.Context, tournamentID string) (*types.ScheduleRecord, error) {
	s.mu.RLock()
	sch, ok := s.schedulers[tournamentID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownTournament
	}
	return sch.Snapshot(ctx), nil
}

// Flush synchronously saves every loaded tournament whose latest revision
// has not been persisted yet.
func (s *Service) Flush(ctx context.Context) error {
	var errs []error
	for _, id := range s.Tournaments() {
		if err := s.saveNow(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tournaments returns the ids of loaded tournaments in ascending order.
func (s *Service) Tournaments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.schedulers))
	for id := range s.schedulers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Persisted returns the last revision of tournamentID written to the backend.
func (s *Service) Persisted(tournamentID string) uint64 {
	return s.tracker.Persisted(tournamentID)
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) Stats {
	ids := s.Tournaments()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:       s.started,
		Tournaments:   ids,
		Workers:       s.workerCount,
		QueueCapacity: s.queueSize,
		DedupeSize:    s.dedupeSize,
		DedupeEntries: s.deduper.Size(),
	}
	if s.queue != nil {
		st.QueueLength = s.queue.Len(ctx)
	}
	metrics.UpdateTournamentsLoaded(len(ids))
	return st
}

// persist is the scheduler change hook. It hands the revision to the save
// workers and falls back to a synchronous save when the queue is full or
// the service is not running.
func (s *Service) persist(ctx context.Context, tournamentID string, revision uint64) {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()

	if q != nil {
		err := q.Enqueue(ctx, model.SaveJob{TournamentID: tournamentID, Revision: revision})
		if err == nil {
			return
		}
		s.logger.Warn(ctx, "save queue unavailable, saving synchronously",
			logger.String("tournament", tournamentID),
			logger.Error(err),
		)
	}

	if err := s.saveNow(context.WithoutCancel(ctx), tournamentID); err != nil {
		metrics.RecordErrorByComponent("service", "save_error")
		s.logger.Error(ctx, "synchronous save failed",
			logger.String("tournament", tournamentID),
			logger.Uint64("revision", revision),
			logger.Error(err),
		)
	}
}

func (s *Service) saveNow(ctx context.Context, tournamentID string) error {
	rec, err := s.Snapshot(ctx, tournamentID)
	if err != nil {
		return err
	}
	if rec.Revision <= s.tracker.Persisted(tournamentID) {
		return nil
	}
	if err := s.persister.Save(ctx, rec); err != nil {
		return fmt.Errorf("save %s@%d: %w", tournamentID, rec.Revision, err)
	}
	s.tracker.Mark(tournamentID, rec.Revision)
	return nil
}

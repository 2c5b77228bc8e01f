// Package worker flushes schedule snapshots to the persistence backend in
// the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/tatami/internal/adapters/mq/queue"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/logger"
	"github.com/okian/tatami/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// ErrUnknownTournament is returned by a Snapshotter that no longer holds the
// tournament a job refers to.
var ErrUnknownTournament = errors.New("unknown tournament")

// Job is what workers read off the queue.
type Job = queue.Job

// Snapshotter returns the current state of a tournament.
type Snapshotter interface {
	Snapshot(ctx context.Context, tournamentID string) (*types.ScheduleRecord, error)
}

// Saver writes a snapshot. persistence.Persister satisfies it.
type Saver interface {
	Save(ctx context.Context, rec *types.ScheduleRecord) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes save jobs.
type Worker interface {
	// Run processes jobs until the queue is drained and closed or ctx is done.
	Run(ctx context.Context)
}

// Tracker remembers the highest revision persisted per tournament.
type Tracker struct {
	mu        sync.Mutex
	persisted map[string]uint64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{persisted: make(map[string]uint64)}
}

// Persisted returns the last revision written for tournamentID.
func (t *Tracker) Persisted(tournamentID string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.persisted[tournamentID]
}

// Mark records that rev was written. Lower revisions never replace higher ones.
func (t *Tracker) Mark(tournamentID string, rev uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rev > t.persisted[tournamentID] {
		t.persisted[tournamentID] = rev
	}
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	snap    Snapshotter
	saver   Saver
	tracker *Tracker
	name    string

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, snap Snapshotter, saver Saver, tracker *Tracker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   q,
		snap:    snap,
		saver:   saver,
		tracker: tracker,
		name:    "worker",
		done:    make(chan struct{}),
		logger:  logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.tracker == nil {
		w.tracker = NewTracker()
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for job := range w.queue.Dequeue(ctx) {
		if err := w.process(ctx, job); err != nil {
			w.logger.Error(ctx, "save job failed",
				logger.String("tournament", job.TournamentID),
				logger.Uint64("revision", job.Revision),
				logger.Error(err),
			)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	// A newer snapshot already covered this job.
	if job.Revision <= w.tracker.Persisted(job.TournamentID) {
		metrics.RecordWorkerStaleSkip()
		return nil
	}

	rec, err := w.snap.Snapshot(ctx, job.TournamentID)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "snapshot_error")
		return fmt.Errorf("snapshot %s: %w", job.TournamentID, err)
	}
	if rec.Revision <= w.tracker.Persisted(job.TournamentID) {
		metrics.RecordWorkerStaleSkip()
		return nil
	}

	if err := w.saver.Save(ctx, rec); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "save_error")
		metrics.RecordErrorByType("save_error", "high")
		return fmt.Errorf("save %s@%d: %w", rec.TournamentID, rec.Revision, err)
	}
	w.tracker.Mark(rec.TournamentID, rec.Revision)
	w.logger.Debug(ctx, "schedule persisted",
		logger.String("tournament", rec.TournamentID),
		logger.Uint64("revision", rec.Revision),
		logger.Duration("lag", time.Since(job.EnqueuedAt)),
	)
	return nil
}

// Pool manages multiple workers sharing one queue and tracker.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	tracker *Tracker
	logger  logger.Logger
}

// NewPool creates a new worker pool. workerCount < 1 means runtime.NumCPU().
func NewPool(workerCount int, q Queue, snap Snapshotter, saver Saver, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		tracker: NewTracker(),
		logger:  logger.Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(pool)
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, snap, saver, pool.tracker,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(pool.logger),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)

	return pool
}

// Tracker exposes the persisted-revision tracker shared by the workers.
func (p *Pool) Tracker() *Tracker {
	return p.tracker
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	metrics.UpdateWorkerIdleCount(0)
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}

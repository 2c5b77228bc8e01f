package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/tatami/internal/adapters/mq/queue"
	worker "github.com/okian/tatami/internal/adapters/mq/worker"
	"github.com/okian/tatami/internal/domain/model"
	"github.com/okian/tatami/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockSnapshotter struct {
	mu   sync.Mutex
	revs map[string]uint64
	err  error
}

func (m *mockSnapshotter) set(tid string, rev uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revs[tid] = rev
}

func (m *mockSnapshotter) Snapshot(ctx context.Context, tid string) (*types.ScheduleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	rev, ok := m.revs[tid]
	if !ok {
		return nil, worker.ErrUnknownTournament
	}
	return &types.ScheduleRecord{TournamentID: tid, Revision: rev}, nil
}

type mockSaver struct {
	mu    sync.Mutex
	saved []types.ScheduleRecord
	err   error
}

func (m *mockSaver) Save(ctx context.Context, rec *types.ScheduleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *rec)
	return nil
}

func (m *mockSaver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func runUntilDrained(q *mockQueue, w *worker.InMemoryWorker) {
	_ = q.Close()
	w.Run(context.Background())
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker with a snapshotter and saver", t, func() {
		q := newMockQueue()
		snap := &mockSnapshotter{revs: map[string]uint64{"t1": 3}}
		saver := &mockSaver{}
		tracker := worker.NewTracker()
		w := worker.NewInMemoryWorker(q, snap, saver, tracker, worker.WithName("test-worker"))

		convey.Convey("When a save job arrives", func() {
			q.jobs <- model.SaveJob{TournamentID: "t1", Revision: 2, EnqueuedAt: time.Now()}
			runUntilDrained(q, w)

			convey.Convey("Then the latest snapshot is saved and tracked", func() {
				convey.So(saver.count(), convey.ShouldEqual, 1)
				convey.So(saver.saved[0].Revision, convey.ShouldEqual, 3)
				convey.So(tracker.Persisted("t1"), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When several jobs for the same tournament are queued", func() {
			q.jobs <- model.SaveJob{TournamentID: "t1", Revision: 1}
			q.jobs <- model.SaveJob{TournamentID: "t1", Revision: 2}
			q.jobs <- model.SaveJob{TournamentID: "t1", Revision: 3}
			runUntilDrained(q, w)

			convey.Convey("Then jobs covered by an earlier save are skipped", func() {
				convey.So(saver.count(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the tournament is unknown", func() {
			q.jobs <- model.SaveJob{TournamentID: "ghost", Revision: 1}
			runUntilDrained(q, w)

			convey.Convey("Then nothing is saved", func() {
				convey.So(saver.count(), convey.ShouldEqual, 0)
				convey.So(tracker.Persisted("ghost"), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the saver fails", func() {
			saver.err = errors.New("backend down")
			q.jobs <- model.SaveJob{TournamentID: "t1", Revision: 3}
			runUntilDrained(q, w)

			convey.Convey("Then the revision is not marked persisted", func() {
				convey.So(tracker.Persisted("t1"), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			live := queue.NewInMemoryQueue(queue.WithCapacity(4))
			rw := worker.NewInMemoryWorker(live, snap, saver, tracker)
			go rw.Run(ctx)
			cancel()

			convey.Convey("Then Run returns", func() {
				select {
				case <-rw.Done():
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestTracker(t *testing.T) {
	convey.Convey("Given a tracker", t, func() {
		tr := worker.NewTracker()

		convey.Convey("When revisions are marked out of order", func() {
			tr.Mark("t1", 5)
			tr.Mark("t1", 3)

			convey.Convey("Then the highest revision is kept", func() {
				convey.So(tr.Persisted("t1"), convey.ShouldEqual, 5)
				convey.So(tr.Persisted("t2"), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		snap := &mockSnapshotter{revs: map[string]uint64{}}
		saver := &mockSaver{}
		pool := worker.NewPool(3, q, snap, saver)
		ctx := context.Background()
		pool.Start(ctx)

		convey.Convey("When jobs for many tournaments are enqueued and the pool shuts down", func() {
			tids := []string{"a", "b", "c", "d", "e"}
			for _, tid := range tids {
				snap.set(tid, 1)
				convey.So(q.Enqueue(ctx, model.SaveJob{TournamentID: tid, Revision: 1}), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every tournament is persisted before shutdown returns", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Size(), convey.ShouldEqual, 3)
				convey.So(saver.count(), convey.ShouldEqual, len(tids))
				for _, tid := range tids {
					convey.So(pool.Tracker().Persisted(tid), convey.ShouldEqual, 1)
				}
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}

package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/elovote/internal/adapters/mq/queue"
	worker "github.com/okian/elovote/internal/adapters/mq/worker"
	history "github.com/okian/elovote/internal/domain/history"
	logging "github.com/okian/elovote/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

type flakyRecorder struct {
	mu     sync.Mutex
	failOn string
	seen   []string
}

func (f *flakyRecorder) Record(_ context.Context, r worker.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.WinnerID == f.failOn {
		return errors.New("disk full")
	}
	f.seen = append(f.seen, r.WinnerID)
	return nil
}

func (f *flakyRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool recording into a history log", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		log := history.New(100)
		pool := worker.NewPool(4, q, log)
		pool.Start(ctx)

		convey.Convey("When records are enqueued and the pool shuts down", func() {
			for i := 0; i < 50; i++ {
				convey.So(q.Enqueue(ctx, queue.Record{WinnerID: "w", LoserID: "l"}), convey.ShouldBeTrue)
			}
			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err := pool.Shutdown(sctx)

			convey.Convey("Then every queued record is drained into history", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(log.Total(), convey.ShouldEqual, 50)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(pool.Size(), convey.ShouldEqual, 4)
			})
		})
	})

	convey.Convey("Given a recorder that fails on one record", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		rec := &flakyRecorder{failOn: "bad"}
		pool := worker.NewPool(1, q, rec)
		pool.Start(ctx)

		q.Enqueue(ctx, queue.Record{WinnerID: "a"})
		q.Enqueue(ctx, queue.Record{WinnerID: "bad"})
		q.Enqueue(ctx, queue.Record{WinnerID: "c"})
		convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

		convey.Convey("Then the worker keeps going", func() {
			convey.So(rec.count(), convey.ShouldEqual, 2)
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker on an idle queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, history.New(1), worker.WithName("solo"))
		go w.Run(ctx)

		convey.Convey("When shut down twice", func() {
			err1 := w.Shutdown(ctx)
			err2 := w.Shutdown(ctx)

			convey.Convey("Then it stops cleanly", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				select {
				case <-w.Done():
				default:
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})
	})

	convey.Convey("Given a worker whose context is cancelled", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		w := worker.NewInMemoryWorker(queue.NewInMemoryQueue(), history.New(1))
		go w.Run(ctx)
		cancel()

		convey.Convey("Then Run returns", func() {
			select {
			case <-w.Done():
			case <-time.After(time.Second):
				convey.So("worker did not stop", convey.ShouldBeEmpty)
			}
		})
	})
}

// stuckRecorder blocks until its context ends.
type stuckRecorder struct {
	entered chan struct{}
	once    sync.Once
}

func (s *stuckRecorder) Record(ctx context.Context, _ worker.Record) error {
	s.once.Do(func() { close(s.entered) })
	<-ctx.Done()
	return ctx.Err()
}

func TestWorkerShutdownCancelsRecorder(t *testing.T) {
	convey.Convey("Given a pool whose recorder never finishes on its own", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		rec := &stuckRecorder{entered: make(chan struct{})}
		w := worker.NewInMemoryWorker(q, rec)
		go w.Run(context.WithoutCancel(context.Background()))

		for i := 0; i < 3; i++ {
			q.Enqueue(context.Background(), queue.Record{WinnerID: "w"})
		}
		<-rec.entered

		convey.Convey("When it is shut down with a short deadline", func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := w.Shutdown(sctx)

			convey.Convey("Then the worker is released through its context", func() {
				convey.So(err, convey.ShouldBeNil)
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker still blocked", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

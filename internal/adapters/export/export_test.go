package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	model "github.com/okian/elovote/internal/domain/model"
	"github.com/okian/elovote/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type fakeSource struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSource) Leaderboard(_ context.Context, limit int) ([]model.Standing, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return model.NewSnapshot([]model.Item{
		{ID: "a", Name: "A", Rating: 1485},
		{ID: "b", Name: "B", Rating: 1515},
	}).Leaderboard(), nil
}

func TestExport(t *testing.T) {
	Convey("Given an exporter with a fixed clock", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "out", "leaderboard.json")
		src := &fakeSource{}
		at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		e := New(src, path, WithClock(func() time.Time { return at }))

		Convey("When exporting once", func() {
			n, err := e.Export(ctx)

			Convey("Then the ranked document is written", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				data, rerr := os.ReadFile(path)
				So(rerr, ShouldBeNil)
				var doc Document
				So(json.Unmarshal(data, &doc), ShouldBeNil)
				So(doc.Count, ShouldEqual, 2)
				So(doc.GeneratedAt.Equal(at), ShouldBeTrue)
				So(doc.Items[0].ID, ShouldEqual, "b")
				So(doc.Items[0].Rank, ShouldEqual, 1)

				left, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
				So(left, ShouldBeEmpty)
			})
		})

		Convey("When exports overlap", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 8)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := e.Export(ctx)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			Convey("Then each succeeds and the document stays whole", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				data, rerr := os.ReadFile(path)
				So(rerr, ShouldBeNil)
				var doc Document
				So(json.Unmarshal(data, &doc), ShouldBeNil)
				So(doc.Count, ShouldEqual, 2)

				left, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
				So(left, ShouldBeEmpty)
			})
		})

		Convey("When the source fails", func() {
			src.err = errors.New("store down")
			_, err := e.Export(ctx)

			Convey("Then nothing is written", func() {
				So(err, ShouldNotBeNil)
				_, serr := os.Stat(path)
				So(os.IsNotExist(serr), ShouldBeTrue)
			})
		})

		Convey("When scheduling an invalid expression", func() {
			err := e.Schedule("every tuesday-ish")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ErrBadSchedule), ShouldBeTrue)
				So(errors.Is(e.Start(ctx), ErrNotScheduled), ShouldBeTrue)
			})
		})

		Convey("When scheduled every second", func() {
			So(e.Schedule("@every 1s"), ShouldBeNil)
			So(e.Start(ctx), ShouldBeNil)

			deadline := time.Now().Add(3 * time.Second)
			for src.calls.Load() == 0 && time.Now().Before(deadline) {
				time.Sleep(50 * time.Millisecond)
			}
			So(e.Stop(ctx), ShouldBeNil)

			Convey("Then the job runs", func() {
				So(src.calls.Load(), ShouldBeGreaterThan, 0)
				_, serr := os.Stat(path)
				So(serr, ShouldBeNil)
			})
		})
	})

	Convey("Given an exporter without a path", t, func() {
		e := New(&fakeSource{}, "")

		Convey("Then Export fails fast", func() {
			_, err := e.Export(context.Background())
			So(errors.Is(err, ErrNoPath), ShouldBeTrue)
		})
	})
}

func TestKVFields(t *testing.T) {
	Convey("Given cron key/value pairs", t, func() {
		at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		fields := kvFields([]interface{}{"next", at, "entry", 3, "dangling"})

		Convey("Then times are formatted and odd keys dropped", func() {
			So(fields, ShouldHaveLength, 2)
			So(fields[0].Value, ShouldEqual, "2024-01-02T03:04:05Z")
			So(fields[1].Key, ShouldEqual, "entry")
		})
	})
}

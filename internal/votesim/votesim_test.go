package votesim_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/elovote/internal/adapters/http/api"
	repository "github.com/okian/elovote/internal/adapters/repository"
	service "github.com/okian/elovote/internal/app"
	"github.com/okian/elovote/internal/seed"
	"github.com/okian/elovote/internal/votesim"
	"github.com/okian/elovote/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer(names []string) (*httptest.Server, *service.Service) {
	svc := service.New(
		service.WithStore(repository.NewMemoryStore()),
		service.WithSeed(names, 1500),
		service.WithVoteRetries(2),
	)
	So(svc.Start(context.Background()), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(svc, 100).Register(context.Background(), mux)
	return httptest.NewServer(mux), svc
}

func TestRun(t *testing.T) {
	Convey("Given a service seeded with the built-in players", t, func() {
		srv, svc := newServer(seed.Players())
		defer func() {
			srv.Close()
			_ = svc.Stop(context.Background())
		}()

		Convey("When eight voters vote concurrently", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			stats, err := votesim.Run(ctx, votesim.Config{
				BaseURL:       srv.URL,
				Voters:        8,
				VotesPerVoter: 20,
				Seed:          42,
			})

			Convey("Then no update is lost", func() {
				So(err, ShouldBeNil)
				So(stats.Items, ShouldEqual, len(seed.Players()))
				So(stats.Partial, ShouldBeFalse)
				So(stats.VotesAttempted, ShouldEqual, 160)
				So(stats.VotesCommitted, ShouldBeGreaterThan, 0)
				So(stats.VotesCommitted+stats.Conflicts+stats.Failures, ShouldEqual, stats.VotesAttempted)
				So(stats.SumBefore, ShouldEqual, 1500*float64(len(seed.Players())))
				So(stats.Drift(), ShouldBeBetweenOrEqual, -float64(stats.VotesCommitted), float64(stats.VotesCommitted))
			})

			Convey("Then every session was ended", func() {
				So(svc.GetStats(ctx)["sessions"], ShouldEqual, 0)
			})
		})
	})

	Convey("Given a service with a single item", t, func() {
		srv, svc := newServer([]string{"Solo"})
		defer func() {
			srv.Close()
			_ = svc.Stop(context.Background())
		}()

		Convey("Then the run refuses to start", func() {
			_, err := votesim.Run(context.Background(), votesim.Config{BaseURL: srv.URL, Voters: 1, VotesPerVoter: 1})
			So(errors.Is(err, votesim.ErrNotEnoughItems), ShouldBeTrue)
		})
	})

	Convey("Given nothing listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then the health check fails", func() {
			_, err := votesim.Run(context.Background(), votesim.Config{BaseURL: url, Timeout: time.Second})
			So(errors.Is(err, votesim.ErrUnhealthy), ShouldBeTrue)
		})
	})
}

func TestClientErrors(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv, svc := newServer([]string{"A", "B"})
		defer func() {
			srv.Close()
			_ = svc.Stop(context.Background())
		}()
		client := votesim.NewClient(srv.URL, time.Second)
		ctx := context.Background()

		Convey("When voting on an unknown session", func() {
			_, err := client.Vote(ctx, "missing", 0)

			Convey("Then the API error is decoded", func() {
				var se *votesim.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Status, ShouldEqual, http.StatusNotFound)
				So(se.Code, ShouldEqual, "session_not_found")
			})
		})

		Convey("When running a session by hand", func() {
			sess, err := client.StartSession(ctx)
			So(err, ShouldBeNil)
			So(sess.Pair, ShouldNotBeNil)

			res, err := client.Vote(ctx, sess.ID, 0)
			So(err, ShouldBeNil)

			Convey("Then the outcome matches the pair", func() {
				So(res.Winner.ID, ShouldEqual, sess.Pair.A.ID)
				So(res.Winner.Rating, ShouldEqual, 1515)
				So(client.EndSession(ctx, sess.ID), ShouldBeNil)
			})
		})
	})
}

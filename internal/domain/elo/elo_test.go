package elo_test

import (
	"math"
	"math/rand"
	"testing"

	elo "github.com/okian/elovote/internal/domain/elo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpectedScore(t *testing.T) {
	Convey("Given two ratings", t, func() {
		Convey("When they are equal", func() {
			Convey("Then each side expects half", func() {
				So(elo.ExpectedScore(1500, 1500), ShouldEqual, 0.5)
			})
		})

		Convey("When one side is 400 points stronger", func() {
			Convey("Then it is expected to win ten times as often", func() {
				So(elo.ExpectedScore(1900, 1500), ShouldAlmostEqual, 10.0/11.0, 1e-12)
				So(elo.ExpectedScore(1500, 1900), ShouldAlmostEqual, 1.0/11.0, 1e-12)
			})
		})

		Convey("When sampling many random pairs", func() {
			rng := rand.New(rand.NewSource(7))

			Convey("Then the two expectations always sum to exactly one", func() {
				for i := 0; i < 10_000; i++ {
					ra := rng.Float64()*3000 + 100
					rb := rng.Float64()*3000 + 100
					So(elo.ExpectedScore(ra, rb)+elo.ExpectedScore(rb, ra), ShouldEqual, 1.0)
				}
			})

			Convey("Then a higher rating never has a lower expectation", func() {
				for i := 0; i < 1000; i++ {
					ra := rng.Float64()*3000 + 100
					rb := rng.Float64()*3000 + 100
					rc := rb + 1 + rng.Float64()*50
					So(elo.ExpectedScore(rc, ra), ShouldBeGreaterThanOrEqualTo, elo.ExpectedScore(rb, ra))
				}
			})
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given the default updater", t, func() {
		Convey("When equal ratings meet", func() {
			r := elo.Update(1500, 1500)

			Convey("Then each moves by exactly K/2", func() {
				So(r.Winner, ShouldEqual, 1515)
				So(r.Loser, ShouldEqual, 1485)
				So(r.WinnerDelta, ShouldEqual, elo.K/2.0)
			})
		})

		Convey("When the favourite wins", func() {
			r := elo.Update(1600, 1400)

			Convey("Then the gain is small", func() {
				So(r.Winner, ShouldEqual, 1607)
				So(r.Loser, ShouldEqual, 1393)
			})
		})

		Convey("When the underdog wins", func() {
			r := elo.Update(1400, 1600)

			Convey("Then the gain is large", func() {
				So(r.Winner, ShouldEqual, 1423)
				So(r.Loser, ShouldEqual, 1577)
			})
		})

		Convey("When sampling many random votes", func() {
			rng := rand.New(rand.NewSource(11))

			Convey("Then deltas cancel before rounding and rounded totals drift by at most one", func() {
				for i := 0; i < 10_000; i++ {
					w := math.Round(rng.Float64()*2000 + 500)
					l := math.Round(rng.Float64()*2000 + 500)
					r := elo.Update(w, l)
					So(r.WinnerDelta+r.LoserDelta, ShouldEqual, 0)
					So(r.WinnerDelta, ShouldBeGreaterThan, 0)
					So(r.WinnerDelta, ShouldBeLessThan, elo.K)
					So(math.Abs((r.Winner+r.Loser)-(w+l)), ShouldBeLessThanOrEqualTo, 1)
					So(r.Winner, ShouldEqual, math.Round(r.Winner))
					So(r.Loser, ShouldEqual, math.Round(r.Loser))
				}
			})
		})
	})

	Convey("Given an updater with a custom K", t, func() {
		u := elo.NewUpdater(elo.WithKFactor(16))

		Convey("Then equal ratings move by 8", func() {
			So(u.KFactor(), ShouldEqual, 16)
			r := u.Update(1500, 1500)
			So(r.Winner, ShouldEqual, 1508)
			So(r.Loser, ShouldEqual, 1492)
		})

		Convey("Then invalid K values are ignored", func() {
			So(elo.NewUpdater(elo.WithKFactor(0)).KFactor(), ShouldEqual, elo.K)
			So(elo.NewUpdater(elo.WithKFactor(-3)).KFactor(), ShouldEqual, elo.K)
			So(elo.NewUpdater(elo.WithKFactor(math.Inf(1))).KFactor(), ShouldEqual, elo.K)
		})
	})
}

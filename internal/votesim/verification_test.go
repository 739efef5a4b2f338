package votesim

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func row(rank int, rating float64) Standing {
	return Standing{Rank: rank, Item: Item{Rating: rating}}
}

func TestVerifySorted(t *testing.T) {
	Convey("Given leaderboards", t, func() {
		Convey("Then a dense tie-ranked board passes", func() {
			board := []Standing{row(1, 1600), row(2, 1500), row(2, 1500), row(3, 1400)}
			So(verifySorted(board), ShouldBeNil)
		})

		Convey("Then an out of order board fails", func() {
			board := []Standing{row(1, 1500), row(2, 1600)}
			So(errors.Is(verifySorted(board), ErrUnsorted), ShouldBeTrue)
		})

		Convey("Then a skipped rank fails", func() {
			board := []Standing{row(1, 1600), row(3, 1500)}
			So(errors.Is(verifySorted(board), ErrUnsorted), ShouldBeTrue)
		})
	})
}

func TestVerifyConservation(t *testing.T) {
	Convey("Given run stats", t, func() {
		Convey("Then rounding drift within one point per vote passes", func() {
			s := &Stats{VotesCommitted: 3, SumBefore: 6000, SumAfter: 6002}
			So(verifyConservation(s), ShouldBeNil)
		})

		Convey("Then a lost update fails", func() {
			s := &Stats{VotesCommitted: 2, SumBefore: 6000, SumAfter: 6015}
			So(errors.Is(verifyConservation(s), ErrLostUpdate), ShouldBeTrue)
		})
	})
}

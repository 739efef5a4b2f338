package pairing

import (
	"fmt"
	"sync"
	"testing"

	model "github.com/okian/elovote/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func snapshotOf(n int) model.Snapshot {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{ID: fmt.Sprintf("item-%02d", i), Rating: 1500}
	}
	return model.NewSnapshot(items)
}

func TestSelectorNext(t *testing.T) {
	Convey("Given a seeded selector", t, func() {
		sel := NewSelector(WithSeed(42))

		Convey("When the snapshot has fewer than two items", func() {
			Convey("Then no pair is produced", func() {
				_, ok := sel.Next(snapshotOf(0))
				So(ok, ShouldBeFalse)
				_, ok = sel.Next(snapshotOf(1))
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the snapshot has exactly two items", func() {
			Convey("Then both are always returned", func() {
				for i := 0; i < 50; i++ {
					c, ok := sel.Next(snapshotOf(2))
					So(ok, ShouldBeTrue)
					So(c.A.ID, ShouldNotEqual, c.B.ID)
				}
			})
		})

		Convey("When drawing many pairs from a larger snapshot", func() {
			snap := snapshotOf(10)
			seen := make(map[string]int)
			for i := 0; i < 20_000; i++ {
				c, ok := sel.Next(snap)
				So(ok, ShouldBeTrue)
				So(c.A.ID, ShouldNotEqual, c.B.ID)
				seen[c.A.ID]++
				seen[c.B.ID]++
			}

			Convey("Then every item shows up at a roughly uniform rate", func() {
				So(len(seen), ShouldEqual, 10)
				for _, n := range seen {
					So(n, ShouldBeBetween, 3500, 4500)
				}
			})
		})
	})

	Convey("Given two selectors with the same seed", t, func() {
		a := NewSelector(WithSeed(7))
		b := NewSelector(WithSeed(7))
		snap := snapshotOf(79)

		Convey("Then they produce the same sequence", func() {
			for i := 0; i < 100; i++ {
				ca, _ := a.Next(snap)
				cb, _ := b.Next(snap)
				So(ca.A.ID, ShouldEqual, cb.A.ID)
				So(ca.B.ID, ShouldEqual, cb.B.ID)
			}
		})
	})
}

func TestSelectorRecentWindow(t *testing.T) {
	Convey("Given a selector that avoids the last three pairs", t, func() {
		sel := NewSelector(WithSeed(3), WithRecentWindow(3), WithMaxAttempts(1000))
		snap := snapshotOf(4)

		Convey("Then no pair repeats within the window", func() {
			var last []string
			for i := 0; i < 200; i++ {
				c, ok := sel.Next(snap)
				So(ok, ShouldBeTrue)
				k := pairKey(c.A.ID, c.B.ID)
				So(last, ShouldNotContain, k)
				last = append(last, k)
				if len(last) > 3 {
					last = last[1:]
				}
			}
			So(sel.recent.len(), ShouldEqual, 3)
		})
	})

	Convey("Given a window larger than the number of possible pairs", t, func() {
		sel := NewSelector(WithSeed(3), WithRecentWindow(10), WithMaxAttempts(4))

		Convey("Then the selector still returns a pair once attempts run out", func() {
			for i := 0; i < 20; i++ {
				_, ok := sel.Next(snapshotOf(2))
				So(ok, ShouldBeTrue)
			}
		})
	})

	Convey("Given a disabled window", t, func() {
		sel := NewSelector(WithRecentWindow(5), WithRecentWindow(0))

		Convey("Then nothing is remembered", func() {
			So(sel.recent, ShouldBeNil)
		})
	})
}

func TestRecentPairs(t *testing.T) {
	Convey("Given a ring of two pairs", t, func() {
		r := newRecentPairs(2)
		r.add("a", "b")
		r.add("b", "c")

		Convey("Then pairs match regardless of order", func() {
			So(r.contains("b", "a"), ShouldBeTrue)
			So(r.contains("c", "b"), ShouldBeTrue)
			So(r.contains("a", "c"), ShouldBeFalse)
		})

		Convey("When a third pair is added", func() {
			r.add("c", "d")

			Convey("Then the oldest is forgotten", func() {
				So(r.contains("a", "b"), ShouldBeFalse)
				So(r.contains("b", "c"), ShouldBeTrue)
				So(r.len(), ShouldEqual, 2)
			})
		})

		Convey("When the same pair is added twice", func() {
			r.add("a", "b")
			r.add("a", "b")

			Convey("Then it stays remembered until both entries leave", func() {
				So(r.contains("a", "b"), ShouldBeTrue)
				r.add("x", "y")
				So(r.contains("a", "b"), ShouldBeTrue)
				r.add("x", "z")
				So(r.contains("a", "b"), ShouldBeFalse)
			})
		})
	})
}

func TestSelectorConcurrent(t *testing.T) {
	sel := NewSelector(WithRecentWindow(4))
	snap := snapshotOf(20)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c, ok := sel.Next(snap)
				if !ok || c.A.ID == c.B.ID {
					t.Errorf("bad pair: %+v ok=%v", c, ok)
					return
				}
			}
		}()
	}
	wg.Wait()
}

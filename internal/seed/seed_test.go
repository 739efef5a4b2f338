package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPlayers(t *testing.T) {
	Convey("Given the built-in roster", t, func() {
		names := Players()

		Convey("Then it holds 79 distinct players", func() {
			So(names, ShouldHaveLength, 79)
			So(names[0], ShouldEqual, "Michael Jordan")
			So(names, ShouldContain, "Shaquille O'Neal")
			So(names[len(names)-1], ShouldEqual, "Anthony Edwards")

			seen := map[string]bool{}
			for _, n := range names {
				So(seen[n], ShouldBeFalse)
				seen[n] = true
			}
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given a list with comments and blanks", t, func() {
		names, err := Parse(strings.NewReader("# roster\n  Larry Bird \n\nMagic Johnson\n"))

		Convey("Then only trimmed names are kept", func() {
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"Larry Bird", "Magic Johnson"})
		})
	})

	Convey("Given a file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "names.txt")
		So(os.WriteFile(path, []byte("A\nB\n"), 0o600), ShouldBeNil)

		Convey("Then LoadFile reads it", func() {
			names, err := LoadFile(path)
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"A", "B"})
		})

		Convey("Then a missing file is an error", func() {
			_, err := LoadFile(path + ".missing")
			So(err, ShouldNotBeNil)
		})
	})
}

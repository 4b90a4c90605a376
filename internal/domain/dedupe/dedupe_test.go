package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/mowoo/SLG-Dashboard/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When a digest is new", func() {
			seen := d.SeenAndRecord(ctx, "a")

			Convey("Then it should be recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a digest was already seen", func() {
			d.SeenAndRecord(ctx, "a")
			seen := d.SeenAndRecord(ctx, "a")

			Convey("Then it should be reported as seen", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a digest is unrecorded", func() {
			d.SeenAndRecord(ctx, "a")
			d.Unrecord(ctx, "a")
			d.Unrecord(ctx, "never-seen")

			Convey("Then it should be accepted again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When more digests arrive than fit", func() {
			for _, id := range []string{"a", "b", "c", "d"} {
				d.SeenAndRecord(ctx, id)
			}

			Convey("Then the oldest should be evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When recording from many goroutines", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i%25))
				}(i)
			}
			wg.Wait()

			Convey("Then each id should be kept once", func() {
				So(d.Size(), ShouldEqual, 25)
			})
		})
	})
}

func TestDigest(t *testing.T) {
	Convey("Given upload contents", t, func() {
		Convey("Then equal name and bytes should share a digest", func() {
			So(dedupe.Digest("a.csv", []byte("x")), ShouldEqual, dedupe.Digest("a.csv", []byte("x")))
		})

		Convey("Then a different name or body should differ", func() {
			So(dedupe.Digest("a.csv", []byte("x")), ShouldNotEqual, dedupe.Digest("b.csv", []byte("x")))
			So(dedupe.Digest("a.csv", []byte("x")), ShouldNotEqual, dedupe.Digest("a.csv", []byte("y")))
		})
	})
}

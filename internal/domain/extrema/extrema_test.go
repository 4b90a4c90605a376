package extrema_test

import (
	"testing"
	"time"

	"github.com/mowoo/SLG-Dashboard/internal/domain/extrema"
	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
	"github.com/mowoo/SLG-Dashboard/internal/domain/velocity"
	. "github.com/smartystreets/goconvey/convey"
)

func at(day int) time.Time {
	return time.Date(2025, time.March, day, 21, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	Convey("Given several members over several days", t, func() {
		ds := model.Dataset{
			{MemberID: "a", Merit: 100, Power: 1000, RecordedAt: at(1)},
			{MemberID: "b", Merit: 100, Power: 9000, RecordedAt: at(1)},
			{MemberID: "c", Merit: 0, Power: 500, RecordedAt: at(1)},
			{MemberID: "a", Merit: 700, Power: 1300, RecordedAt: at(2)},
			{MemberID: "b", Merit: 150, Power: 6000, RecordedAt: at(2)},
			{MemberID: "c", Merit: 40, Power: 500, RecordedAt: at(2)},
			{MemberID: "a", Merit: 900, Power: 1200, RecordedAt: at(4)},
			{MemberID: "b", Merit: 950, Power: 6000, RecordedAt: at(4)},
		}

		e := extrema.Resolve(ds)

		Convey("Then the extrema should match the strongest movements", func() {
			So(e.MaxMeritVelocity, ShouldEqual, 600)
			So(e.MaxPowerVelocity, ShouldEqual, 300)
			So(e.MinPowerVelocity, ShouldEqual, -3000)
		})

		Convey("Then every individual record should lie within the bounds", func() {
			for _, r := range velocity.Series(ds, model.ByMember) {
				So(r.MeritVelocity, ShouldBeLessThanOrEqualTo, e.MaxMeritVelocity)
				So(r.PowerVelocity, ShouldBeLessThanOrEqualTo, e.MaxPowerVelocity)
				So(r.PowerVelocity, ShouldBeGreaterThanOrEqualTo, e.MinPowerVelocity)
			}
		})

		Convey("Then the result should be a pure function of the dataset", func() {
			again := extrema.Resolve(append(model.Dataset{}, ds...))
			So(again, ShouldResemble, e)
		})

		Convey("Then the chart bounds should floor merit at zero", func() {
			b := extrema.Bounds(e)
			So(b.MeritVelocity, ShouldResemble, [2]float64{0, 600})
			So(b.PowerVelocity, ShouldResemble, [2]float64{-3000, 300})
		})
	})

	Convey("Given a single snapshot", t, func() {
		ds := model.Dataset{{MemberID: "a", Merit: 100, Power: 1000, RecordedAt: at(1)}}

		Convey("Then only first-record zeros exist", func() {
			So(extrema.Resolve(ds), ShouldResemble, model.Extrema{})
		})
	})

	Convey("Given an empty dataset", t, func() {
		Convey("Then all extrema should be zero", func() {
			So(extrema.Resolve(nil), ShouldResemble, model.Extrema{})
		})
	})
}

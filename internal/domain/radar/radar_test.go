package radar_test

import (
	"errors"
	"testing"

	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
	"github.com/mowoo/SLG-Dashboard/internal/domain/radar"
	. "github.com/smartystreets/goconvey/convey"
)

func snap(id string, merit, power float64, rank int) model.Snapshot {
	return model.Snapshot{
		MemberID:   id,
		Merit:      merit,
		Power:      power,
		Rank:       rank,
		Efficiency: model.Efficiency(merit, power),
	}
}

var slave = radar.Preset{
	Name: "slave", MeritOp: radar.AtMost, Merit: 10000,
	PowerOp: radar.AtLeast, Power: 25000, EffOp: radar.AtMost, Eff: 2.0,
}

func TestFilter(t *testing.T) {
	Convey("Given the latest snapshot", t, func() {
		rows := model.Dataset{
			snap("idle", 5000, 40000, 90),
			snap("top", 200000, 30000, 1),
			snap("idle2", 9000, 26000, 40),
			snap("small", 1000, 5000, 200),
		}

		Convey("When filtering with a restrictive preset", func() {
			got := radar.Filter(rows, radar.Query{Preset: slave, RankLimit: 300})

			Convey("Then only matching rows should remain, by rank", func() {
				So(len(got), ShouldEqual, 2)
				So(got[0].MemberID, ShouldEqual, "idle2")
				So(got[1].MemberID, ShouldEqual, "idle")
			})
		})

		Convey("When the rank limit is tight", func() {
			got := radar.Filter(rows, radar.Query{Preset: slave, RankLimit: 50})

			Convey("Then rows ranked below it should be dropped", func() {
				So(len(got), ShouldEqual, 1)
				So(got[0].MemberID, ShouldEqual, "idle2")
			})
		})

		Convey("When using an open preset with no rank limit", func() {
			reset := radar.Preset{Name: "reset", MeritOp: radar.AtLeast, PowerOp: radar.AtLeast, EffOp: radar.AtLeast}
			got := radar.Filter(rows, radar.Query{Preset: reset})

			Convey("Then every row within the default limit should match", func() {
				So(len(got), ShouldEqual, 4)
				So(got[0].Rank, ShouldEqual, 1)
			})
		})
	})
}

func TestOps(t *testing.T) {
	Convey("Given operator strings", t, func() {
		op, err := radar.ParseOp(">=")
		So(err, ShouldBeNil)
		So(op, ShouldEqual, radar.AtLeast)

		op, err = radar.ParseOp("lte")
		So(err, ShouldBeNil)
		So(op, ShouldEqual, radar.AtMost)

		_, err = radar.ParseOp("==")
		So(errors.Is(err, radar.ErrInvalidOp), ShouldBeTrue)

		So(radar.AtMost.Match(2, 2), ShouldBeTrue)
		So(radar.AtLeast.Match(1, 2), ShouldBeFalse)
	})
}

func TestCatalog(t *testing.T) {
	Convey("Given a catalog", t, func() {
		c := radar.NewCatalog([]radar.Preset{slave, {Name: "elite"}})

		Convey("Then presets should be listed by name", func() {
			list := c.List()
			So(len(list), ShouldEqual, 2)
			So(list[0].Name, ShouldEqual, "elite")
		})

		Convey("Then unknown names should fail", func() {
			_, err := c.Get("nope")
			So(errors.Is(err, radar.ErrUnknownPreset), ShouldBeTrue)

			p, err := c.Get("slave")
			So(err, ShouldBeNil)
			So(p.Power, ShouldEqual, 25000)
		})
	})
}

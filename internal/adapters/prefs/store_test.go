package prefs

import (
	"context"
	"errors"
	"testing"

	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory prefs store", t, func() {
		s, err := Open("")
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		Convey("When reading an unknown session", func() {
			p, err := s.Get(ctx, "fresh")

			Convey("Then defaults should be returned", func() {
				So(err, ShouldBeNil)
				So(p, ShouldResemble, model.DefaultPreferences())
			})
		})

		Convey("When writing preferences", func() {
			saved, err := s.Put(ctx, "abc", model.Preferences{
				FontSize:         22,
				FrontlineRegions: []string{"north"},
				LastMember:       "alice",
			})
			So(err, ShouldBeNil)

			Convey("Then they should read back normalized", func() {
				p, err := s.Get(ctx, "abc")
				So(err, ShouldBeNil)
				So(p, ShouldResemble, saved)
				So(p.SelectedGroups, ShouldNotBeNil)
				So(p.FontSize, ShouldEqual, 22)
			})

			Convey("Then other sessions should be unaffected", func() {
				p, err := s.Get(ctx, "xyz")
				So(err, ShouldBeNil)
				So(p.LastMember, ShouldBeEmpty)
			})
		})

		Convey("When the font size is out of range", func() {
			p, err := s.Put(ctx, "abc", model.Preferences{FontSize: 99})
			So(err, ShouldBeNil)
			So(p.FontSize, ShouldEqual, model.DefaultFontSize)
		})

		Convey("When the session id is empty", func() {
			_, err := s.Get(ctx, "")
			So(errors.Is(err, ErrEmptySession), ShouldBeTrue)
			_, err = s.Put(ctx, "", model.DefaultPreferences())
			So(errors.Is(err, ErrEmptySession), ShouldBeTrue)
		})
	})

	Convey("Given a prefs store on disk", t, func() {
		dir := t.TempDir()
		s, err := Open(dir)
		So(err, ShouldBeNil)
		_, err = s.Put(ctx, "abc", model.Preferences{FontSize: 20})
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("Then a reopened store should keep the session", func() {
			s2, err := Open(dir)
			So(err, ShouldBeNil)
			defer s2.Close()
			p, err := s2.Get(ctx, "abc")
			So(err, ShouldBeNil)
			So(p.FontSize, ShouldEqual, 20)
		})

		Convey("Then the closed store should refuse reads and writes", func() {
			_, err := s.Get(ctx, "abc")
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
			_, err = s.Put(ctx, "abc", model.DefaultPreferences())
			So(errors.Is(err, ErrClosed), ShouldBeTrue)
			So(s.Close(), ShouldBeNil)
		})
	})
}

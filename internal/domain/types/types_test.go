package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/tatami/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClock(t *testing.T) {
	Convey("Given clock strings", t, func() {
		Convey("When parsing well-formed values", func() {
			c, ok := types.ParseClock("09:30")
			short, shortOK := types.ParseClock("7:05")

			Convey("Then they convert to minutes since midnight", func() {
				So(ok, ShouldBeTrue)
				So(int(c), ShouldEqual, 570)
				So(shortOK, ShouldBeTrue)
				So(short.String(), ShouldEqual, "07:05")
			})
		})

		Convey("When parsing malformed values", func() {
			for _, s := range []string{"", "9", "24:00", "12:60", "ab:cd", "12:5", "123:00", "-1:00", "09:+5", "+9:00", "9:-0", "-0:30", "+1:00", "9 :00"} {
				_, ok := types.ParseClock(s)
				So(ok, ShouldBeFalse)
			}
		})

		Convey("When rendering an absent clock", func() {
			So(types.NoClock.String(), ShouldEqual, "")
			So(types.NoClock.Valid(), ShouldBeFalse)
		})
	})
}

func TestClockJSON(t *testing.T) {
	Convey("Given an assignment with a clock", t, func() {
		a := types.Assignment{Day: "2025-03-01", Mat: 2, Time: types.MustClock("10:00"), Order: 1}

		Convey("When encoding it", func() {
			b, err := json.Marshal(a)

			Convey("Then the time is written as HH:MM", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldContainSubstring, `"time":"10:00"`)
			})
		})

		Convey("When decoding an empty time", func() {
			var e types.CustomEvent
			err := json.Unmarshal([]byte(`{"name":"Opening","time":"","date":"2025-03-01"}`), &e)

			Convey("Then the time is absent", func() {
				So(err, ShouldBeNil)
				So(e.Time, ShouldEqual, types.NoClock)
			})
		})

		Convey("When decoding a malformed time", func() {
			var e types.CustomEvent
			err := json.Unmarshal([]byte(`{"time":"25:99"}`), &e)

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestParseDay(t *testing.T) {
	Convey("Given day strings", t, func() {
		d, ok := types.ParseDay("2025-03-01")
		So(ok, ShouldBeTrue)
		So(d, ShouldEqual, types.Day("2025-03-01"))

		_, ok = types.ParseDay("01/03/2025")
		So(ok, ShouldBeFalse)
	})
}

package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/paceline/internal/domain/model"
	types "github.com/okian/paceline/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestObservationView(t *testing.T) {
	Convey("Given an observation with a time", t, func() {
		o, err := model.NewObservation("Marathon", "2:30:00", model.Woman, model.SourceManual)
		So(err, ShouldBeNil)

		Convey("When building its view", func() {
			v := types.NewObservationView(o)

			Convey("Then it should carry the seconds and the display string", func() {
				So(v.Seconds, ShouldNotBeNil)
				So(*v.Seconds, ShouldEqual, 9000.0)
				So(v.Formatted, ShouldEqual, "2:30:00")
			})

			Convey("And it should encode to JSON", func() {
				b, err := json.Marshal(v)
				So(err, ShouldBeNil)
				So(string(b), ShouldContainSubstring, `"event":"Marathon"`)
				So(string(b), ShouldContainSubstring, `"seconds":9000`)
			})
		})
	})

	Convey("Given an observation without a time", t, func() {
		o, _ := model.NewObservation("Marathon", "DNS", model.Woman, model.SourceManual)

		Convey("When encoding its view", func() {
			b, err := json.Marshal(types.NewObservationView(o))

			Convey("Then seconds should be omitted rather than NaN", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldNotContainSubstring, `"seconds"`)
				So(string(b), ShouldContainSubstring, `"formatted":"-"`)
			})
		})
	})
}

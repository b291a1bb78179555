package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/paceline/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MaxSelected, convey.ShouldEqual, 3)
			convey.So(cfg.ScoreTablePath, convey.ShouldBeEmpty)
			convey.So(cfg.StrictScoreTable, convey.ShouldBeFalse)
			convey.So(cfg.ProfileTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "paceline")
			convey.So(cfg.MetricsSampleInterval(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configs", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = " " },
			"zero max_selected": func(c *config.Config) { c.MaxSelected = 0 },
			"negative limit":    func(c *config.Config) { c.SessionLimit = -1 },
			"negative obs cap":  func(c *config.Config) { c.MaxObservations = -5 },
			"zero timeout":      func(c *config.Config) { c.ProfileTimeoutMS = 0 },
			"bad log format":    func(c *config.Config) { c.LogFormat = "xml" },
			"zero sample":       func(c *config.Config) { c.MetricsSampleMS = 0 },
			"falling buckets":   func(c *config.Config) { c.MetricsLatencyBucketsMS = []float64{10, 5} },
		}

		convey.Convey("When validating each", func() {
			convey.Convey("Then ErrInvalidConfig should be returned", func() {
				for _, mutate := range cases {
					cfg := config.New()
					mutate(cfg)
					err := cfg.Validate()
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldNotBeEmpty)
				}
			})
		})
	})
}

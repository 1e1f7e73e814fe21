package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/cinescope/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
			convey.So(cfg.DataPath, convey.ShouldEqual, "movies_clean.csv")
			convey.So(cfg.RequiredField, convey.ShouldEqual, "title")
			convey.So(cfg.VoteQuantile, convey.ShouldEqual, 0.75)
			convey.So(cfg.DefaultLimit, convey.ShouldEqual, 20)
			convey.So(cfg.ListLimit, convey.ShouldEqual, 100)
			convey.So(cfg.TopN, convey.ShouldEqual, 10)
			convey.So(cfg.IdempotencyCacheSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the derived values should follow the fields", func() {
			convey.So(cfg.Origins(), convey.ShouldResemble, []string{"*"})
			convey.So(cfg.RateLimitWindow(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		convey.Convey("When the quantile is out of range", func() {
			cfg.VoteQuantile = 1.5
			err := cfg.Validate()

			convey.Convey("Then validation should fail naming the field", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "VoteQuantile")
			})
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When origins carry blanks", func() {
			cfg.CORSAllowedOrigins = "https://a.example, ,https://b.example"
			convey.So(cfg.Origins(), convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
		})
	})
}

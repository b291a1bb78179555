package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/paceline/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the defaults should be returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.MaxSelected, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			setEnv("PACELINE_ADDR", ":8080")
			setEnv("PACELINE_MAX_SELECTED", "5")
			setEnv("PACELINE_SCORE_TABLE_PATH", "/data/wa.csv")
			setEnv("PACELINE_STRICT_SCORE_TABLE", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they should override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxSelected, convey.ShouldEqual, 5)
				convey.So(cfg.ScoreTablePath, convey.ShouldEqual, "/data/wa.csv")
				convey.So(cfg.StrictScoreTable, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading a YAML file", func() {
			path := filepath.Join(t.TempDir(), "paceline.yaml")
			yamlContent := `
addr: ":9090"
log_level: debug
max_selected: 2
session_limit: 10
profile_timeout_ms: 2500
metrics_namespace: runner
metrics_latency_buckets_ms: [1, 10, 100]
metrics_labels:
  deployment: lab
`
			convey.So(os.WriteFile(path, []byte(yamlContent), 0o600), convey.ShouldBeNil)
			setEnv("PACELINE_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then the file values should be applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.MaxSelected, convey.ShouldEqual, 2)
				convey.So(cfg.SessionLimit, convey.ShouldEqual, 10)
				convey.So(cfg.ProfileTimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 1_024)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "runner")
				convey.So(cfg.MetricsLatencyBucketsMS, convey.ShouldResemble, []float64{1, 10, 100})
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"deployment": "lab"})
			})

			convey.Convey("And env should win over the file", func() {
				setEnv("PACELINE_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the file does not exist", func() {
			setEnv("PACELINE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then ErrLoadConfig should be returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the loaded values are invalid", func() {
			setEnv("PACELINE_MAX_SELECTED", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then ErrInvalidConfig should be returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

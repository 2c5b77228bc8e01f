package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/tatami/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.MatCount, convey.ShouldEqual, 4)
				convey.So(cfg.Persistence, convey.ShouldEqual, "memory")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TATAMI_ADDR", ":8080")
			_ = os.Setenv("TATAMI_MAT_COUNT", "6")
			_ = os.Setenv("TATAMI_START_DATE", "2025-03-01")
			_ = os.Setenv("TATAMI_DAY_COUNT", "2")
			_ = os.Setenv("TATAMI_SLOT_GRANULARITY_MINUTES", "15")
			_ = os.Setenv("TATAMI_PERSIST_WORKERS", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MatCount, convey.ShouldEqual, 6)
				convey.So(cfg.StartDate, convey.ShouldEqual, "2025-03-01")
				convey.So(cfg.DayCount, convey.ShouldEqual, 2)
				convey.So(cfg.SlotGranularityMinutes, convey.ShouldEqual, 15)
				convey.So(cfg.PersistWorkers, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
# tournament defaults
addr: ":9090"
mat_count: 3
competition_days: "2025-03-01,2025-03-02"
morning_start: "08:30"
persistence: redis
redis_addr: "cache:6379"
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TATAMI_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MatCount, convey.ShouldEqual, 3)
				convey.So(cfg.MorningStart, convey.ShouldEqual, "08:30")
				convey.So(cfg.MorningEnd, convey.ShouldEqual, "12:00")
				convey.So(cfg.Persistence, convey.ShouldEqual, "redis")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "cache:6379")
				convey.So(len(cfg.Schedule().CompetitionDays), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
mat_count: 3
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TATAMI_CONFIG", tmpFile)
			_ = os.Setenv("TATAMI_MAT_COUNT", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MatCount, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TATAMI_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("TATAMI_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("TATAMI_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("TATAMI_MAT_COUNT", "many")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When postgres is selected without a dsn", func() {
			_ = os.Setenv("TATAMI_PERSISTENCE", "postgres")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"TATAMI_CONFIG",
		"TATAMI_ADDR",
		"TATAMI_MAT_COUNT",
		"TATAMI_START_DATE",
		"TATAMI_DAY_COUNT",
		"TATAMI_SLOT_GRANULARITY_MINUTES",
		"TATAMI_PERSIST_WORKERS",
		"TATAMI_PERSISTENCE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "tatami-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}

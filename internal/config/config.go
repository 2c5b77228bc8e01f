// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and TATAMI_ environment variables.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/tatami/internal/domain/slotgrid"
	"github.com/okian/tatami/internal/domain/types"
)

// Persistence backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Default schedule for tournaments that have no persisted record yet.
	MatCount               int    `koanf:"mat_count"`
	StartDate              string `koanf:"start_date"`
	DayCount               int    `koanf:"day_count"`
	CompetitionDays        string `koanf:"competition_days"` // comma separated YYYY-MM-DD
	MorningStart           string `koanf:"morning_start"`
	MorningEnd             string `koanf:"morning_end"`
	AfternoonStart         string `koanf:"afternoon_start"`
	AfternoonEnd           string `koanf:"afternoon_end"`
	SlotGranularityMinutes int    `koanf:"slot_granularity_minutes"`

	// Persistence selects the schedule record backend: memory, redis or postgres.
	Persistence   string `koanf:"persistence"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	PostgresDSN   string `koanf:"postgres_dsn"`

	// PersistQueueSize bounds the write-behind save queue.
	PersistQueueSize int `koanf:"persist_queue_size"`

	// PersistWorkers sets the number of save workers.
	PersistWorkers int `koanf:"persist_workers"`

	// DedupeSize bounds the remembered command ids.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		MatCount:               4,
		DayCount:               1,
		MorningStart:           "09:00",
		MorningEnd:             "12:00",
		AfternoonStart:         "13:00",
		AfternoonEnd:           "17:00",
		SlotGranularityMinutes: 30,
		Persistence:            BackendMemory,
		RedisAddr:              "localhost:6379",
		PersistQueueSize:       1024,
		PersistWorkers:         runtime.NumCPU(),
		DedupeSize:             50_000,
	}
}

// Schedule returns the default schedule configuration new tournaments start with.
func (c *Config) Schedule() types.ScheduleConfig {
	var days []types.Day
	for _, part := range strings.Split(c.CompetitionDays, ",") {
		if part = strings.TrimSpace(part); part != "" {
			days = append(days, types.Day(part))
		}
	}
	return types.ScheduleConfig{
		MatCount:        c.MatCount,
		StartDate:       c.StartDate,
		DayCount:        c.DayCount,
		CompetitionDays: days,
		Session: types.SessionConfig{
			MorningStart:           c.MorningStart,
			MorningEnd:             c.MorningEnd,
			AfternoonStart:         c.AfternoonStart,
			AfternoonEnd:           c.AfternoonEnd,
			SlotGranularityMinutes: c.SlotGranularityMinutes,
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MatCount < 1 || c.MatCount > slotgrid.MaxMatCount:
		return fmt.Errorf("%w: mat_count must be between 1 and %d", ErrInvalidConfig, slotgrid.MaxMatCount)
	case c.DayCount < 0 || c.DayCount > slotgrid.MaxCompetitionDays:
		return fmt.Errorf("%w: day_count must be between 0 and %d", ErrInvalidConfig, slotgrid.MaxCompetitionDays)
	case len(c.Schedule().CompetitionDays) > slotgrid.MaxCompetitionDays:
		return fmt.Errorf("%w: competition_days lists more than %d days", ErrInvalidConfig, slotgrid.MaxCompetitionDays)
	case c.PersistQueueSize < 1:
		return fmt.Errorf("%w: persist_queue_size must be at least 1", ErrInvalidConfig)
	case c.PersistWorkers < 1:
		return fmt.Errorf("%w: persist_workers must be at least 1", ErrInvalidConfig)
	case c.DedupeSize < 1:
		return fmt.Errorf("%w: dedupe_size must be at least 1", ErrInvalidConfig)
	}

	if c.StartDate != "" {
		if _, ok := types.ParseDay(c.StartDate); !ok {
			return fmt.Errorf("%w: start_date %q is not YYYY-MM-DD", ErrInvalidConfig, c.StartDate)
		}
	}

	switch c.Persistence {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for redis persistence", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for postgres persistence", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown persistence %q", ErrInvalidConfig, c.Persistence)
	}
	return nil
}

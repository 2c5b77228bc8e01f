// Package seeding generates a tournament with overlapping rosters, pushes it
// through the HTTP API, auto-packs it and checks the resulting views.
package seeding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/logger"
)

// Run executes a complete seeding run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	Normalize(cfg)
	log := logger.Get().Named("seeding")
	report := &Report{TournamentID: cfg.TournamentID, StartTime: time.Now()}

	log.Info(ctx, "starting tatami seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("tournamentID", cfg.TournamentID),
		logger.Int("categories", cfg.Categories),
		logger.Int("mats", cfg.MatCount),
		logger.Int("days", cfg.DayCount))

	client := NewClient(cfg)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Push config
	grid, err := client.PutConfig(ctx, ScheduleConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("config upload failed: %w", err)
	}
	report.Days = grid.Days
	log.Info(ctx, "config accepted",
		logger.Int("days", len(grid.Days)),
		logger.Int("slots", len(grid.Slots)),
		logger.Int("capacity", grid.Capacity))

	// Step 3: Generate and push categories
	categories := GenerateCategories(ctx, cfg)
	if err := client.PutCategories(ctx, categories); err != nil {
		return nil, fmt.Errorf("category upload failed: %w", err)
	}
	report.CategoriesSent = len(categories)

	// Step 4: Auto-pack across all days
	packed, err := client.AutoPack(ctx)
	if err != nil {
		return nil, fmt.Errorf("auto-pack failed: %w", err)
	}
	report.Placed = packed.Placed
	report.Overflow = packed.Overflow
	report.Overlaps = packed.Overlaps

	// Step 5: Fetch views
	timelines := make(map[types.Day][]types.MatTimeline, len(grid.Days))
	for _, day := range grid.Days {
		mats, err := client.Timeline(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("timeline %s failed: %w", day, err)
		}
		timelines[day] = mats
		if cfg.Verbose {
			for _, mt := range mats {
				log.Debug(ctx, "mat timeline",
					logger.String("day", string(day)),
					logger.Int("mat", mt.Mat),
					logger.Int("entries", len(mt.Entries)))
			}
		}
	}
	report.TimelineEntries, report.DoubleBookedSlots = countDoubleBooked(timelines)

	pairs, err := client.Conflicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("conflict scan failed: %w", err)
	}
	report.ConflictPairs = len(pairs)

	// Step 6: Verify
	if err := verify(report); err != nil {
		return report, err
	}

	if cfg.OutputFile != "" {
		if err := saveCategories(cfg.OutputFile, categories); err != nil {
			log.Warn(ctx, "failed to save categories to file", logger.Error(err))
		}
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	displayReport(ctx, log, report)
	return report, nil
}

func saveCategories(filename string, categories []types.Category) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, outputDirPerm); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	b, err := json.MarshalIndent(categoriesBody{Categories: categories}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	if err := os.WriteFile(filename, b, outputPermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func displayReport(ctx context.Context, log logger.Logger, r *Report) {
	log.Info(ctx, "seeding run completed",
		logger.String("tournamentID", r.TournamentID),
		logger.Int("categories", r.CategoriesSent),
		logger.Int("placed", r.Placed),
		logger.Int("overflow", r.Overflow),
		logger.Int("conflictPairs", r.ConflictPairs),
		logger.Int("doubleBookedSlots", r.DoubleBookedSlots),
		logger.Duration("duration", r.Duration))
}

package seeding

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tatami/internal/domain/types"
	"github.com/okian/tatami/pkg/logger"
)

var (
	clubs       = []string{"Shizen Dojo", "Kaizen Club", "Tora Karate", "Hikari Budo", "Seiryu Kai"}
	disciplines = []string{"Kata", "Kumite"}
	divisions   = []string{"U12", "U14", "U16", "U18", "Senior", "Veteran"}
	genders     = []string{"Male", "Female"}
)

// Normalize fills zero values with defaults and clamps the roster size to
// the competitor pool.
func Normalize(cfg *Config) {
	if cfg.Categories <= 0 {
		cfg.Categories = DefaultCategories
	}
	if cfg.Competitors <= 0 {
		cfg.Competitors = DefaultCompetitors
	}
	if cfg.RosterSize <= 0 {
		cfg.RosterSize = DefaultRosterSize
	}
	cfg.RosterSize = min(cfg.RosterSize, cfg.Competitors)
	if cfg.MatCount <= 0 {
		cfg.MatCount = DefaultMatCount
	}
	if cfg.StartDate == "" {
		cfg.StartDate = time.Now().Format(types.DayLayout)
	}
	if cfg.DayCount <= 0 {
		cfg.DayCount = DefaultDayCount
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TournamentID == "" {
		cfg.TournamentID = "seed-" + uuid.NewString()
	}
}

// ScheduleConfig builds the config pushed before the categories.
func ScheduleConfig(cfg *Config) types.ScheduleConfig {
	return types.ScheduleConfig{
		MatCount:  cfg.MatCount,
		StartDate: cfg.StartDate,
		DayCount:  cfg.DayCount,
		Session: types.SessionConfig{
			MorningStart:           morningStart,
			MorningEnd:             morningEnd,
			AfternoonStart:         afternoonStart,
			AfternoonEnd:           afternoonEnd,
			SlotGranularityMinutes: slotGranularity,
		},
	}
}

// GenerateCategories draws every roster from one shared competitor pool, so
// categories overlap whenever the pool is smaller than the total roster
// count. The same seed always yields the same rosters; ids are random.
func GenerateCategories(ctx context.Context, cfg *Config) []types.Category {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>1|1))

	pool := make([]types.Competitor, cfg.Competitors)
	for i := range pool {
		pool[i] = types.Competitor{
			ID:   uuid.NewString(),
			Name: fmt.Sprintf("Competitor %03d", i+1),
			Club: clubs[rng.IntN(len(clubs))],
		}
	}

	categories := make([]types.Category, cfg.Categories)
	for i := range categories {
		discipline := disciplines[i%len(disciplines)]
		roster := make([]types.Competitor, 0, cfg.RosterSize)
		for _, idx := range rng.Perm(len(pool))[:cfg.RosterSize] {
			roster = append(roster, pool[idx])
		}
		name := fmt.Sprintf("%s %s %s #%d", discipline,
			divisions[rng.IntN(len(divisions))], genders[rng.IntN(len(genders))], i+1)
		categories[i] = types.Category{
			ID:     uuid.NewString(),
			Name:   name,
			Type:   discipline,
			Roster: roster,
		}
	}

	logger.Get().Info(ctx, "generated categories",
		logger.Int("categories", len(categories)),
		logger.Int("competitors", len(pool)),
		logger.Int("rosterSize", cfg.RosterSize))
	return categories
}

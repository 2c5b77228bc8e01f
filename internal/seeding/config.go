package seeding

import (
	"time"

	"github.com/okian/tatami/internal/domain/types"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL      string        // Base URL of the service
	TournamentID string        // Tournament to seed; generated when empty
	Categories   int           // Number of categories to generate
	Competitors  int           // Size of the competitor pool rosters draw from
	RosterSize   int           // Competitors per category
	MatCount     int           // Mats in the generated config
	StartDate    string        // First competition day, YYYY-MM-DD
	DayCount     int           // Number of competition days
	Seed         uint64        // Seed for roster generation
	Timeout      time.Duration // HTTP request timeout
	OutputFile   string        // Optional JSON dump of the generated categories
	Verbose      bool
}

// Report holds run statistics and the verification outcome.
type Report struct {
	TournamentID      string
	Days              []types.Day
	CategoriesSent    int
	Placed            int
	Overflow          int
	Overlaps          int
	ConflictPairs     int
	TimelineEntries   int
	DoubleBookedSlots int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
